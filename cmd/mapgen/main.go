// Synthetic distribution map generator.
//
// Writes presence probability maps built from fractal simplex noise over the
// grid of a configuration, either as one CSV map or as a netCDF series with
// one slice per season.
//
// Usage: go run ./cmd/mapgen -config config.yaml -out maps/hake.csv
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/grid"
	"github.com/pthm-cable/shoal/maps"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	out := flag.String("out", "map.csv", "Output file; a .nc extension writes a netCDF series")
	variable := flag.String("variable", "proba", "netCDF variable name")
	slices := flag.Int("slices", 4, "Number of netCDF time slices")
	drift := flag.Float64("drift", 3, "Offset added to the noise window per slice")
	seed := flag.Int64("seed", 1982, "Noise seed")
	frequency := flag.Float64("frequency", 0, "Base noise frequency (0 = default)")
	octaves := flag.Int("octaves", 0, "Noise octaves (0 = default)")
	cutoff := flag.Float64("cutoff", -1, "Values below become absence (-1 = default)")
	separator := flag.String("separator", ";", "CSV separator")

	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	g, err := grid.Load(cfg.Grid)
	if err != nil {
		slog.Error("failed to load grid", "error", err)
		os.Exit(1)
	}

	params := maps.DefaultSynthParams(*seed)
	if *frequency > 0 {
		params.Frequency = *frequency
	}
	if *octaves > 0 {
		params.Octaves = *octaves
	}
	if *cutoff >= 0 {
		params.Cutoff = *cutoff
	}

	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Error("failed to create output directory", "error", err)
			os.Exit(1)
		}
	}

	if strings.EqualFold(filepath.Ext(*out), ".nc") {
		series := make([]*maps.GridMap, *slices)
		for t := range series {
			p := params
			p.Offset = float64(t) * *drift
			series[t] = maps.Synthesize(g, p)
		}
		if err := maps.WriteNetCDF(*out, *variable, series); err != nil {
			slog.Error("failed to write map", "error", err)
			os.Exit(1)
		}
		slog.Info("netcdf series written", "path", *out, "variable", *variable, "slices", len(series))
		return
	}

	sep := (config.OutputConfig{Separator: *separator}).Comma()
	m := maps.Synthesize(g, params)
	if err := m.WriteCSV(*out, sep); err != nil {
		slog.Error("failed to write map", "error", err)
		os.Exit(1)
	}
	slog.Info("map written",
		"path", *out,
		"nx", g.NX(),
		"ny", g.NY(),
		"positive_cells", m.Positive(),
		"max", m.Max(),
	)
}
