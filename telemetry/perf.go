package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for the simulation step.
const (
	PhaseSpawn     = "spawn"
	PhaseMovement  = "movement"
	PhaseTelemetry = "telemetry"
	PhaseStore     = "store"
	PhaseAging     = "aging"
)

// Phases lists the step phases in execution order.
var Phases = []string{PhaseSpawn, PhaseMovement, PhaseTelemetry, PhaseStore, PhaseAging}

// PerfSample holds timing data for a single step. Schools counts the
// schools each phase handled.
type PerfSample struct {
	StepDuration time.Duration
	Phases       map[string]time.Duration
	Schools      map[string]int
}

// PerfCollector tracks performance metrics over a rolling window.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	currentCounts map[string]int
	stepStart     time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of steps to average over (e.g., 24 for one year at 24 steps).
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 24
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
		currentCounts: make(map[string]int),
	}
}

// StartStep begins timing a new simulation step.
func (p *PerfCollector) StartStep() {
	p.stepStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.currentCounts = make(map[string]int)
	p.lastPhase = ""
}

// AddSchools credits n schools to the running phase. Outside a phase it is
// a no-op.
func (p *PerfCollector) AddSchools(n int) {
	if p.lastPhase == "" {
		return
	}
	p.currentCounts[p.lastPhase] += n
}

// StartPhase begins timing a specific phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	// End previous phase if any
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndStep finishes timing the current step and records the sample.
func (p *PerfCollector) EndStep() {
	now := time.Now()
	// End final phase
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	sample := PerfSample{
		StepDuration: now.Sub(p.stepStart),
		Phases:       p.currentPhases,
		Schools:      p.currentCounts,
	}
	p.lastPhase = ""

	p.samples[p.writeIndex] = sample
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	// Step timing
	AvgStepDuration time.Duration
	MinStepDuration time.Duration
	MaxStepDuration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of total step time
	PhasePct map[string]float64

	// Schools handled per step by each phase, and per second of phase time
	PhaseSchools map[string]float64
	PhaseRate    map[string]float64

	// Throughput
	StepsPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg:     make(map[string]time.Duration),
			PhasePct:     make(map[string]float64),
			PhaseSchools: make(map[string]float64),
			PhaseRate:    make(map[string]float64),
		}
	}

	var totalStep time.Duration
	var minStep, maxStep time.Duration
	phaseSum := make(map[string]time.Duration)
	schoolSum := make(map[string]int)

	// Iterate over valid samples
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		totalStep += s.StepDuration

		if i == 0 || s.StepDuration < minStep {
			minStep = s.StepDuration
		}
		if s.StepDuration > maxStep {
			maxStep = s.StepDuration
		}

		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
		for phase, n := range s.Schools {
			schoolSum[phase] += n
		}
	}

	avgStep := totalStep / time.Duration(p.sampleCount)

	// Calculate phase averages and percentages
	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avgStep > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avgStep) * 100
		}
	}

	phaseSchools := make(map[string]float64)
	phaseRate := make(map[string]float64)
	for phase, n := range schoolSum {
		phaseSchools[phase] = float64(n) / float64(p.sampleCount)
		if d := phaseSum[phase]; d > 0 {
			phaseRate[phase] = float64(n) / d.Seconds()
		}
	}

	// Calculate throughput
	var stepsPerSec float64
	if avgStep > 0 {
		stepsPerSec = float64(time.Second) / float64(avgStep)
	}

	return PerfStats{
		AvgStepDuration: avgStep,
		MinStepDuration: minStep,
		MaxStepDuration: maxStep,
		PhaseAvg:        phaseAvg,
		PhasePct:        phasePct,
		PhaseSchools:    phaseSchools,
		PhaseRate:       phaseRate,
		StepsPerSecond:  stepsPerSec,
	}
}

// LogStats logs performance statistics on logger.
func (s PerfStats) LogStats(logger *slog.Logger) {
	attrs := []any{
		"avg_step_us", s.AvgStepDuration.Microseconds(),
		"min_step_us", s.MinStepDuration.Microseconds(),
		"max_step_us", s.MaxStepDuration.Microseconds(),
		"steps_per_sec", int(s.StepsPerSecond),
		"moves_per_sec", int(s.PhaseRate[PhaseMovement]),
	}

	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", float64(int(pct*10))/10.0)
		}
	}

	logger.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_step_us", s.AvgStepDuration.Microseconds()),
		slog.Int64("min_step_us", s.MinStepDuration.Microseconds()),
		slog.Int64("max_step_us", s.MaxStepDuration.Microseconds()),
		slog.Float64("steps_per_sec", s.StepsPerSecond),
		slog.Float64("moves_per_sec", s.PhaseRate[PhaseMovement]),
	}

	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
		if n, ok := s.PhaseSchools[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_schools", n))
		}
	}

	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Replicate    int     `csv:"replicate"`
	Step         int     `csv:"step"`
	AvgStepUS    int64   `csv:"avg_step_us"`
	MinStepUS    int64   `csv:"min_step_us"`
	MaxStepUS    int64   `csv:"max_step_us"`
	StepsPerSec  float64 `csv:"steps_per_sec"`
	SpawnPct     float64 `csv:"spawn_pct"`
	MovementPct  float64 `csv:"movement_pct"`
	AgingPct     float64 `csv:"aging_pct"`
	TelemetryPct float64 `csv:"telemetry_pct"`
	StorePct     float64 `csv:"store_pct"`
	Spawned      float64 `csv:"spawned_per_step"`
	Moved        float64 `csv:"moved_per_step"`
	Removed      float64 `csv:"removed_per_step"`
	MovesPerSec  float64 `csv:"moves_per_sec"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(replicate, step int) PerfStatsCSV {
	return PerfStatsCSV{
		Replicate:    replicate,
		Step:         step,
		AvgStepUS:    s.AvgStepDuration.Microseconds(),
		MinStepUS:    s.MinStepDuration.Microseconds(),
		MaxStepUS:    s.MaxStepDuration.Microseconds(),
		StepsPerSec:  s.StepsPerSecond,
		SpawnPct:     s.PhasePct[PhaseSpawn],
		MovementPct:  s.PhasePct[PhaseMovement],
		AgingPct:     s.PhasePct[PhaseAging],
		TelemetryPct: s.PhasePct[PhaseTelemetry],
		StorePct:     s.PhasePct[PhaseStore],
		Spawned:      s.PhaseSchools[PhaseSpawn],
		Moved:        s.PhaseSchools[PhaseMovement],
		Removed:      s.PhaseSchools[PhaseAging],
		MovesPerSec:  s.PhaseRate[PhaseMovement],
	}
}
