package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
)

// ReplicateFunc runs replicate r.
type ReplicateFunc func(ctx context.Context, r int) error

// RunReplicates runs n replicates in ceil(n/workers) sequential batches of at
// most workers concurrent replicates, waiting for a whole batch before
// starting the next. A failing or panicking replicate is logged and does not
// stop its siblings. workers <= 0 means GOMAXPROCS. The returned error joins
// every replicate failure.
func RunReplicates(ctx context.Context, n, workers int, fn ReplicateFunc, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, max(n, 1))

	errs := make([]error, n)
	nBatch := (n + workers - 1) / workers
	for b := 0; b < nBatch; b++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}

		var wg sync.WaitGroup
		for r := b * workers; r < min((b+1)*workers, n); r++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[r] = runOne(ctx, r, fn)
				if errs[r] != nil {
					logger.Error("replicate failed", "replicate", r, "error", errs[r])
				}
			}()
		}
		wg.Wait()
		logger.Info("batch done", "batch", b+1, "batches", nBatch)
	}
	return errors.Join(errs...)
}

func runOne(ctx context.Context, r int, fn ReplicateFunc) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("replicate %d panicked: %v", r, p)
		}
	}()
	return fn(ctx, r)
}
