// Package qrpool implements the parallel QR encoder and decoder pools. Both
// are bounded worker pools over pure, side-effect-isolated jobs; ordering is
// reconstructed from the job's Index field, never from completion order.
// Built on golang.org/x/sync/errgroup for bounded concurrency: a buffered
// job queue, a typed per-job result, and no shared mutable counter beyond
// what the control goroutine aggregates after the barrier.
package qrpool

import (
	"context"
	"fmt"

	"github.com/skip2/go-qrcode"
	"golang.org/x/sync/errgroup"
)

// EncodeJob is one unit of QR rendering work: render Text into a PNG at OutPath.
type EncodeJob struct {
	Index   int
	Text    string
	OutPath string
}

// EncodeResult reports whether job Index succeeded.
type EncodeResult struct {
	Index int
	Err   error
}

// ProgressFunc is invoked from the control goroutine only, after each job
// result is collected, never from inside a worker — so there is no shared
// mutable counter crossing goroutine boundaries.
type ProgressFunc func(completed, total int)

// RunEncoders renders every job to a PNG QR symbol using up to workers
// concurrent goroutines. It returns one EncodeResult per job in the same
// order as jobs, regardless of completion order.
func RunEncoders(ctx context.Context, jobs []EncodeJob, workers int, ecl qrcode.RecoveryLevel, margin int, onProgress ProgressFunc) []EncodeResult {
	results := make([]EncodeResult, len(jobs))
	if len(jobs) == 0 {
		return results
	}
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	completed := 0
	resultsCh := make(chan EncodeResult, len(jobs))

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			select {
			case <-gctx.Done():
				resultsCh <- EncodeResult{Index: job.Index, Err: gctx.Err()}
				return nil
			default:
			}
			err := renderOne(job, ecl, margin)
			resultsCh <- EncodeResult{Index: job.Index, Err: err}
			return nil
		})
	}

	go func() {
		g.Wait()
		close(resultsCh)
	}()

	for r := range resultsCh {
		results[indexOf(jobs, r.Index)] = r
		completed++
		if onProgress != nil {
			onProgress(completed, len(jobs))
		}
	}

	return results
}

func indexOf(jobs []EncodeJob, index int) int {
	for i, j := range jobs {
		if j.Index == index {
			return i
		}
	}
	return -1
}

func renderOne(job EncodeJob, ecl qrcode.RecoveryLevel, margin int) error {
	qr, err := qrcode.New(job.Text, ecl)
	if err != nil {
		return fmt.Errorf("qrpool: encode chunk %d: %w", job.Index, err)
	}
	qr.DisableBorder = margin == 0

	// go-qrcode's WriteFile(256, ...) renders into a fixed 256x256-pixel
	// image and scales the modules to fit it. The quiet zone is go-qrcode's
	// fixed 4-module border for any positive margin and no border for a zero
	// margin; other margin widths are not reproduced.
	if err := qr.WriteFile(256, job.OutPath); err != nil {
		return fmt.Errorf("qrpool: write PNG for chunk %d: %w", job.Index, err)
	}
	return nil
}
