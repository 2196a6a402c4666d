// Package pipeline drives the encode and decode sequences end to end,
// owning the scratch directory and printing a running status line for each
// stage.
package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/nymora/gitzipqr/internal/config"
	"github.com/nymora/gitzipqr/internal/pipelineerr"
)

// Pipeline threads an explicit Config through every step; no package-level
// state is read or mutated.
type Pipeline struct {
	cfg config.Config
	out *os.File
}

// New returns a Pipeline bound to cfg. Progress lines are written to stdout.
func New(cfg config.Config) *Pipeline {
	return &Pipeline{cfg: cfg, out: os.Stdout}
}

// runStep prints "STEP #N <label> ... [1|0]" around fn and returns fn's
// error unmodified so the caller can abort the sequence on first failure.
func (p *Pipeline) runStep(step int, label string, fn func() error) error {
	fmt.Fprintf(p.out, "STEP #%d %s ... ", step, label)
	err := fn()
	if err != nil {
		fmt.Fprintf(p.out, "[0]\n")
		return err
	}
	fmt.Fprintf(p.out, "[1]\n")
	return nil
}

// withTempDir creates a scratch directory, hands it to fn, and removes it on
// every exit path including context cancellation.
func withTempDir(ctx context.Context, prefix string, fn func(dir string) error) error {
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.IO, 0, "create scratch directory", err)
	}
	defer os.RemoveAll(dir)

	done := make(chan error, 1)
	go func() { done <- fn(dir) }()

	select {
	case <-ctx.Done():
		return pipelineerr.Wrap(pipelineerr.IO, 0, "cancelled", ctx.Err())
	case err := <-done:
		return err
	}
}
