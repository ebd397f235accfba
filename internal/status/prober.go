package status

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kiranshivaraju/gitverified/pkg/models"
)

// Pinger is satisfied by backend.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ModelLister is satisfied by ollama.Client.
type ModelLister interface {
	Tags(ctx context.Context) ([]string, error)
}

// ReadinessChecker is satisfied by kestra.Client.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// Prober aggregates readiness of the three external services. Every call
// probes afresh; nothing is cached.
type Prober struct {
	backend Pinger
	models  ModelLister
	engine  ReadinessChecker
	timeout time.Duration
}

func NewProber(backend Pinger, models ModelLister, engine ReadinessChecker, timeout time.Duration) *Prober {
	return &Prober{backend: backend, models: models, engine: engine, timeout: timeout}
}

// Probe runs the three probes concurrently. A failing probe only clears its
// own flag; Probe itself never fails.
func (p *Prober) Probe(ctx context.Context) models.SystemStatus {
	st := models.SystemStatus{Models: []string{}}

	var g errgroup.Group
	g.Go(func() error {
		pctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		if err := p.backend.Ping(pctx); err != nil {
			slog.Debug("backend probe failed", "error", err)
			return nil
		}
		st.Backend = true
		return nil
	})
	g.Go(func() error {
		pctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		names, err := p.models.Tags(pctx)
		if err != nil {
			slog.Debug("model server probe failed", "error", err)
			return nil
		}
		st.Ollama = true
		if names != nil {
			st.Models = names
		}
		return nil
	})
	g.Go(func() error {
		pctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		if err := p.engine.Ready(pctx); err != nil {
			slog.Debug("workflow engine probe failed", "error", err)
			return nil
		}
		st.Kestra = true
		return nil
	})
	_ = g.Wait()

	st.Ready = st.Backend && st.Ollama
	return st
}
