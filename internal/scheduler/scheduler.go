// Package scheduler refreshes the weather screen on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefresherFunc adapts a plain function to Refresher.
type RefresherFunc func(ctx context.Context) error

func (f RefresherFunc) Refresh(ctx context.Context) error { return f(ctx) }

type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
}

// New parses spec (standard five-field cron or descriptors such as
// "@every 15m") and schedules r. An empty spec returns nil.
func New(spec string, r Refresher, timeout time.Duration) (*Scheduler, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s := &Scheduler{cron: c, timeout: timeout}
	if _, err := c.AddFunc(spec, func() { s.run(r) }); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) run(r Refresher) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := r.Refresh(ctx); err != nil {
		slog.Warn("scheduled refresh failed", "error", err)
		return
	}
	slog.Debug("scheduled refresh done")
}

func (s *Scheduler) Start() {
	if s == nil {
		return
	}
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s == nil {
		return
	}
	<-s.cron.Stop().Done()
}
