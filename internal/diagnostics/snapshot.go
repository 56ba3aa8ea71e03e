package diagnostics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"archiplane/internal/model"
	"archiplane/internal/modelactor"
)

// Stats is the aggregate entity count spec.md §4.8 says backs
// `model/stats`.
type Stats struct {
	Elements      int `json:"elements"`
	Relationships int `json:"relationships"`
	Views         int `json:"views"`
	Folders       int `json:"folders"`
}

// Snapshot takes a read-consistent structural copy of the model on the
// actor goroutine, atomic relative to every in-flight mutation, per
// spec.md §4.8.
func Snapshot(ctx context.Context, actor *modelactor.Actor) (*model.Model, error) {
	return actor.Snapshot(ctx)
}

// StatsOf computes Stats from an already-taken snapshot.
func StatsOf(snap *model.Model) Stats {
	e, r, v, f := snap.Counts()
	return Stats{Elements: e, Relationships: r, Views: v, Folders: f}
}

// SearchOptions narrows model/search to elements matching a type, a name
// regular expression, and/or property equality, mirroring
// model.Model.SearchElements's parameters.
type SearchOptions struct {
	Type       model.ElementType
	NameRegex  string
	Properties model.PropertyMap
}

// Search runs SearchOptions against an already-taken snapshot.
func Search(snap *model.Model, opts SearchOptions) ([]*model.Element, error) {
	return snap.SearchElements(opts.Type, opts.NameRegex, opts.Properties)
}

// Scheduler runs the optional background diagnostics sweep described in
// SPEC_FULL.md §4.10: it is disabled when its interval is <= 0 (archiplaned
// starts it with a one-minute interval), and when running periodically
// snapshots the model and logs any newly observed ghost/orphan findings.
// This is additive instrumentation only — /model/diagnostics remains the
// authoritative on-demand check; the scheduler never blocks or mutates
// anything.
type Scheduler struct {
	actor    *modelactor.Actor
	interval time.Duration
	logger   *zap.Logger

	stop chan struct{}
	seen map[string]bool
}

// NewScheduler returns a Scheduler that, once Start is called, sweeps
// every interval. interval <= 0 disables the scheduler entirely (Start
// becomes a no-op).
func NewScheduler(actor *modelactor.Actor, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{actor: actor, interval: interval, logger: logger, stop: make(chan struct{}), seen: map[string]bool{}}
}

// Start begins the periodic sweep on its own goroutine; it returns
// immediately. Calling Stop terminates it.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweepOnce(ctx)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) sweepOnce(ctx context.Context) {
	snap, err := Snapshot(ctx, s.actor)
	if err != nil {
		s.logger.Warn("background diagnostics snapshot failed", zap.Error(err))
		return
	}
	report := Run(snap)
	for _, f := range report.Findings {
		if f.Kind != KindGhost && f.Kind != KindOrphan {
			continue
		}
		key := string(f.Kind) + ":" + f.Subject
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		s.logger.Warn("background diagnostics sweep found a new issue",
			zap.String("kind", string(f.Kind)), zap.String("subject", f.Subject), zap.String("description", f.Description))
	}
}

// Stop terminates the scheduler's goroutine, if running.
func (s *Scheduler) Stop() {
	close(s.stop)
}
