package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Monitor defines the interface for any background task that can be
// scheduled.
type Monitor interface {
	Name() string
	Run(ctx context.Context)
}

type entry struct {
	monitor  Monitor
	interval time.Duration
}

// Scheduler runs registered monitors on fixed intervals until its context is
// cancelled.
type Scheduler struct {
	entries []entry
	logger  zerolog.Logger
	wg      sync.WaitGroup
}

// NewScheduler creates and returns a new Scheduler instance.
func NewScheduler(logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds a monitor with its run interval. Non-positive intervals
// disable the monitor.
func (s *Scheduler) Register(m Monitor, interval time.Duration) {
	if interval <= 0 {
		s.logger.Info().Msgf("Monitor '%s' has no interval, skipping.", m.Name())
		return
	}
	s.entries = append(s.entries, entry{monitor: m, interval: interval})
	s.logger.Info().Msgf("Monitor '%s' registered with interval %s.", m.Name(), interval)
}

// Start launches all registered monitors.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info().Msg("Scheduler starting...")

	for _, e := range s.entries {
		s.wg.Add(1)
		go s.runMonitor(ctx, e.monitor, e.interval)
	}

	s.logger.Info().Msg("All registered monitors started.")
}

// Wait blocks until all monitor goroutines have exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runMonitor(ctx context.Context, m Monitor, interval time.Duration) {
	defer s.wg.Done()

	// Run immediately on start
	s.logger.Debug().Msgf("Running monitor '%s' for the first time.", m.Name())
	m.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.logger.Debug().Msgf("Running monitor '%s'.", m.Name())
			m.Run(ctx)
		case <-ctx.Done():
			s.logger.Info().Msgf("Monitor '%s' stopping.", m.Name())
			return
		}
	}
}
