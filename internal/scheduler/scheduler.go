package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"intern_radar/internal/domain"
)

// Maintainer runs one pool maintenance cycle.
type Maintainer interface {
	RunMaintenanceCycle(ctx context.Context) (*domain.PoolStats, error)
}

// Scheduler wraps robfig/cron and triggers pool maintenance on the configured
// spec. One cycle also runs immediately on start so a fresh deployment does
// not serve a stale pool until the first tick.
type Scheduler struct {
	cron       *cron.Cron
	maintainer Maintainer
	spec       string
	logger     *slog.Logger

	// startup tracks the immediate cycle, which runs outside cron's own
	// job accounting.
	startup sync.WaitGroup
}

func NewScheduler(maintainer Maintainer, spec string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		maintainer: maintainer,
		spec:       spec,
		logger:     logger.With("component", "scheduler"),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runCycle(ctx)
	})
	if err != nil {
		return fmt.Errorf("register maintenance job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "spec", s.spec)

	s.startup.Add(1)
	go func() {
		defer s.startup.Done()
		s.runCycle(ctx)
	}()

	return nil
}

// Stop halts the cron loop and waits for any running cycle to finish,
// including the immediate startup one.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.startup.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runCycle(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	if _, err := s.maintainer.RunMaintenanceCycle(cycleCtx); err != nil {
		s.logger.Error("maintenance cycle failed", "error", err)
	}
}
