package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Kavesh2000/Onitticketingsystem/internal/application/leave"
)

// RecomputeScheduler runs the leave balance recompute on a cron schedule.
// A run already in progress is never overlapped: AddJob wraps the job with
// SkipIfStillRunning.
type RecomputeScheduler struct {
	cron       *cron.Cron
	recomputer *leave.Recomputer
	schedule   string
	logger     *zap.Logger
	mu         sync.Mutex
	running    bool
}

// NewRecomputeScheduler creates a scheduler for the given cron expression
// (standard five-field format).
func NewRecomputeScheduler(recomputer *leave.Recomputer, schedule string, logger *zap.Logger) *RecomputeScheduler {
	return &RecomputeScheduler{
		cron:       cron.New(),
		recomputer: recomputer,
		schedule:   schedule,
		logger:     logger,
	}
}

// Start registers the recompute job and starts the scheduler
func (s *RecomputeScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("recompute scheduler already running")
	}

	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(s.run))
	if _, err := s.cron.AddJob(s.schedule, job); err != nil {
		return fmt.Errorf("failed to schedule balance recompute: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("Started balance recompute scheduler", zap.String("schedule", s.schedule))
	return nil
}

// Stop stops the scheduler and waits for an in-flight run to finish
func (s *RecomputeScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info("Stopped balance recompute scheduler")
}

func (s *RecomputeScheduler) run() {
	updated, err := s.recomputer.RecomputeAll(context.Background())
	if err != nil {
		s.logger.Error("Scheduled balance recompute failed", zap.Error(err))
		return
	}
	s.logger.Info("Scheduled balance recompute completed", zap.Int("subjects_updated", updated))
}
