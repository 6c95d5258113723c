package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// sweepTimeout bounds one urgency sweep run
const sweepTimeout = 5 * time.Minute

// CronService runs scheduled background jobs
type CronService struct {
	cron    *cron.Cron
	sweeper UrgencySweeper
	log     *zap.Logger
}

// NewCronService creates a scheduler in the business time zone
func NewCronService(sweeper UrgencySweeper, loc *time.Location, log *zap.Logger) *CronService {
	return &CronService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		sweeper: sweeper,
		log:     log,
	}
}

// ScheduleUrgencySweep registers the nightly urgency sweep. An empty spec disables it.
func (s *CronService) ScheduleUrgencySweep(spec string) error {
	if spec == "" {
		s.log.Info("urgency sweep disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(spec, s.RunUrgencySweep); err != nil {
		return fmt.Errorf("invalid urgency sweep schedule %q: %w", spec, err)
	}
	s.log.Info("urgency sweep scheduled", zap.String("spec", spec))
	return nil
}

// RunUrgencySweep runs one sweep and logs the outcome
func (s *CronService) RunUrgencySweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	start := time.Now()
	flipped, err := s.sweeper.SweepUrgency(ctx)
	if err != nil {
		s.log.Error("urgency sweep failed", zap.Error(err))
		return
	}
	s.log.Info("urgency sweep finished",
		zap.Int("flipped", flipped),
		zap.Duration("took", time.Since(start)))
}

// Start starts the scheduler in its own goroutine
func (s *CronService) Start() {
	s.cron.Start()
	s.log.Info("cron service started")
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("cron service stopped")
}
