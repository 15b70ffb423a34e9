package sync

import (
	"context"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler drives the hourly and daily sync sweeps. A sweep that is
// still running when its next tick fires is skipped, not stacked.
type Scheduler struct {
	cron    *cron.Cron
	service SyncService
	logger  *zap.Logger

	hourlyBusy atomic.Bool
	dailyBusy  atomic.Bool
}

func NewScheduler(service SyncService, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		service: service,
		logger:  logger,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@hourly", func() {
		s.sweep(FrequencyHourly, &s.hourlyBusy)
	}); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@daily", func() {
		s.sweep(FrequencyDaily, &s.dailyBusy)
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("sync scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("sync scheduler stopped")
}

func (s *Scheduler) sweep(frequency string, busy *atomic.Bool) {
	if !busy.CompareAndSwap(false, true) {
		s.logger.Warn("previous sweep still running, skipping tick",
			zap.String("frequency", frequency),
		)
		return
	}
	defer busy.Store(false)

	s.service.RunDue(context.Background(), frequency)
}
