package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tabauth/internal/auth/store"
)

// HousekeepingService periodically purges sessions that have not been
// rotated within MaxIdle. Their refresh tokens have expired, so the rows can
// never be redeemed again.
type HousekeepingService struct {
	Sessions store.Sessions
	Logger   *slog.Logger
	Interval time.Duration
	MaxIdle  time.Duration
	Timeout  time.Duration

	now    func() time.Time
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A zero interval
// defaults to one hour.
func NewHousekeepingService(
	sessions store.Sessions,
	logger *slog.Logger,
	interval, maxIdle time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Sessions: sessions,
		Logger:   logger,
		Interval: interval,
		MaxIdle:  maxIdle,
		Timeout:  30 * time.Second,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the worker in the background until Stop is called.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "max_idle", s.MaxIdle)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) cleanup() int64 {
	if s.MaxIdle <= 0 {
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	cutoff := s.now().Add(-s.MaxIdle)
	n, err := s.Sessions.DeleteStale(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to delete stale sessions", "error", err)
		return 0
	}

	s.Logger.Info("housekeeping cleanup completed", "stale_sessions", n, "cutoff", cutoff)
	return n
}
