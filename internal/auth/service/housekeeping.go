package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/learnhub/internal/auth/store"
	"github.com/aussiebroadwan/learnhub/pkg/obs"
)

// DefaultHousekeepingInterval is used when no interval is configured.
const DefaultHousekeepingInterval = 10 * time.Minute

// HousekeepingService periodically sweeps expired sessions and revocation
// entries so neither grows without bound.
type HousekeepingService struct {
	Sessions    store.Sessions
	Revocations store.Revocations
	Metrics     *obs.Metrics
	Logger      *slog.Logger
	Interval    time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, DefaultHousekeepingInterval is used.
func NewHousekeepingService(sessions store.Sessions, revocations store.Revocations, metrics *obs.Metrics, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}

	return &HousekeepingService{
		Sessions:    sessions,
		Revocations: revocations,
		Metrics:     metrics,
		Logger:      logger,
		Interval:    interval,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until the worker has finished any in-progress sweep.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep deletes expired sessions and revocation entries. The two deletions
// are independent; a failure in one is logged and the other still runs.
func (s *HousekeepingService) Sweep(ctx context.Context) {
	var deletedSessions, deletedRevocations int64

	n, err := s.Sessions.DeleteExpiredSessions(ctx)
	if err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
	} else {
		deletedSessions = n
		s.Metrics.ObserveSweep("sessions", n)
	}

	n, err = s.Revocations.DeleteExpiredRevocations(ctx)
	if err != nil {
		s.Logger.Error("failed to delete expired revocations", "error", err)
	} else {
		deletedRevocations = n
		s.Metrics.ObserveSweep("revocations", n)
	}

	s.Logger.Debug("housekeeping sweep completed",
		"sessions_deleted", deletedSessions,
		"revocations_deleted", deletedRevocations,
	)
}
