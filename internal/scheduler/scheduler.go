package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"stockwatch/internal/notify"
	"stockwatch/internal/store"
)

// Scheduler runs the calendar-style housekeeping jobs: pruning old
// triggered alerts and vacuuming the store. The fixed-interval quote polls
// live in the pollers, not here.
type Scheduler struct {
	Cron      *cron.Cron
	Store     store.Store
	Hub       *notify.Hub
	Retention time.Duration
}

// NewScheduler creates a scheduler over the given store.
func NewScheduler(st store.Store, hub *notify.Hub, retention time.Duration) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Store:     st,
		Hub:       hub,
		Retention: retention,
	}
}

// RegisterAll registers the cleanup job on the given cron expression.
func (s *Scheduler) RegisterAll(cleanupCron string) error {
	if _, err := s.Cron.AddFunc(cleanupCron, s.cleanupTask); err != nil {
		return fmt.Errorf("register cleanup task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Info("scheduler stopped")
}

// RunCleanupNow executes the cleanup immediately (manual trigger).
func (s *Scheduler) RunCleanupNow() {
	s.cleanupTask()
}

func (s *Scheduler) cleanupTask() {
	log.Info("running alert cleanup")
	cutoff := time.Now().Add(-s.Retention)

	pruned, err := s.Store.PruneTriggeredAlerts(cutoff)
	if err != nil {
		log.Errorf("prune triggered alerts: %v", err)
		return
	}
	if pruned > 0 {
		log.Infof("pruned %d triggered alerts older than %v", pruned, s.Retention)
		s.Hub.Toastf("info", "cleaned up %d old triggered alerts", pruned)
	}

	if err := s.Store.Maintain(); err != nil {
		log.Warnf("store maintenance: %v", err)
	}
}
