// Package jobs runs periodic maintenance for the booking service on a cron
// schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/config"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/logger"
	"github.com/vinaykumargajjela/care-link-appointments/pkg/types"
)

// BucketCleaner drops rate limiter state for idle clients
type BucketCleaner interface {
	Cleanup(maxIdle time.Duration) int
}

// CacheSweeper removes expired cache entries
type CacheSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// StatsSource summarises the appointment ledger
type StatsSource interface {
	Stats(ctx context.Context) (*types.LedgerStats, error)
}

// Dependencies are the components maintained by the scheduler. Nil
// components have their job skipped.
type Dependencies struct {
	RateLimiter BucketCleaner
	Cache       CacheSweeper
	Stats       StatsSource
	// MaxIdle is how long a client may be silent before its rate limit
	// bucket is dropped.
	MaxIdle time.Duration
	Logger  *logger.Logger
}

// Scheduler owns the cron runner and the maintenance jobs
type Scheduler struct {
	cron    *cron.Cron
	config  config.JobsConfig
	limiter BucketCleaner
	cache   CacheSweeper
	stats   StatsSource
	maxIdle time.Duration
	logger  *logger.Logger
}

// NewScheduler creates a scheduler. Jobs are added by Register.
func NewScheduler(cfg config.JobsConfig, deps Dependencies) *Scheduler {
	cronLog := cronLogger{entry: deps.Logger.WithComponent("jobs")}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		config:  cfg,
		limiter: deps.RateLimiter,
		cache:   deps.Cache,
		stats:   deps.Stats,
		maxIdle: deps.MaxIdle,
		logger:  deps.Logger,
	}
}

// Register adds every configured job and returns how many were scheduled.
// An empty schedule disables its job.
func (s *Scheduler) Register() (int, error) {
	jobs := []struct {
		name     string
		schedule string
		enabled  bool
		run      func()
	}{
		{"rate_limit_cleanup", s.config.RateLimitCleanup, s.limiter != nil, s.CleanupRateLimiter},
		{"cache_sweep", s.config.CacheSweep, s.cache != nil, func() { s.SweepCache(context.Background()) }},
		{"daily_stats_summary", s.config.DailyStatsSummary, s.stats != nil, func() { s.LogDailyStats(context.Background()) }},
	}

	registered := 0
	for _, job := range jobs {
		if !job.enabled || job.schedule == "" {
			continue
		}
		if _, err := s.cron.AddFunc(job.schedule, job.run); err != nil {
			return registered, fmt.Errorf("invalid schedule %q for job %s: %w", job.schedule, job.name, err)
		}
		s.logger.WithFields(map[string]interface{}{
			"job":      job.name,
			"schedule": job.schedule,
		}).Info("Scheduled maintenance job")
		registered++
	}
	return registered, nil
}

// Start runs the scheduler in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs or ctx, whichever ends first
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CleanupRateLimiter drops buckets of idle clients
func (s *Scheduler) CleanupRateLimiter() {
	removed := s.limiter.Cleanup(s.maxIdle)
	s.logger.WithField("removed", removed).Debug("Rate limiter cleanup finished")
}

// SweepCache removes expired appointment cache entries
func (s *Scheduler) SweepCache(ctx context.Context) {
	removed, err := s.cache.Sweep(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Appointment cache sweep failed")
		return
	}
	s.logger.WithField("removed", removed).Debug("Appointment cache sweep finished")
}

// LogDailyStats writes a summary of the ledger to the log
func (s *Scheduler) LogDailyStats(ctx context.Context) {
	stats, err := s.stats.Stats(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to compute daily statistics")
		return
	}
	s.logger.WithFields(map[string]interface{}{
		"total_appointments": stats.TotalAppointments,
		"total_users":        stats.TotalUsers,
		"appointments_today": stats.AppointmentsToday,
		"pending":            stats.ByStatus[types.StatusPending],
		"confirmed":          stats.ByStatus[types.StatusConfirmed],
		"cancelled":          stats.ByStatus[types.StatusCancelled],
	}).Info("Daily appointment summary")
}

// cronLogger adapts a logrus entry to cron.Logger
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}
