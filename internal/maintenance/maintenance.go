// Package maintenance runs the server's periodic housekeeping jobs.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	sessionSchedule   = "0 0 * * * *"    // hourly
	rateLimitSchedule = "0 */10 * * * *" // every 10 minutes
)

// SessionPurger deletes sessions past their expiry.
type SessionPurger interface {
	DeleteExpired() (int64, error)
}

// LimiterSweeper drops rate limiter windows that have elapsed.
type LimiterSweeper interface {
	Cleanup() int
}

// Backuper takes an off-site snapshot and prunes old ones.
type Backuper interface {
	RunNow(ctx context.Context) (string, error)
	Cleanup(ctx context.Context) (int, error)
}

// Manager owns the cron scheduler and the jobs registered on it.
type Manager struct {
	cron     *cron.Cron
	sessions SessionPurger
	limiter  LimiterSweeper
	logger   *slog.Logger

	backups        Backuper
	backupSchedule string
}

func New(sessions SessionPurger, limiter LimiterSweeper, logger *slog.Logger) *Manager {
	return &Manager{
		cron:     cron.New(cron.WithSeconds()),
		sessions: sessions,
		limiter:  limiter,
		logger:   logger,
	}
}

// ScheduleBackups adds a backup job on the given six-field cron schedule.
// It must be called before Start.
func (m *Manager) ScheduleBackups(b Backuper, schedule string) {
	m.backups = b
	m.backupSchedule = schedule
}

// Start registers every job, runs the session purge once so a restart does
// not wait an hour for it, and starts the scheduler.
func (m *Manager) Start() error {
	if err := m.registerJobs(); err != nil {
		return err
	}
	m.PurgeSessions()
	m.cron.Start()
	m.logger.Info("maintenance jobs started", "jobs", len(m.cron.Entries()))
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (m *Manager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.logger.Info("maintenance jobs stopped")
}

func (m *Manager) registerJobs() error {
	if _, err := m.cron.AddFunc(sessionSchedule, m.PurgeSessions); err != nil {
		return err
	}
	if _, err := m.cron.AddFunc(rateLimitSchedule, m.SweepRateLimits); err != nil {
		return err
	}
	if m.backups != nil {
		if _, err := m.cron.AddFunc(m.backupSchedule, m.RunBackup); err != nil {
			return fmt.Errorf("backup schedule %q: %w", m.backupSchedule, err)
		}
	}
	return nil
}

// PurgeSessions deletes expired sessions.
func (m *Manager) PurgeSessions() {
	start := time.Now()
	n, err := m.sessions.DeleteExpired()
	if err != nil {
		m.logger.Error("purge expired sessions", "error", err)
		return
	}
	m.logger.Info("purged expired sessions", "deleted", n, "duration", time.Since(start))
}

func (m *Manager) SweepRateLimits() {
	if n := m.limiter.Cleanup(); n > 0 {
		m.logger.Debug("swept rate limiter", "removed", n)
	}
}

// RunBackup uploads a snapshot, then prunes snapshots past retention. A
// failed upload skips the prune.
func (m *Manager) RunBackup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	start := time.Now()
	key, err := m.backups.RunNow(ctx)
	if err != nil {
		m.logger.Error("backup failed", "error", err)
		return
	}
	removed, err := m.backups.Cleanup(ctx)
	if err != nil {
		m.logger.Warn("prune old backups", "error", err)
	}
	m.logger.Info("backup complete", "key", key, "pruned", removed, "duration", time.Since(start))
}
