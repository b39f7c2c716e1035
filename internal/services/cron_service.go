package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronConfig holds the schedules of the background jobs
type CronConfig struct {
	DraftIdleTTL   time.Duration
	SweepSchedule  string // idle draft eviction, e.g. "@every 1m"
	AuditRetention time.Duration
}

// CronService manages scheduled background jobs
type CronService struct {
	cron    *cron.Cron
	store   *DraftStore
	limiter OTPRateLimiter
	audit   *AuditService
	config  CronConfig
	logger  *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(store *DraftStore, limiter OTPRateLimiter, audit *AuditService, config CronConfig, logger *logrus.Logger) *CronService {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronService{
		cron:    c,
		store:   store,
		limiter: limiter,
		audit:   audit,
		config:  config,
		logger:  logger,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	// Job 1: Evict abandoned drafts and stop their countdowns
	_, err := s.cron.AddFunc(s.config.SweepSchedule, s.evictIdleDraftsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule draft sweeper job: %w", err)
	}
	s.logger.WithField("schedule", s.config.SweepSchedule).Info("Scheduled: Evict idle booking drafts")

	// Job 2: Drop expired OTP rate limit windows
	// "0 */10 * * * *" = every 10 minutes
	_, err = s.cron.AddFunc("0 */10 * * * *", s.cleanupRateLimitsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule rate limit cleanup job: %w", err)
	}
	s.logger.Info("Scheduled: Cleanup OTP rate limits (every 10 minutes)")

	// Job 3: Prune audit logs daily at 3 AM
	// "0 0 3 * * *" = At 3:00 AM every day
	if s.config.AuditRetention > 0 {
		_, err = s.cron.AddFunc("0 0 3 * * *", s.pruneAuditLogsJob)
		if err != nil {
			return fmt.Errorf("failed to schedule audit prune job: %w", err)
		}
		s.logger.Info("Scheduled: Prune audit logs (Daily at 3:00 AM)")
	}

	s.cron.Start()
	s.logger.Info("Cron service started successfully")

	return nil
}

// Stop stops all cron jobs and waits for running ones to finish
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// evictIdleDraftsJob closes drafts untouched for longer than the idle TTL
func (s *CronService) evictIdleDraftsJob() {
	evicted := s.store.EvictIdle(s.config.DraftIdleTTL)
	if evicted == 0 {
		return
	}
	s.logger.WithFields(logrus.Fields{
		"evicted": evicted,
		"open":    s.store.Len(),
	}).Info("[CRON] Evicted idle booking drafts")
}

// cleanupRateLimitsJob removes rate limit entries outside every window
func (s *CronService) cleanupRateLimitsJob() {
	removed, err := s.limiter.CleanupExpiredRateLimits()
	if err != nil {
		s.logger.WithError(err).Error("[CRON ERROR] Failed to cleanup rate limits")
		return
	}
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("[CRON] Cleaned up OTP rate limits")
	}
}

// pruneAuditLogsJob deletes audit rows past the retention period
func (s *CronService) pruneAuditLogsJob() {
	startTime := time.Now()

	deleted, err := s.audit.CleanupOldAuditLogs(s.config.AuditRetention)
	if err != nil {
		s.logger.WithError(err).Error("[CRON ERROR] Failed to prune audit logs")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"deleted":  deleted,
		"duration": time.Since(startTime).String(),
	}).Info("[CRON] Pruned audit logs")
}
