package services

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripnest/booking-service/internal/database"
)

type stubLimiter struct {
	removed int64
	err     error
	calls   int
}

func (s *stubLimiter) ReserveOTPRequest(phone, ip string) (OTPSlot, error) { return noSlot{}, nil }

func (s *stubLimiter) CleanupExpiredRateLimits() (int64, error) {
	s.calls++
	return s.removed, s.err
}

func quietLogger() (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	return logger, buf
}

func TestCronService_StartRejectsBadSchedule(t *testing.T) {
	logger, _ := quietLogger()
	svc := NewCronService(NewDraftStore(time.Hour), &stubLimiter{}, NewAuditService(nil, testHasher(t), logger), CronConfig{
		DraftIdleTTL:  30 * time.Minute,
		SweepSchedule: "not a schedule",
	}, logger)

	err := svc.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "draft sweeper")
}

func TestCronService_StartStop(t *testing.T) {
	logger, _ := quietLogger()
	svc := NewCronService(NewDraftStore(time.Hour), &stubLimiter{}, NewAuditService(nil, testHasher(t), logger), CronConfig{
		DraftIdleTTL:   30 * time.Minute,
		SweepSchedule:  "@every 1m",
		AuditRetention: 90 * 24 * time.Hour,
	}, logger)

	require.NoError(t, svc.Start())
	assert.Len(t, svc.cron.Entries(), 3)
	svc.Stop()
}

func TestCronService_EvictIdleDraftsJob(t *testing.T) {
	logger, logs := quietLogger()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewDraftStore(time.Hour)
	store.now = func() time.Time { return now }

	store.Create("", storeTestDraft())
	now = now.Add(time.Hour)

	svc := NewCronService(store, &stubLimiter{}, nil, CronConfig{DraftIdleTTL: 30 * time.Minute}, logger)
	svc.evictIdleDraftsJob()

	assert.Equal(t, 0, store.Len())
	assert.Contains(t, logs.String(), "Evicted idle booking drafts")
}

func TestCronService_CleanupRateLimitsJob(t *testing.T) {
	logger, logs := quietLogger()
	limiter := &stubLimiter{err: errors.New("db down")}

	svc := NewCronService(NewDraftStore(time.Hour), limiter, nil, CronConfig{}, logger)
	svc.cleanupRateLimitsJob()

	assert.Equal(t, 1, limiter.calls)
	assert.Contains(t, logs.String(), "Failed to cleanup rate limits")
}

func TestCronService_PruneAuditLogsJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	logger, logs := quietLogger()
	audit := NewAuditService(database.NewFromSQL(db, "sqlmock"), testHasher(t), logger)

	mock.ExpectExec("DELETE FROM audit_logs").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 4))

	svc := NewCronService(NewDraftStore(time.Hour), &stubLimiter{}, audit, CronConfig{AuditRetention: 24 * time.Hour}, logger)
	svc.pruneAuditLogsJob()

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, logs.String(), "Pruned audit logs")
}
