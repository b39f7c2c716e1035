package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tripnest/booking-service/internal/database"
	"github.com/tripnest/booking-service/internal/utils"
)

// RequestMeta identifies the client behind an audited action
type RequestMeta struct {
	MemberID  string
	IPAddress string
	UserAgent string
}

// AuditEvent represents a booking or verification event to be logged
type AuditEvent struct {
	MemberID   *string                // nil for guests
	Action     string                 // e.g. "otp_request", "booking_submit_success"
	EntityType string                 // "otp", "rate_limit", "booking"
	EntityID   *string                // draft ID
	IPAddress  string
	UserAgent  string
	Details    map[string]interface{} // stored as JSONB
}

// AuditService records audit events. With no database it writes them to the
// logger instead.
type AuditService struct {
	db     database.DB
	hasher *PhoneHasher
	logger *logrus.Logger
}

// NewAuditService creates a new audit service. db may be nil.
func NewAuditService(db database.DB, hasher *PhoneHasher, logger *logrus.Logger) *AuditService {
	return &AuditService{
		db:     db,
		hasher: hasher,
		logger: logger,
	}
}

// LogOTPRequest logs an OTP request made for a draft
func (s *AuditService) LogOTPRequest(draftID, phone string, meta RequestMeta, success bool, reason string) error {
	details := map[string]interface{}{
		"phone_hash":  s.hasher.Hash(phone),
		"success":     success,
		"device_info": utils.ParseUserAgent(meta.UserAgent),
	}
	if reason != "" {
		details["reason"] = reason
	}

	return s.logEvent(s.event(meta, "otp_request", "otp", draftID, details))
}

// LogOTPVerification logs an OTP verification attempt
func (s *AuditService) LogOTPVerification(draftID, phone string, meta RequestMeta, success bool, failureReason string) error {
	details := map[string]interface{}{
		"phone_hash":  s.hasher.Hash(phone),
		"success":     success,
		"device_info": utils.ParseUserAgent(meta.UserAgent),
	}
	if !success && failureReason != "" {
		details["failure_reason"] = failureReason
	}

	action := "otp_verify_failed"
	if success {
		action = "otp_verify_success"
	}

	return s.logEvent(s.event(meta, action, "otp", draftID, details))
}

// LogRateLimitViolation logs a rejected OTP request
func (s *AuditService) LogRateLimitViolation(draftID, phone string, meta RequestMeta, limitType string, retryAfter time.Time) error {
	details := map[string]interface{}{
		"phone_hash":  s.hasher.Hash(phone),
		"limit_type":  limitType,
		"retry_after": retryAfter.UTC().Format(time.RFC3339),
		"device_info": utils.ParseUserAgent(meta.UserAgent),
	}

	return s.logEvent(s.event(meta, "rate_limit_violation", "rate_limit", draftID, details))
}

// LogBookingSubmission logs the outcome of a booking creation call
func (s *AuditService) LogBookingSubmission(draftID string, meta RequestMeta, product string, total int64, bookingCode string, failureReason string) error {
	success := failureReason == ""
	details := map[string]interface{}{
		"product":     product,
		"grand_total": total,
		"success":     success,
		"device_info": utils.ParseUserAgent(meta.UserAgent),
	}
	if success {
		details["booking_code"] = bookingCode
	} else {
		details["failure_reason"] = failureReason
	}

	action := "booking_submit_failed"
	if success {
		action = "booking_submit_success"
	}

	return s.logEvent(s.event(meta, action, "booking", draftID, details))
}

// CleanupOldAuditLogs removes audit logs older than the specified duration
func (s *AuditService) CleanupOldAuditLogs(olderThan time.Duration) (int64, error) {
	if s.db == nil {
		return 0, nil
	}

	cutoffTime := time.Now().Add(-olderThan)

	query := `
		DELETE FROM audit_logs
		WHERE created_at < $1
	`

	result, err := s.db.Exec(query, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

func (s *AuditService) event(meta RequestMeta, action, entityType, draftID string, details map[string]interface{}) AuditEvent {
	event := AuditEvent{
		Action:     action,
		EntityType: entityType,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		Details:    details,
	}
	if meta.MemberID != "" {
		memberID := meta.MemberID
		event.MemberID = &memberID
	}
	if draftID != "" {
		event.EntityID = &draftID
	}
	return event
}

// logEvent writes to the audit_logs table, or to the logger without a database
func (s *AuditService) logEvent(event AuditEvent) error {
	if s.db == nil {
		s.logger.WithFields(logrus.Fields{
			"audit":       true,
			"action":      event.Action,
			"entity_type": event.EntityType,
			"entity_id":   event.EntityID,
			"ip_address":  event.IPAddress,
			"details":     event.Details,
		}).Info("Audit event")
		return nil
	}

	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	query := `
		INSERT INTO audit_logs (member_id, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	_, err = s.db.Exec(
		query,
		event.MemberID,
		event.Action,
		event.EntityType,
		event.EntityID,
		event.IPAddress,
		event.UserAgent,
		details,
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}

	return nil
}
