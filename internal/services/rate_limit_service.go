package services

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"golang.org/x/time/rate"

	"github.com/tripnest/booking-service/internal/config"
	"github.com/tripnest/booking-service/internal/database"
)

// OTPRateLimiter guards the remote OTP endpoint per phone and per client IP.
// ReserveOTPRequest checks and claims a slot in one step, so concurrent
// requests for the same phone cannot all pass the check.
type OTPRateLimiter interface {
	ReserveOTPRequest(phone, ip string) (OTPSlot, error)
	CleanupExpiredRateLimits() (int64, error)
}

// OTPSlot is a claimed rate limit slot. Commit it once the code was sent,
// Release it if the send failed. Both are safe to call more than once.
type OTPSlot interface {
	Commit() error
	Release()
}

// noSlot is handed out when the limiter could not be consulted
type noSlot struct{}

func (noSlot) Commit() error { return nil }
func (noSlot) Release()      {}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxPhoneRequests int           // Max OTP requests per phone
	PhoneWindow      time.Duration // Time window for phone rate limit
	MaxIPRequests    int           // Max OTP requests per IP
	IPWindow         time.Duration // Time window for IP rate limit
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxPhoneRequests: 3,                // 3 requests
		PhoneWindow:      10 * time.Minute, // per 10 minutes
		MaxIPRequests:    10,               // 10 requests
		IPWindow:         1 * time.Hour,    // per hour
	}
}

// NewRateLimitConfig maps the OTP settings onto limiter windows
func NewRateLimitConfig(otp config.OTPConfig) RateLimitConfig {
	return RateLimitConfig{
		MaxPhoneRequests: otp.MaxPhoneRequests,
		PhoneWindow:      otp.PhoneWindow,
		MaxIPRequests:    otp.MaxIPRequests,
		IPWindow:         otp.IPWindow,
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Type       string // "phone" or "ip"
}

func (e *RateLimitError) Error() string {
	return e.Message
}

func phoneLimitError(retryAfter time.Time) *RateLimitError {
	return &RateLimitError{
		Message:    fmt.Sprintf("Too many verification requests for this phone number. Please try again after %s", retryAfter.Format("15:04:05")),
		RetryAfter: retryAfter,
		Type:       "phone",
	}
}

func ipLimitError(retryAfter time.Time) *RateLimitError {
	return &RateLimitError{
		Message:    fmt.Sprintf("Too many verification requests from this network. Please try again after %s", retryAfter.Format("15:04:05")),
		RetryAfter: retryAfter,
		Type:       "ip",
	}
}

// RateLimitService is the Postgres-backed sliding window limiter. Phones are
// stored as pseudonyms.
type RateLimitService struct {
	db     database.DB
	config RateLimitConfig
	hasher *PhoneHasher
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(db database.DB, config RateLimitConfig, hasher *PhoneHasher) *RateLimitService {
	return &RateLimitService{
		db:     db,
		config: config,
		hasher: hasher,
	}
}

// ReserveOTPRequest inserts the request rows first and then counts the
// window, so every concurrent request sees the rows of the ones before it.
// Rows of a refused request are removed again.
func (s *RateLimitService) ReserveOTPRequest(phone, ip string) (OTPSlot, error) {
	slot := &dbSlot{service: s}

	if phone != "" {
		if err := s.claim(slot, s.hasher.Hash(phone), "phone", s.config.MaxPhoneRequests, s.config.PhoneWindow, phoneLimitError); err != nil {
			slot.Release()
			return nil, err
		}
	}

	if ip != "" {
		if err := s.claim(slot, ip, "ip", s.config.MaxIPRequests, s.config.IPWindow, ipLimitError); err != nil {
			slot.Release()
			return nil, err
		}
	}

	return slot, nil
}

func (s *RateLimitService) claim(slot *dbSlot, identifier, identifierType string, maxRequests int, window time.Duration, limitErr func(time.Time) *RateLimitError) error {
	id, err := s.recordRequest(identifier, identifierType)
	if err != nil {
		return fmt.Errorf("failed to record %s request: %w", identifierType, err)
	}
	slot.ids = append(slot.ids, id)

	count, lastRequest, err := s.getRequestCount(identifier, identifierType, window)
	if err != nil {
		return fmt.Errorf("failed to check %s rate limit: %w", identifierType, err)
	}

	// the count includes the row just inserted
	if count > maxRequests {
		return limitErr(lastRequest.Add(window))
	}
	return nil
}

// getRequestCount gets the number of requests within the time window
func (s *RateLimitService) getRequestCount(identifier, identifierType string, window time.Duration) (int, time.Time, error) {
	windowStart := time.Now().Add(-window)

	query := `
		SELECT COUNT(*), COALESCE(MAX(created_at), NOW())
		FROM otp_rate_limits
		WHERE identifier = $1
		  AND identifier_type = $2
		  AND created_at > $3
	`

	var count int
	var lastRequest time.Time

	err := s.db.QueryRow(query, identifier, identifierType, windowStart).Scan(&count, &lastRequest)
	if err != nil && err != sql.ErrNoRows {
		return 0, time.Time{}, err
	}

	return count, lastRequest, nil
}

// recordRequest inserts a rate limit record and returns its id
func (s *RateLimitService) recordRequest(identifier, identifierType string) (int64, error) {
	query := `
		INSERT INTO otp_rate_limits (identifier, identifier_type, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id
	`

	var id int64
	err := s.db.QueryRow(query, identifier, identifierType).Scan(&id)
	return id, err
}

// deleteRequests removes rate limit records by id
func (s *RateLimitService) deleteRequests(ids []int64) error {
	_, err := s.db.Exec(`DELETE FROM otp_rate_limits WHERE id = ANY($1)`, pq.Array(ids))
	return err
}

// dbSlot holds the rows inserted for one request
type dbSlot struct {
	mu      sync.Mutex
	service *RateLimitService
	ids     []int64
	done    bool
}

// Commit keeps the rows; they expire with the window
func (d *dbSlot) Commit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.done = true
	return nil
}

// Release deletes the rows so a failed send does not count
func (d *dbSlot) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done || len(d.ids) == 0 {
		d.done = true
		return
	}
	d.done = true
	// best effort, a leftover row only makes the limit stricter
	_ = d.service.deleteRequests(d.ids)
}

// CleanupExpiredRateLimits removes rows older than the longest window
func (s *RateLimitService) CleanupExpiredRateLimits() (int64, error) {
	cutoffTime := time.Now().Add(-max(s.config.PhoneWindow, s.config.IPWindow))

	query := `
		DELETE FROM otp_rate_limits
		WHERE created_at < $1
	`

	result, err := s.db.Exec(query, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup rate limits: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// MemoryRateLimiter is the in-process limiter used when no database is
// configured. Each phone and IP gets a token bucket refilling at
// max/window, so bursts up to max are allowed and then one request per
// window/max. Reserved but uncommitted slots are held as pending and count
// against the bucket until they are committed or released.
type MemoryRateLimiter struct {
	mu       sync.Mutex
	config   RateLimitConfig
	hasher   *PhoneHasher
	limiters map[string]*rate.Limiter
	pending  map[string]int
	now      func() time.Time
}

// NewMemoryRateLimiter creates an in-memory limiter
func NewMemoryRateLimiter(config RateLimitConfig, hasher *PhoneHasher) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		config:   config,
		hasher:   hasher,
		limiters: make(map[string]*rate.Limiter),
		pending:  make(map[string]int),
		now:      time.Now,
	}
}

// ReserveOTPRequest claims one token of each bucket or refuses the request
func (m *MemoryRateLimiter) ReserveOTPRequest(phone, ip string) (OTPSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var keys []string
	if phone != "" {
		key := "phone:" + m.hasher.Hash(phone)
		if wait, limited := m.waitFor(key, m.limiter(key, m.config.MaxPhoneRequests, m.config.PhoneWindow), now); limited {
			return nil, phoneLimitError(now.Add(wait))
		}
		keys = append(keys, key)
	}
	if ip != "" {
		key := "ip:" + ip
		if wait, limited := m.waitFor(key, m.limiter(key, m.config.MaxIPRequests, m.config.IPWindow), now); limited {
			return nil, ipLimitError(now.Add(wait))
		}
		keys = append(keys, key)
	}

	for _, key := range keys {
		m.pending[key]++
	}
	return &memorySlot{limiter: m, keys: keys}, nil
}

// settle ends a reservation, consuming the tokens when commit is set
func (m *MemoryRateLimiter) settle(keys []string, commit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, key := range keys {
		if m.pending[key]--; m.pending[key] <= 0 {
			delete(m.pending, key)
		}
		if lim, ok := m.limiters[key]; ok && commit {
			lim.AllowN(now, 1)
		}
	}
}

// CleanupExpiredRateLimits drops buckets that have fully refilled
func (m *MemoryRateLimiter) CleanupExpiredRateLimits() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var removed int64
	for key, lim := range m.limiters {
		if m.pending[key] == 0 && lim.TokensAt(now) >= float64(lim.Burst()) {
			delete(m.limiters, key)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryRateLimiter) limiter(key string, maxRequests int, window time.Duration) *rate.Limiter {
	lim, ok := m.limiters[key]
	if !ok {
		maxRequests = max(maxRequests, 1)
		lim = rate.NewLimiter(rate.Every(window/time.Duration(maxRequests)), maxRequests)
		m.limiters[key] = lim
	}
	return lim
}

// waitFor returns how long until the bucket holds a whole token beyond the
// pending reservations
func (m *MemoryRateLimiter) waitFor(key string, lim *rate.Limiter, now time.Time) (time.Duration, bool) {
	tokens := lim.TokensAt(now) - float64(m.pending[key])
	if tokens >= 1 {
		return 0, false
	}
	seconds := (1 - tokens) / float64(lim.Limit())
	return time.Duration(seconds * float64(time.Second)), true
}

// memorySlot is a reservation against the in-memory buckets
type memorySlot struct {
	limiter *MemoryRateLimiter
	keys    []string
	once    sync.Once
}

// Commit consumes the reserved tokens
func (s *memorySlot) Commit() error {
	s.once.Do(func() { s.limiter.settle(s.keys, true) })
	return nil
}

// Release returns the reservation without consuming tokens
func (s *memorySlot) Release() {
	s.once.Do(func() { s.limiter.settle(s.keys, false) })
}
