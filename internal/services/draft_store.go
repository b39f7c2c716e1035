package services

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tripnest/booking-service/internal/booking"
)

// ErrDraftNotFound is returned for unknown, closed or foreign drafts
var ErrDraftNotFound = errors.New("booking draft not found")

// DraftSession owns one in-progress draft. All transitions are serialized by
// its mutex; the OTP countdown is started and stopped as the draft enters
// and leaves otp_sent.
type DraftSession struct {
	mu           sync.Mutex
	id           string
	ownerID      string
	draft        booking.Draft
	countdown    *Countdown
	tickInterval time.Duration
	lastActivity time.Time
	closed       bool
	now          func() time.Time
}

// ID returns the draft id handed to the client
func (s *DraftSession) ID() string {
	return s.id
}

// Snapshot returns the current draft
func (s *DraftSession) Snapshot() booking.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Update applies fn to the draft under the session lock. On error the draft
// is left unchanged. fn may block on the network; other requests for the
// same draft wait.
func (s *DraftSession) Update(fn func(booking.Draft) (booking.Draft, error)) (booking.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return booking.Draft{}, ErrDraftNotFound
	}

	s.lastActivity = s.now()

	next, err := fn(s.draft)
	if err != nil {
		return s.draft, err
	}

	s.draft = next
	s.syncCountdown()
	return s.draft, nil
}

// syncCountdown keeps the running countdown in step with the verification
// state. A new request id restarts it. Caller holds mu.
func (s *DraftSession) syncCountdown() {
	v := s.draft.Verification
	if !v.CountdownActive() {
		s.stopCountdown()
		return
	}
	if s.countdown != nil && s.countdown.RequestID() == v.RequestID {
		return
	}
	s.stopCountdown()
	s.countdown = StartCountdown(v.RequestID, s.tickInterval, s.tick)
}

func (s *DraftSession) stopCountdown() {
	if s.countdown != nil {
		s.countdown.Stop()
		s.countdown = nil
	}
}

func (s *DraftSession) tick(c *Countdown) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.countdown != c {
		c.Stop()
		return
	}

	s.draft = s.draft.Tick()
	if !s.draft.Verification.CountdownActive() {
		s.stopCountdown()
	}
}

// CountdownRunning reports whether a countdown timer is live
func (s *DraftSession) CountdownRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countdown != nil
}

func (s *DraftSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopCountdown()
}

// idleSince reports whether the session has seen no update since cutoff.
// Sessions busy with a call hold mu and are skipped.
func (s *DraftSession) idleSince(cutoff time.Time) bool {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()
	return s.lastActivity.Before(cutoff)
}

// ownedBy reports whether requester may reach the draft. Guest drafts are
// reachable by anyone holding the id.
func (s *DraftSession) ownedBy(memberID string) bool {
	return s.ownerID == "" || s.ownerID == memberID
}

// DraftStore holds the open draft sessions of this process
type DraftStore struct {
	mu           sync.RWMutex
	sessions     map[string]*DraftSession
	tickInterval time.Duration
	now          func() time.Time
}

// NewDraftStore creates an empty store. tickInterval is the countdown
// resolution, one second in production.
func NewDraftStore(tickInterval time.Duration) *DraftStore {
	return &DraftStore{
		sessions:     make(map[string]*DraftSession),
		tickInterval: tickInterval,
		now:          time.Now,
	}
}

// Create registers a new session for draft. ownerID is the member id, or
// empty for guests.
func (s *DraftStore) Create(ownerID string, draft booking.Draft) *DraftSession {
	session := &DraftSession{
		id:           uuid.NewString(),
		ownerID:      ownerID,
		draft:        draft,
		tickInterval: s.tickInterval,
		lastActivity: s.now(),
		now:          s.now,
	}

	s.mu.Lock()
	s.sessions[session.id] = session
	s.mu.Unlock()

	return session
}

// Get returns the session with id if memberID may reach it
func (s *DraftStore) Get(id, memberID string) (*DraftSession, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || !session.ownedBy(memberID) {
		return nil, ErrDraftNotFound
	}
	return session, nil
}

// Close discards a draft and stops its countdown
func (s *DraftStore) Close(id, memberID string) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if !ok || !session.ownedBy(memberID) {
		s.mu.Unlock()
		return ErrDraftNotFound
	}
	delete(s.sessions, id)
	s.mu.Unlock()

	session.close()
	return nil
}

// EvictIdle closes sessions untouched for longer than ttl and returns how
// many were removed
func (s *DraftStore) EvictIdle(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.RLock()
	var idle []*DraftSession
	for _, session := range s.sessions {
		if session.idleSince(cutoff) {
			idle = append(idle, session)
		}
	}
	s.mu.RUnlock()

	s.mu.Lock()
	for _, session := range idle {
		delete(s.sessions, session.id)
	}
	s.mu.Unlock()

	for _, session := range idle {
		session.close()
	}
	return len(idle)
}

// CloseAll discards every draft, used on shutdown
func (s *DraftStore) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*DraftSession)
	s.mu.Unlock()

	for _, session := range sessions {
		session.close()
	}
}

// Len returns the number of open drafts
func (s *DraftStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
