package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripnest/booking-service/internal/booking"
	"github.com/tripnest/booking-service/pkg/tourapi"
)

func storeTestDraft() booking.Draft {
	periods := []tourapi.TravelPeriod{{
		ID:         10,
		StartDate:  "2026-05-01",
		EndDate:    "2026-05-06",
		Capacity:   30,
		SaleStatus: tourapi.SaleStatusOpen,
		Offer:      &tourapi.Offer{NetPriceAdult: 20000},
	}}
	return booking.NewTourDraft("T-100", periods, nil, booking.DefaultPricingPolicy())
}

func otpSent(requestID int64, expiresIn int) func(booking.Draft) (booking.Draft, error) {
	return func(d booking.Draft) (booking.Draft, error) {
		return d.OTPSent("0771234567", requestID, expiresIn), nil
	}
}

func TestDraftStore_CreateAndGet(t *testing.T) {
	store := NewDraftStore(time.Second)

	guest := store.Create("", storeTestDraft())
	member := store.Create("member-1", storeTestDraft())
	assert.NotEqual(t, guest.ID(), member.ID())
	assert.Equal(t, 2, store.Len())

	got, err := store.Get(guest.ID(), "")
	require.NoError(t, err)
	assert.Same(t, guest, got)

	// guest drafts are reachable by whoever holds the id
	_, err = store.Get(guest.ID(), "member-2")
	assert.NoError(t, err)

	_, err = store.Get(member.ID(), "member-1")
	assert.NoError(t, err)

	for _, requester := range []string{"", "member-2"} {
		_, err = store.Get(member.ID(), requester)
		assert.ErrorIs(t, err, ErrDraftNotFound)
	}

	_, err = store.Get("missing", "")
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestDraftSession_UpdateKeepsDraftOnError(t *testing.T) {
	store := NewDraftStore(time.Second)
	session := store.Create("", storeTestDraft())

	boom := errors.New("boom")
	got, err := session.Update(func(d booking.Draft) (booking.Draft, error) {
		d.Consent = true
		return d, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, got.Consent)
	assert.False(t, session.Snapshot().Consent)

	got, err = session.Update(func(d booking.Draft) (booking.Draft, error) {
		return d.SetConsent(true)
	})
	require.NoError(t, err)
	assert.True(t, got.Consent)
	assert.True(t, session.Snapshot().Consent)
}

func TestDraftSession_CountdownRunsToZero(t *testing.T) {
	store := NewDraftStore(5 * time.Millisecond)
	session := store.Create("", storeTestDraft())

	_, err := session.Update(otpSent(5, 3))
	require.NoError(t, err)
	assert.True(t, session.CountdownRunning())

	assert.Eventually(t, func() bool {
		v := session.Snapshot().Verification
		return v.RemainingSeconds == 0 && v.CanResend
	}, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return !session.CountdownRunning() }, time.Second, time.Millisecond)

	// verification stays possible after the countdown ends
	v := session.Snapshot().Verification
	assert.Equal(t, booking.VerificationOTPSent, v.Status)
	_, err = session.Snapshot().VerifyAllowed("123456")
	assert.NoError(t, err)
}

func TestDraftSession_PhoneEditStopsCountdown(t *testing.T) {
	store := NewDraftStore(time.Hour)
	session := store.Create("", storeTestDraft())

	_, err := session.Update(otpSent(5, 60))
	require.NoError(t, err)
	require.True(t, session.CountdownRunning())

	got, err := session.Update(func(d booking.Draft) (booking.Draft, error) {
		c := d.Contact
		c.Phone = "0719999999"
		return d.SetContact(c)
	})
	require.NoError(t, err)
	assert.Equal(t, booking.VerificationIdle, got.Verification.Status)
	assert.False(t, session.CountdownRunning())
}

func TestDraftSession_ResendRestartsCountdown(t *testing.T) {
	store := NewDraftStore(time.Hour)
	session := store.Create("", storeTestDraft())

	_, err := session.Update(otpSent(5, 60))
	require.NoError(t, err)
	first := session.countdown

	// an update that keeps the same request id leaves the timer alone
	_, err = session.Update(func(d booking.Draft) (booking.Draft, error) { return d.SetConsent(true) })
	require.NoError(t, err)
	assert.Same(t, first, session.countdown)

	_, err = session.Update(otpSent(6, 60))
	require.NoError(t, err)
	assert.True(t, first.Stopped())
	assert.NotSame(t, first, session.countdown)
	assert.Equal(t, int64(6), session.countdown.RequestID())
}

func TestDraftSession_StaleTickIgnored(t *testing.T) {
	store := NewDraftStore(time.Hour)
	session := store.Create("", storeTestDraft())

	_, err := session.Update(otpSent(5, 60))
	require.NoError(t, err)
	stale := session.countdown
	_, err = session.Update(otpSent(6, 60))
	require.NoError(t, err)

	session.tick(stale)
	assert.Equal(t, 60, session.Snapshot().Verification.RemainingSeconds)

	session.tick(session.countdown)
	assert.Equal(t, 59, session.Snapshot().Verification.RemainingSeconds)
}

func TestDraftStore_Close(t *testing.T) {
	store := NewDraftStore(time.Hour)
	session := store.Create("member-1", storeTestDraft())
	_, err := session.Update(otpSent(5, 60))
	require.NoError(t, err)
	timer := session.countdown

	assert.ErrorIs(t, store.Close(session.ID(), "member-2"), ErrDraftNotFound)
	require.NoError(t, store.Close(session.ID(), "member-1"))

	assert.True(t, timer.Stopped())
	assert.Equal(t, 0, store.Len())

	_, err = session.Update(func(d booking.Draft) (booking.Draft, error) { return d, nil })
	assert.ErrorIs(t, err, ErrDraftNotFound)
	assert.ErrorIs(t, store.Close(session.ID(), "member-1"), ErrDraftNotFound)
}

func TestDraftStore_EvictIdle(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewDraftStore(time.Hour)
	store.now = func() time.Time { return now }

	stale := store.Create("", storeTestDraft())
	_, err := stale.Update(otpSent(5, 60))
	require.NoError(t, err)
	timer := stale.countdown

	now = now.Add(20 * time.Minute)
	fresh := store.Create("", storeTestDraft())

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, store.EvictIdle(30*time.Minute))

	_, err = store.Get(stale.ID(), "")
	assert.ErrorIs(t, err, ErrDraftNotFound)
	assert.True(t, timer.Stopped())

	_, err = store.Get(fresh.ID(), "")
	assert.NoError(t, err)
}

func TestDraftStore_CloseAll(t *testing.T) {
	store := NewDraftStore(time.Hour)
	session := store.Create("", storeTestDraft())
	_, err := session.Update(otpSent(5, 60))
	require.NoError(t, err)
	timer := session.countdown

	store.CloseAll()
	assert.Equal(t, 0, store.Len())
	assert.True(t, timer.Stopped())
}
