package services

import (
	"sync"
	"time"
)

// Countdown is a cancellable ticker driving the OTP resend countdown of one
// draft session. Stop never waits for the goroutine, so it is safe to call
// while holding the session lock the tick callback also takes.
type Countdown struct {
	requestID int64
	stopCh    chan struct{}
	once      sync.Once
}

// StartCountdown calls tick every interval until Stop. The handle is passed
// to tick so the owner can drop ticks from a replaced countdown.
func StartCountdown(requestID int64, interval time.Duration, tick func(*Countdown)) *Countdown {
	c := &Countdown{
		requestID: requestID,
		stopCh:    make(chan struct{}),
	}
	go c.run(interval, tick)
	return c
}

// RequestID is the OTP request the countdown belongs to
func (c *Countdown) RequestID() int64 {
	return c.requestID
}

// Stop cancels the countdown. Calling it more than once is a no-op.
func (c *Countdown) Stop() {
	c.once.Do(func() {
		close(c.stopCh)
	})
}

// Stopped reports whether Stop has been called
func (c *Countdown) Stopped() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func (c *Countdown) run(interval time.Duration, tick func(*Countdown)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// a tick racing Stop must not reach the owner
			if c.Stopped() {
				return
			}
			tick(c)
		case <-c.stopCh:
			return
		}
	}
}
