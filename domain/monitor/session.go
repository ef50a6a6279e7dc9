package monitor

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	// sleepSlice bounds cancellation latency for ordinary waits.
	sleepSlice = 50 * time.Millisecond
	// stopGrace is how long Stop waits for the worker to observe the flag.
	stopGrace = time.Second
)

// Session is the handle for one running monitor goroutine. The caller that
// started the monitor owns the session and calls Stop exactly once; the
// worker observes the flag cooperatively and is never force-killed.
type Session struct {
	ID      string
	stopped atomic.Bool
	done    chan struct{}
}

func newSession() *Session {
	return &Session{ID: uuid.NewString(), done: make(chan struct{})}
}

// Stopped reports whether cancellation was requested.
func (s *Session) Stopped() bool { return s.stopped.Load() }

// Done is closed when the worker goroutine has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Stop requests cancellation and waits up to a short grace period for the
// worker to exit. If the worker is wedged in an external call it is left to
// finish on its own; its resources are reclaimed when it eventually returns.
func (s *Session) Stop() {
	s.stopped.Store(true)
	select {
	case <-s.done:
	case <-time.After(stopGrace):
	}
}

// sleep waits for d in short slices, checking the stop flag between slices.
// It returns true when cancellation was requested.
func (s *Session) sleep(d time.Duration) bool {
	return s.sleepSliced(d, sleepSlice)
}

func (s *Session) sleepSliced(d, slice time.Duration) bool {
	if d <= 0 {
		return s.stopped.Load()
	}
	deadline := time.Now().Add(d)
	for {
		if s.stopped.Load() {
			return true
		}
		remain := time.Until(deadline)
		if remain <= 0 {
			return s.stopped.Load()
		}
		if remain < slice {
			time.Sleep(remain)
		} else {
			time.Sleep(slice)
		}
	}
}
