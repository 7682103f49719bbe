package session

import (
	"sync"
	"time"
)

// Handle identifies a scheduled timer. The zero value means "no timer".
type Handle int

// NoHandle is the zero Handle.
const NoHandle Handle = 0

// Scheduler is the timer surface the sessions run on. Implementations must
// deliver callbacks on the UI event loop so session state transitions never
// interleave. Tests substitute a deterministic fake.
type Scheduler interface {
	// Every runs fn repeatedly at interval d until the handle is stopped.
	Every(d time.Duration, fn func()) Handle
	// After runs fn once after d unless the handle is stopped first.
	After(d time.Duration, fn func()) Handle
	// Stop cancels a timer. Stopping an already-stopped or zero handle is
	// a no-op.
	Stop(h Handle)
}

// LoopScheduler is the production Scheduler. It backs timers with real
// time.Ticker/time.Timer goroutines but hands every callback to a dispatch
// function which is expected to re-enter the Bubble Tea loop (via
// Program.Send), keeping the cooperative scheduling model intact.
type LoopScheduler struct {
	mu       sync.Mutex
	dispatch func(func())
	next     Handle
	cancels  map[Handle]func()
}

// NewLoopScheduler creates an unbound scheduler. Bind must be called before
// any timers fire.
func NewLoopScheduler() *LoopScheduler {
	return &LoopScheduler{next: 1, cancels: make(map[Handle]func())}
}

// Bind sets the function used to deliver callbacks onto the UI loop.
func (s *LoopScheduler) Bind(dispatch func(func())) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatch = dispatch
}

// Every implements Scheduler.
func (s *LoopScheduler) Every(d time.Duration, fn func()) Handle {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	h := s.register(func() {
		ticker.Stop()
		close(done)
	})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.run(fn)
			}
		}
	}()
	return h
}

// After implements Scheduler.
func (s *LoopScheduler) After(d time.Duration, fn func()) Handle {
	var t *time.Timer
	h := s.register(func() {
		if t != nil {
			t.Stop()
		}
	})
	t = time.AfterFunc(d, func() {
		s.run(fn)
		s.unregister(h)
	})
	return h
}

// Stop implements Scheduler.
func (s *LoopScheduler) Stop(h Handle) {
	if h == NoHandle {
		return
	}
	s.mu.Lock()
	cancel, ok := s.cancels[h]
	delete(s.cancels, h)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// Active returns the number of live timers. Useful for leak checks.
func (s *LoopScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cancels)
}

func (s *LoopScheduler) register(cancel func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.next
	s.next++
	s.cancels[h] = cancel
	return h
}

func (s *LoopScheduler) unregister(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cancels, h)
}

func (s *LoopScheduler) run(fn func()) {
	s.mu.Lock()
	dispatch := s.dispatch
	s.mu.Unlock()
	if dispatch != nil {
		dispatch(fn)
	}
}
