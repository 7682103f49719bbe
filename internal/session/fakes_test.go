package session

import (
	"encoding/json"
	"time"
)

// fakeScheduler is a deterministic Scheduler driven by Advance. It counts
// timer creations and stops so tests can prove handle conservation.
type fakeScheduler struct {
	next    Handle
	timers  map[Handle]*fakeTimer
	created int
	stopped int
}

type fakeTimer struct {
	interval time.Duration
	fn       func()
	repeat   bool
	elapsed  time.Duration
	dead     bool
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{next: 1, timers: make(map[Handle]*fakeTimer)}
}

func (f *fakeScheduler) Every(d time.Duration, fn func()) Handle {
	return f.add(&fakeTimer{interval: d, fn: fn, repeat: true})
}

func (f *fakeScheduler) After(d time.Duration, fn func()) Handle {
	return f.add(&fakeTimer{interval: d, fn: fn})
}

func (f *fakeScheduler) Stop(h Handle) {
	if h == NoHandle {
		return
	}
	if t, ok := f.timers[h]; ok && !t.dead {
		t.dead = true
		f.stopped++
	}
}

func (f *fakeScheduler) add(t *fakeTimer) Handle {
	h := f.next
	f.next++
	f.timers[h] = t
	f.created++
	return h
}

// active returns the number of live timers.
func (f *fakeScheduler) active() int {
	n := 0
	for _, t := range f.timers {
		if !t.dead {
			n++
		}
	}
	return n
}

// advance moves fake time forward in one-second steps, firing due timers in
// creation order. All session intervals are whole seconds.
func (f *fakeScheduler) advance(d time.Duration) {
	steps := int(d / time.Second)
	for i := 0; i < steps; i++ {
		var due []func()
		for h := Handle(1); h < f.next; h++ {
			t, ok := f.timers[h]
			if !ok || t.dead {
				continue
			}
			t.elapsed += time.Second
			if t.elapsed >= t.interval {
				due = append(due, t.fn)
				if t.repeat {
					t.elapsed = 0
				} else {
					t.dead = true
					f.stopped++
				}
			}
		}
		for _, fn := range due {
			fn()
		}
	}
}

// fakeChannel records everything sent on a scan channel.
type fakeChannel struct {
	sentJSON []string
	sentText []string
	closed   int
	sendErr  error
}

func (c *fakeChannel) SendJSON(v any) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.sentJSON = append(c.sentJSON, string(data))
	return nil
}

func (c *fakeChannel) SendText(s string) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sentText = append(c.sentText, s)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed++
	return nil
}
