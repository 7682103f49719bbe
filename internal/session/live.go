package session

import (
	"time"
)

// DefaultLiveDuration bounds a diagnostic live session. The countdown and
// the one-shot expiry timer both enforce it.
const DefaultLiveDuration = 300 * time.Second

// LiveMetric names one rolling telemetry chart.
type LiveMetric string

const (
	MetricSignal LiveMetric = "signal"
	MetricCCQ    LiveMetric = "ccq"
	MetricCPU    LiveMetric = "cpu"
	MetricMemory LiveMetric = "memory"
	MetricTxRate LiveMetric = "txRate"
	MetricRxRate LiveMetric = "rxRate"
)

// LiveMetrics lists every charted metric in display order.
var LiveMetrics = []LiveMetric{MetricSignal, MetricCCQ, MetricCPU, MetricMemory, MetricTxRate, MetricRxRate}

// TelemetrySample is one snapshot of the device's live counters, as returned
// by GET /devices/{id}/live.
type TelemetrySample struct {
	At        time.Time `json:"at"`
	SignalDBm float64   `json:"signal"`
	CCQ       float64   `json:"ccq"`
	CPULoad   float64   `json:"cpu"`
	MemoryUse float64   `json:"memory"`
	TxRate    float64   `json:"txRate"` // bits per second
	RxRate    float64   `json:"rxRate"`
}

func (s TelemetrySample) metric(m LiveMetric) float64 {
	switch m {
	case MetricSignal:
		return s.SignalDBm
	case MetricCCQ:
		return s.CCQ
	case MetricCPU:
		return s.CPULoad
	case MetricMemory:
		return s.MemoryUse
	case MetricTxRate:
		return s.TxRate
	case MetricRxRate:
		return s.RxRate
	}
	return 0
}

// LiveCallbacks connect a LiveSession to its owner. All callbacks run on the
// UI loop. Any of them may be nil.
type LiveCallbacks struct {
	// Poll asks the owner to fetch a telemetry snapshot and deliver the
	// result through HandleTelemetry.
	Poll func()
	// Tick reports the countdown after each 1 Hz decrement.
	Tick func(remaining int)
	// Update signals that the chart buffers changed.
	Update func()
	// Done fires exactly once, after every timer is cleared and the gate
	// released. The owner reloads the historical view here, so the UI
	// never shows a live countdown next to historical data.
	Done func(reason EndReason)
}

// LiveSession is a bounded high-frequency telemetry polling session. It owns
// three timers (repeating poll, 1 Hz countdown, one-shot expiry) which are
// either all live or all cleared.
type LiveSession struct {
	gate  *Gate
	sched Scheduler
	cb    LiveCallbacks

	poll      Handle
	countdown Handle
	expiry    Handle

	interval  int // seconds between polls, from device configuration
	remaining int // seconds until auto-expiry
	done      bool

	series map[LiveMetric]*SeriesWindow
}

// StartLive begins a diagnostic live session. It fails with ErrNotConfigured
// when the device carries no positive polling interval and with
// ErrSessionActive when the gate is held. On success the chart buffers are
// reinitialized, one poll is requested immediately and the three timers are
// armed.
func StartLive(gate *Gate, sched Scheduler, pollIntervalSeconds int, total time.Duration, cb LiveCallbacks) (*LiveSession, error) {
	if pollIntervalSeconds <= 0 {
		return nil, ErrNotConfigured
	}
	if !gate.Acquire() {
		return nil, ErrSessionActive
	}
	if total <= 0 {
		total = DefaultLiveDuration
	}

	s := &LiveSession{
		gate:      gate,
		sched:     sched,
		cb:        cb,
		interval:  pollIntervalSeconds,
		remaining: int(total / time.Second),
		series:    make(map[LiveMetric]*SeriesWindow, len(LiveMetrics)),
	}
	for _, m := range LiveMetrics {
		s.series[m] = NewSeriesWindow(SeriesCapacity)
	}

	s.requestPoll()
	s.poll = sched.Every(time.Duration(pollIntervalSeconds)*time.Second, s.requestPoll)
	s.countdown = sched.Every(time.Second, s.tick)
	s.expiry = sched.After(total, s.expire)
	return s, nil
}

// HandleTelemetry delivers the result of a poll. A transport failure or
// non-success response is terminal: a live session that cannot reach the
// device is assumed disconnected, not transiently slow.
func (s *LiveSession) HandleTelemetry(sample TelemetrySample, err error) {
	if s.done {
		return
	}
	if err != nil {
		s.end(EndReason{Kind: EndTransport, Err: err})
		return
	}
	at := sample.At
	if at.IsZero() {
		at = time.Now()
	}
	for _, m := range LiveMetrics {
		s.series[m].Push(at, sample.metric(m))
	}
	if s.cb.Update != nil {
		s.cb.Update()
	}
}

// Stop ends the session at the user's request. Safe to call more than once.
func (s *LiveSession) Stop() {
	s.end(EndReason{Kind: EndUser})
}

// Remaining returns the seconds left on the countdown.
func (s *LiveSession) Remaining() int {
	return s.remaining
}

// Active reports whether the session is still running.
func (s *LiveSession) Active() bool {
	return !s.done
}

// Series returns the window for one metric, or nil after the session ended.
func (s *LiveSession) Series(m LiveMetric) *SeriesWindow {
	return s.series[m]
}

func (s *LiveSession) requestPoll() {
	if s.done {
		return
	}
	if s.cb.Poll != nil {
		s.cb.Poll()
	}
}

func (s *LiveSession) tick() {
	if s.done {
		return
	}
	s.remaining--
	if s.remaining < 0 {
		s.remaining = 0
	}
	if s.cb.Tick != nil {
		s.cb.Tick(s.remaining)
	}
	if s.remaining == 0 {
		s.end(EndReason{Kind: EndExpired})
	}
}

func (s *LiveSession) expire() {
	s.end(EndReason{Kind: EndExpired})
}

// end clears all three handles, releases the gate and only then surfaces the
// outcome. Countdown reaching zero and the expiry timer firing both land
// here; the done flag makes the second arrival a no-op.
func (s *LiveSession) end(reason EndReason) {
	if s.done {
		return
	}
	s.done = true
	s.sched.Stop(s.poll)
	s.sched.Stop(s.countdown)
	s.sched.Stop(s.expiry)
	s.poll, s.countdown, s.expiry = NoHandle, NoHandle, NoHandle
	s.gate.Release()
	if s.cb.Done != nil {
		s.cb.Done(reason)
	}
}
