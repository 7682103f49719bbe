package session

import (
	"encoding/json"
	"time"
)

// Stage is a state of the spectral scan protocol machine. Stages only move
// forward, except that any stage may drop straight to StageTerminal.
type Stage int

const (
	StageConnecting Stage = iota
	StageAwaitingConfig
	StageStarting
	StagePreparing
	StageScanning
	StageTerminal
)

var stageNames = map[Stage]string{
	StageConnecting:     "connecting",
	StageAwaitingConfig: "waiting_config",
	StageStarting:       "starting",
	StagePreparing:      "preparing",
	StageScanning:       "scanning",
	StageTerminal:       "terminal",
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s Stage) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Server→client scan statuses. Anything else is ignored so newer firmware
// can add statuses without breaking older clients.
const (
	StatusConnecting    = "connecting"
	StatusWaitingConfig = "waiting_config"
	StatusStarting      = "starting"
	StatusPreparing     = "preparing"
	StatusScanning      = "scanning"
	StatusData          = "data"
	StatusCompleted     = "completed"
	StatusStopped       = "stopped"
	StatusUnsupported   = "unsupported"
	StatusError         = "error"
)

// StopControl is the literal control message a client sends to cancel a
// running scan.
const StopControl = "stop"

// ScanMessage is the server→client envelope, discriminated by Status. Only
// the fields relevant to a given status are populated.
type ScanMessage struct {
	Status          string  `json:"status"`
	Interface       string  `json:"interface,omitempty"`
	DurationSeconds int     `json:"durationSeconds,omitempty"`
	Frequency       float64 `json:"frequency"`
	Signal          float64 `json:"signal"`
	Peak            float64 `json:"peak"`
	Message         string  `json:"message,omitempty"`
}

// ScanConfig is the client→server configuration payload, sent exactly once
// when the server asks for it. A nil Interface lets the device pick.
type ScanConfig struct {
	Interface       *string `json:"interface"`
	DurationSeconds int     `json:"durationSeconds"`
}

// ScanChannel is the persistent message stream to the scan proxy. The
// production implementation wraps a WebSocket; tests use an in-memory fake.
type ScanChannel interface {
	SendJSON(v any) error
	SendText(s string) error
	Close() error
}

// ScanCallbacks connect a ScanSession to its owner. All run on the UI loop.
type ScanCallbacks struct {
	// Stage reports every stage transition, terminal included.
	Stage func(Stage)
	// Tick reports the capture countdown while scanning.
	Tick func(remaining int)
	// Data signals that the spectrum buffer changed.
	Data func()
	// Done fires exactly once with the terminal outcome, after the
	// channel is closed, the countdown cleared and the gate released.
	Done func(reason EndReason)
}

// ScanSession drives the client side of the spectral scan handshake and
// ingests streamed samples. Messages are processed strictly in arrival
// order; the machine never buffers beyond the current callback.
type ScanSession struct {
	gate  *Gate
	sched Scheduler
	cb    ScanCallbacks

	stage     Stage
	iface     string // "" lets the device choose
	duration  int    // requested capture seconds
	remaining int
	countdown Handle

	ch         ScanChannel
	sentConfig bool
	sentStop   bool

	spectrum *SpectrumWindow
}

// StartScan claims the gate and creates the machine in StageConnecting. The
// caller dials the channel and attaches it with AttachChannel; a dial
// failure must be reported through HandleDisconnect so resources unwind the
// same way as any other connectivity loss.
func StartScan(gate *Gate, sched Scheduler, iface string, durationSeconds int, cb ScanCallbacks) (*ScanSession, error) {
	if !gate.Acquire() {
		return nil, ErrSessionActive
	}
	s := &ScanSession{
		gate:     gate,
		sched:    sched,
		cb:       cb,
		stage:    StageConnecting,
		iface:    iface,
		duration: durationSeconds,
		spectrum: NewSpectrumWindow(),
	}
	s.announce(StageConnecting)
	return s, nil
}

// AttachChannel hands the opened stream to the machine. If the session went
// terminal while the dial was in flight, the channel is closed immediately.
func (s *ScanSession) AttachChannel(ch ScanChannel) {
	if s.stage == StageTerminal {
		ch.Close()
		return
	}
	s.ch = ch
}

// Stage returns the machine's current stage.
func (s *ScanSession) Stage() Stage {
	return s.stage
}

// Remaining returns the seconds left of the capture, valid while scanning.
func (s *ScanSession) Remaining() int {
	return s.remaining
}

// Spectrum returns the session's sample buffer.
func (s *ScanSession) Spectrum() *SpectrumWindow {
	return s.spectrum
}

// HandleRaw processes one channel message. Unknown statuses and messages
// that would move the machine backwards are ignored.
func (s *ScanSession) HandleRaw(data []byte) {
	if s.stage == StageTerminal {
		return
	}
	var msg ScanMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	s.Handle(msg)
}

// Handle applies one decoded server message to the machine.
func (s *ScanSession) Handle(msg ScanMessage) {
	if s.stage == StageTerminal {
		return
	}
	switch msg.Status {
	case StatusConnecting:
		// Server-side echo of the stage we start in; nothing to do.

	case StatusWaitingConfig:
		if s.stage != StageConnecting {
			return
		}
		s.advance(StageAwaitingConfig)
		s.sendConfig()

	case StatusStarting:
		if s.stage != StageAwaitingConfig {
			return
		}
		s.advance(StageStarting)

	case StatusPreparing:
		if s.stage != StageStarting {
			return
		}
		// The scan is committed from here on: it will disrupt clients
		// connected to the device, so the configuration controls stay
		// hidden until the session ends.
		s.advance(StagePreparing)

	case StatusScanning:
		if s.stage != StagePreparing {
			return
		}
		if msg.DurationSeconds > 0 {
			s.duration = msg.DurationSeconds
		}
		s.spectrum.Reset()
		s.remaining = s.duration
		s.countdown = s.sched.Every(time.Second, s.tick)
		s.advance(StageScanning)

	case StatusData:
		if s.stage != StageScanning {
			return
		}
		s.spectrum.Upsert(msg.Frequency, msg.Signal, msg.Peak)
		if s.cb.Data != nil {
			s.cb.Data()
		}

	case StatusCompleted:
		s.terminate(EndReason{Kind: EndCompleted})

	case StatusStopped:
		s.terminate(EndReason{Kind: EndStopped})

	case StatusUnsupported:
		s.terminate(EndReason{Kind: EndUnsupported, Message: msg.Message})

	case StatusError:
		s.terminate(EndReason{Kind: EndDeviceError, Message: msg.Message})
	}
}

// HandleDisconnect reports channel closure. After a terminal transition the
// closure is expected and ignored; in any other stage it is treated exactly
// like a server-reported error, surfaced as a connectivity failure.
func (s *ScanSession) HandleDisconnect(err error) {
	if s.stage == StageTerminal {
		return
	}
	s.terminate(EndReason{Kind: EndTransport, Err: err})
}

// Stop cancels the scan at the user's request. Cancellation is
// client-authoritative: the stop control is sent best-effort and the machine
// goes terminal without waiting for the server to acknowledge.
func (s *ScanSession) Stop() {
	if s.stage == StageTerminal {
		return
	}
	if s.ch != nil && !s.sentStop {
		s.sentStop = true
		s.ch.SendText(StopControl)
	}
	s.terminate(EndReason{Kind: EndUser})
}

func (s *ScanSession) sendConfig() {
	if s.sentConfig || s.ch == nil {
		return
	}
	s.sentConfig = true
	cfg := ScanConfig{DurationSeconds: s.duration}
	if s.iface != "" {
		cfg.Interface = &s.iface
	}
	if err := s.ch.SendJSON(cfg); err != nil {
		s.terminate(EndReason{Kind: EndTransport, Err: err})
	}
}

func (s *ScanSession) tick() {
	if s.stage != StageScanning {
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
		// Completion is the server's call; the countdown only stops
		// ticking. The completed message follows on the channel.
		s.sched.Stop(s.countdown)
		s.countdown = NoHandle
	}
}

func (s *ScanSession) advance(next Stage) {
	s.stage = next
	s.announce(next)
}

func (s *ScanSession) announce(st Stage) {
	if s.cb.Stage != nil {
		s.cb.Stage(st)
	}
}

// terminate releases every resource the session owns, then surfaces the
// outcome: countdown cleared, channel closed, gate released, and only then
// the Done callback.
func (s *ScanSession) terminate(reason EndReason) {
	if s.stage == StageTerminal {
		return
	}
	s.stage = StageTerminal
	s.sched.Stop(s.countdown)
	s.countdown = NoHandle
	if s.ch != nil {
		s.ch.Close()
		s.ch = nil
	}
	s.gate.Release()
	s.announce(StageTerminal)
	if s.cb.Done != nil {
		s.cb.Done(reason)
	}
}
