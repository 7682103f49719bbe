package session

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func startScanning(t *testing.T, g *Gate, sched *fakeScheduler, ch *fakeChannel, iface string, duration int, cb ScanCallbacks) *ScanSession {
	t.Helper()
	s, err := StartScan(g, sched, iface, duration, cb)
	if err != nil {
		t.Fatal(err)
	}
	s.AttachChannel(ch)
	s.Handle(ScanMessage{Status: StatusConnecting})
	s.Handle(ScanMessage{Status: StatusWaitingConfig})
	s.Handle(ScanMessage{Status: StatusStarting})
	s.Handle(ScanMessage{Status: StatusPreparing})
	s.Handle(ScanMessage{Status: StatusScanning, Interface: iface, DurationSeconds: duration})
	return s
}

func TestScanHappyPath(t *testing.T) {
	var g Gate
	sched := newFakeScheduler()
	ch := &fakeChannel{}
	var stages []Stage
	var done *EndReason
	s, err := StartScan(&g, sched, "wlan1", 60, ScanCallbacks{
		Stage: func(st Stage) { stages = append(stages, st) },
		Done:  func(r EndReason) { done = &r },
	})
	if err != nil {
		t.Fatal(err)
	}
	s.AttachChannel(ch)
	if !g.IsHeld() {
		t.Fatal("gate not held after StartScan")
	}

	s.Handle(ScanMessage{Status: StatusConnecting})
	s.Handle(ScanMessage{Status: StatusWaitingConfig})
	if len(ch.sentJSON) != 1 {
		t.Fatalf("config sent %d times, want 1", len(ch.sentJSON))
	}
	if !strings.Contains(ch.sentJSON[0], `"interface":"wlan1"`) ||
		!strings.Contains(ch.sentJSON[0], `"durationSeconds":60`) {
		t.Errorf("config payload = %s", ch.sentJSON[0])
	}

	s.Handle(ScanMessage{Status: StatusStarting})
	s.Handle(ScanMessage{Status: StatusPreparing})
	s.Handle(ScanMessage{Status: StatusScanning, Interface: "wlan1", DurationSeconds: 60})
	if s.Stage() != StageScanning {
		t.Fatalf("stage = %v, want scanning", s.Stage())
	}

	for _, f := range []float64{5180, 5200, 5190} {
		s.Handle(ScanMessage{Status: StatusData, Frequency: f, Signal: -72, Peak: -68})
	}
	got := s.Spectrum().Samples()
	want := []float64{5180, 5190, 5200}
	for i, f := range want {
		if got[i].Frequency != f {
			t.Errorf("spectrum[%d] = %v, want %v", i, got[i].Frequency, f)
		}
	}

	s.Handle(ScanMessage{Status: StatusCompleted})
	if s.Stage() != StageTerminal {
		t.Errorf("stage = %v, want terminal", s.Stage())
	}
	if ch.closed != 1 {
		t.Errorf("channel closed %d times, want 1", ch.closed)
	}
	if done == nil || done.Kind != EndCompleted {
		t.Errorf("done = %+v, want EndCompleted", done)
	}
	if g.IsHeld() {
		t.Error("gate still held after completion")
	}

	wantStages := []Stage{StageConnecting, StageAwaitingConfig, StageStarting, StagePreparing, StageScanning, StageTerminal}
	if len(stages) != len(wantStages) {
		t.Fatalf("stage transitions = %v, want %v", stages, wantStages)
	}
	for i := range wantStages {
		if stages[i] != wantStages[i] {
			t.Errorf("transition %d = %v, want %v", i, stages[i], wantStages[i])
		}
	}
}

func TestScanForcedCancel(t *testing.T) {
	var g Gate
	sched := newFakeScheduler()
	ch := &fakeChannel{}
	var done *EndReason
	s := startScanning(t, &g, sched, ch, "wlan1", 60, ScanCallbacks{
		Done: func(r EndReason) { done = &r },
	})

	s.Stop()
	if len(ch.sentText) != 1 || ch.sentText[0] != StopControl {
		t.Errorf("control messages = %v, want [%q]", ch.sentText, StopControl)
	}
	if ch.closed != 1 {
		t.Errorf("channel closed %d times, want 1", ch.closed)
	}
	if s.Stage() != StageTerminal {
		t.Errorf("stage = %v, want terminal", s.Stage())
	}
	if done == nil || done.Kind != EndUser {
		t.Errorf("done = %+v, want EndUser", done)
	}
	if g.IsHeld() {
		t.Error("gate still held after cancel")
	}
	// Cancellation is client-authoritative: a second Stop or a late server
	// ack changes nothing.
	s.Stop()
	s.Handle(ScanMessage{Status: StatusStopped})
	if len(ch.sentText) != 1 || ch.closed != 1 {
		t.Error("terminal session kept touching the channel")
	}
}

func TestScanConfigNullInterface(t *testing.T) {
	var g Gate
	sched := newFakeScheduler()
	ch := &fakeChannel{}
	s, err := StartScan(&g, sched, "", 30, ScanCallbacks{})
	if err != nil {
		t.Fatal(err)
	}
	s.AttachChannel(ch)
	s.Handle(ScanMessage{Status: StatusWaitingConfig})
	if len(ch.sentJSON) != 1 {
		t.Fatalf("config sent %d times, want 1", len(ch.sentJSON))
	}
	if !strings.Contains(ch.sentJSON[0], `"interface":null`) {
		t.Errorf("config payload = %s, want null interface", ch.sentJSON[0])
	}
	s.Stop()
}

func TestScanUnknownStatusIgnored(t *testing.T) {
	var g Gate
	sched := newFakeScheduler()
	ch := &fakeChannel{}
	s := startScanning(t, &g, sched, ch, "wlan1", 60, ScanCallbacks{})

	s.HandleRaw([]byte(`{"status":"calibrating","progress":0.4}`))
	s.HandleRaw([]byte(`not even json`))
	if s.Stage() != StageScanning {
		t.Errorf("stage = %v after unknown status, want scanning", s.Stage())
	}
	s.Handle(ScanMessage{Status: StatusData, Frequency: 5180, Signal: -70, Peak: -66})
	if s.Spectrum().Len() != 1 {
		t.Error("session stopped ingesting after unknown status")
	}
	s.Stop()
}

func TestScanBackwardTransitionsIgnored(t *testing.T) {
	var g Gate
	sched := newFakeScheduler()
	ch := &fakeChannel{}
	s := startScanning(t, &g, sched, ch, "wlan1", 60, ScanCallbacks{})

	s.Handle(ScanMessage{Status: StatusWaitingConfig})
	s.Handle(ScanMessage{Status: StatusPreparing})
	if s.Stage() != StageScanning {
		t.Errorf("stage = %v, want scanning (stages only advance)", s.Stage())
	}
	if len(ch.sentJSON) != 1 {
		t.Errorf("config re-sent on repeated waiting_config: %v", ch.sentJSON)
	}
	s.Stop()
}

func TestScanUnsupportedDistinctFromError(t *testing.T) {
	cases := []struct {
		name    string
		status  string
		message string
		want    EndKind
	}{
		{"unsupported", StatusUnsupported, "spectral scan requires wireless package 6.44+", EndUnsupported},
		{"device error", StatusError, "interface busy", EndDeviceError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var g Gate
			sched := newFakeScheduler()
			ch := &fakeChannel{}
			var done *EndReason
			s := startScanning(t, &g, sched, ch, "wlan1", 60, ScanCallbacks{
				Done: func(r EndReason) { done = &r },
			})
			s.Handle(ScanMessage{Status: tc.status, Message: tc.message})
			if done == nil {
				t.Fatal("Done not fired")
			}
			if done.Kind != tc.want {
				t.Errorf("kind = %v, want %v", done.Kind, tc.want)
			}
			if done.Message != tc.message {
				t.Errorf("message = %q, want %q", done.Message, tc.message)
			}
			if g.IsHeld() {
				t.Error("gate still held")
			}
		})
	}
}

func TestScanDisconnectMidScan(t *testing.T) {
	var g Gate
	sched := newFakeScheduler()
	ch := &fakeChannel{}
	dones := 0
	var reason EndReason
	s := startScanning(t, &g, sched, ch, "wlan1", 60, ScanCallbacks{
		Done: func(r EndReason) { dones++; reason = r },
	})

	readErr := errors.New("websocket: close 1006 (abnormal closure)")
	s.HandleDisconnect(readErr)
	if dones != 1 {
		t.Fatalf("Done fired %d times, want 1", dones)
	}
	if reason.Kind != EndTransport || !errors.Is(reason.Err, readErr) {
		t.Errorf("reason = %+v, want EndTransport", reason)
	}
	if sched.active() != 0 {
		t.Errorf("%d timers leaked after disconnect", sched.active())
	}
	// The close that follows our own teardown is expected and silent.
	s.HandleDisconnect(errors.New("use of closed network connection"))
	if dones != 1 {
		t.Errorf("Done fired %d times after expected closure, want 1", dones)
	}
}

func TestScanCountdown(t *testing.T) {
	var g Gate
	sched := newFakeScheduler()
	ch := &fakeChannel{}
	var ticks []int
	s := startScanning(t, &g, sched, ch, "wlan1", 3, ScanCallbacks{
		Tick: func(r int) { ticks = append(ticks, r) },
	})
	if s.Remaining() != 3 {
		t.Fatalf("Remaining() = %d, want 3", s.Remaining())
	}
	sched.advance(5 * time.Second)
	if len(ticks) != 3 || ticks[0] != 2 || ticks[2] != 0 {
		t.Errorf("ticks = %v, want [2 1 0]", ticks)
	}
	// The countdown running out does not end the session; completion is
	// the server's call.
	if s.Stage() != StageScanning {
		t.Errorf("stage = %v, want scanning until server completes", s.Stage())
	}
	s.Handle(ScanMessage{Status: StatusCompleted})
	if s.Stage() != StageTerminal {
		t.Errorf("stage = %v, want terminal", s.Stage())
	}
	if sched.active() != 0 {
		t.Errorf("%d timers leaked", sched.active())
	}
}

func TestScanDataResetsOnNewScan(t *testing.T) {
	var g Gate
	sched := newFakeScheduler()
	ch := &fakeChannel{}
	s := startScanning(t, &g, sched, ch, "wlan1", 60, ScanCallbacks{})
	s.Handle(ScanMessage{Status: StatusData, Frequency: 5180, Signal: -70, Peak: -66})
	s.Stop()

	ch2 := &fakeChannel{}
	s2 := startScanning(t, &g, sched, ch2, "wlan2", 60, ScanCallbacks{})
	if s2.Spectrum().Len() != 0 {
		t.Error("new scan inherited samples from the previous one")
	}
	s2.Stop()
}

func TestScanSendFailureIsTransport(t *testing.T) {
	var g Gate
	sched := newFakeScheduler()
	ch := &fakeChannel{sendErr: errors.New("broken pipe")}
	var done *EndReason
	s, err := StartScan(&g, sched, "wlan1", 60, ScanCallbacks{
		Done: func(r EndReason) { done = &r },
	})
	if err != nil {
		t.Fatal(err)
	}
	s.AttachChannel(ch)
	s.Handle(ScanMessage{Status: StatusWaitingConfig})
	if done == nil || done.Kind != EndTransport {
		t.Errorf("done = %+v, want EndTransport after failed config send", done)
	}
	if g.IsHeld() {
		t.Error("gate still held")
	}
}

func TestScanAttachAfterTerminalClosesChannel(t *testing.T) {
	var g Gate
	sched := newFakeScheduler()
	s, err := StartScan(&g, sched, "wlan1", 60, ScanCallbacks{})
	if err != nil {
		t.Fatal(err)
	}
	s.Stop()
	ch := &fakeChannel{}
	s.AttachChannel(ch)
	if ch.closed != 1 {
		t.Error("late-attached channel not closed")
	}
}
