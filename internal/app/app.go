// Package app holds the root Bubble Tea model. It owns the session gate and
// at most one intrusive session, wires scheduler callbacks back onto the
// update loop, and suppresses push-driven refreshes while a session runs.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kaber420/mikroisp-manager-sub000/internal/client"
	"github.com/kaber420/mikroisp-manager-sub000/internal/config"
	"github.com/kaber420/mikroisp-manager-sub000/internal/session"
	"github.com/kaber420/mikroisp-manager-sub000/internal/theme"
	"github.com/kaber420/mikroisp-manager-sub000/internal/views/eventlog"
	"github.com/kaber420/mikroisp-manager-sub000/internal/views/help"
	"github.com/kaber420/mikroisp-manager-sub000/internal/views/livepanel"
	"github.com/kaber420/mikroisp-manager-sub000/internal/views/scanpanel"
	"github.com/kaber420/mikroisp-manager-sub000/internal/views/spectrum"
	"github.com/kaber420/mikroisp-manager-sub000/internal/views/statusbar"
)

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayHelp
	OverlayEvents
)

// InvokeMsg re-enters the update loop with a scheduler callback. Running the
// callback here, not on the timer goroutine, is what keeps session state
// transitions atomic with respect to the rest of the app.
type InvokeMsg struct{ Fn func() }

// animFrameMsg drives the spectrum chart's spring animation.
type animFrameMsg struct{}

// --- async fetch results ---

type deviceMsg struct {
	device *client.Device
	err    error
}

type statsMsg struct {
	stats *client.DeviceStatistics
	err   error
}

type interfacesMsg struct {
	ifaces []client.WirelessInterface
	err    error
}

type telemetryMsg struct {
	sample session.TelemetrySample
	err    error
}

// effects collects side effects requested by session callbacks during one
// Update call. It lives behind a pointer so callbacks keep working across
// Bubble Tea's value-copied models; drain turns it into commands.
type effects struct {
	pollRequested bool
	reloadStats   bool
	liveEnded     *session.EndReason
	scanEnded     *session.EndReason
	spectrumDirty bool
}

// Model is the root Bubble Tea model.
type Model struct {
	cfg    *config.Config
	http   *client.HTTPClient
	push   *client.PushListener
	sched  session.Scheduler
	ctx    context.Context
	cancel context.CancelFunc

	keys   KeyMap
	width  int
	height int

	deviceID string
	device   *client.Device

	gate        *session.Gate
	live        *session.LiveSession
	scan        *session.ScanSession
	scanConn    *client.ScanStream
	scanAttempt int // current dial attempt; stale channel events are dropped
	eff         *effects

	overlay   Overlay
	statusBar statusbar.Model
	livePanel livepanel.Model
	scanPanel scanpanel.Model
	chart     spectrum.Model
	events    *eventlog.Model
	helpView  help.Model

	animating     bool
	statsRequests int // fetches of the historical view, for tests
}

// New creates the root model. The scheduler must already be bound to the
// running program (see cmd/monitor-tui).
func New(cfg *config.Config, httpc *client.HTTPClient, push *client.PushListener, sched session.Scheduler, deviceID string) Model {
	ctx, cancel := context.WithCancel(context.Background())
	events := eventlog.New()
	scanPanel := scanpanel.New()
	scanPanel.SelectDuration(cfg.Scan.DefaultDurationSeconds)
	return Model{
		cfg:       cfg,
		http:      httpc,
		push:      push,
		sched:     sched,
		ctx:       ctx,
		cancel:    cancel,
		keys:      DefaultKeyMap(),
		deviceID:  deviceID,
		gate:      &session.Gate{},
		eff:       &effects{},
		statusBar: statusbar.New(),
		livePanel: livepanel.New(),
		scanPanel: scanPanel,
		chart:     spectrum.New(),
		events:    &events,
		helpView:  help.New(80),
	}
}

// Init fetches the device, its historical view and the interface list, and
// connects the push channel.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchDevice(),
		m.fetchStats(),
		m.fetchInterfaces(),
		m.push.Listen(m.ctx),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.livePanel.Width = msg.Width / 2
		m.scanPanel.Width = msg.Width - msg.Width/2
		m.chart.Width = msg.Width - 4
		m.helpView = help.New(msg.Width)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case InvokeMsg:
		msg.Fn()
		m.reconcile()
		return m, m.drain()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.scanPanel, cmd = m.scanPanel.Update(msg)
		if !m.scanPanel.Handshaking() {
			cmd = nil
		}
		return m, cmd

	case animFrameMsg:
		if m.chart.Step() {
			return m, animTick()
		}
		m.animating = false
		return m, nil

	case deviceMsg:
		if msg.err != nil {
			m.events.Add("err", "device fetch: %v", msg.err)
			return m, nil
		}
		m.device = msg.device
		m.statusBar.DeviceName = msg.device.Name
		m.statusBar.DeviceModel = msg.device.Model
		m.livePanel.Configured = msg.device.PollIntervalSeconds != nil && *msg.device.PollIntervalSeconds > 0
		return m, nil

	case statsMsg:
		if msg.err != nil {
			m.events.Add("err", "stats fetch: %v", msg.err)
			return m, nil
		}
		m.livePanel.Stats = msg.stats
		return m, nil

	case interfacesMsg:
		if msg.err != nil {
			m.events.Add("err", "interfaces fetch: %v", msg.err)
			return m, nil
		}
		m.scanPanel.Interfaces = msg.ifaces
		return m, nil

	case telemetryMsg:
		if m.live != nil {
			m.live.HandleTelemetry(msg.sample, msg.err)
			m.reconcile()
			return m, m.drain()
		}
		return m, nil

	// --- scan channel ---

	case client.ScanConnectedMsg:
		// A dial that outlived its session must not hand its stream to a
		// newer one; the session owns exactly one channel.
		if msg.Attempt != m.scanAttempt || m.scan == nil || m.scan.Stage() == session.StageTerminal {
			msg.Stream.Close()
			return m, nil
		}
		m.scanConn = msg.Stream
		m.scan.AttachChannel(msg.Stream)
		m.events.Add("scan", "channel open")
		return m, msg.Stream.Read()

	case client.ScanFrameMsg:
		if m.scan == nil || msg.Attempt != m.scanAttempt {
			return m, nil
		}
		m.scan.HandleRaw(msg.Data)
		m.reconcile()
		cmds := []tea.Cmd{m.drain()}
		if m.scan != nil && m.scanConn != nil {
			cmds = append(cmds, m.scanConn.Read())
		}
		return m, tea.Batch(cmds...)

	case client.ScanClosedMsg:
		if m.scan != nil && msg.Attempt == m.scanAttempt {
			m.scan.HandleDisconnect(msg.Err)
			m.reconcile()
			return m, m.drain()
		}
		return m, nil

	// --- push channel ---

	case client.PushConnectedMsg:
		m.statusBar.Connected = true
		m.events.Add("push", "connected")
		return m, m.push.ReadLoop(m.ctx)

	case client.PushRefreshMsg:
		cmds := []tea.Cmd{m.push.ReadLoop(m.ctx)}
		if m.gate.IsHeld() {
			// An intrusive session owns the device; the refresh is
			// dropped, not queued. The session reloads everything
			// itself when it ends.
			m.statusBar.Suppressed++
			m.events.Add("push", "refresh suppressed (session active)")
		} else {
			m.events.Add("push", "refresh")
			cmds = append(cmds, m.fetchStats())
		}
		return m, tea.Batch(cmds...)

	case client.PushDisconnectedMsg:
		m.statusBar.Connected = false
		if msg.Err != nil {
			m.events.Add("err", "push channel: %v", msg.Err)
		}
		return m, m.push.Listen(m.ctx)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.overlay != OverlayNone {
		switch {
		case key.Matches(msg, m.keys.Escape):
			m.overlay = OverlayNone
		case key.Matches(msg, m.keys.Up):
			m.events.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.events.ScrollDown(1)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.stopActiveSession()
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Live):
		return m.toggleLive()

	case key.Matches(msg, m.keys.Scan):
		return m.toggleScan()

	case key.Matches(msg, m.keys.Interface):
		if m.scan == nil {
			m.scanPanel.CycleInterface()
		}
		return m, nil

	case key.Matches(msg, m.keys.Duration):
		if m.scan == nil {
			m.scanPanel.CycleDuration()
		}
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		if !m.gate.IsHeld() {
			return m, m.fetchStats()
		}
		m.events.Add("push", "manual reload ignored (session active)")
		return m, nil

	case key.Matches(msg, m.keys.Events):
		m.overlay = OverlayEvents
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.overlay = OverlayHelp
		return m, nil
	}

	return m, nil
}

// --- session control ---

func (m Model) toggleLive() (tea.Model, tea.Cmd) {
	if m.live != nil {
		m.live.Stop()
		m.reconcile()
		return m, m.drain()
	}

	interval := 0
	if m.device != nil && m.device.PollIntervalSeconds != nil {
		interval = *m.device.PollIntervalSeconds
	}
	eff := m.eff
	live, err := session.StartLive(m.gate, m.sched, interval,
		time.Duration(m.cfg.Live.DurationSeconds)*time.Second,
		session.LiveCallbacks{
			Poll: func() { eff.pollRequested = true },
			Done: func(r session.EndReason) { eff.liveEnded = &r },
		})
	if err != nil {
		m.livePanel.FinalNote = err.Error()
		m.events.Add("err", "live start: %v", err)
		return m, nil
	}
	m.live = live
	m.livePanel.FinalNote = ""
	m.livePanel.Duration = m.cfg.Live.DurationSeconds
	m.events.Add("live", "session started (interval %ds)", interval)
	m.reconcile()
	return m, m.drain()
}

func (m Model) toggleScan() (tea.Model, tea.Cmd) {
	if m.scan != nil {
		m.scan.Stop()
		m.reconcile()
		return m, m.drain()
	}

	eff := m.eff
	iface := m.scanPanel.SelectedInterface()
	duration := m.scanPanel.SelectedDuration()
	scan, err := session.StartScan(m.gate, m.sched, iface, duration,
		session.ScanCallbacks{
			Data: func() { eff.spectrumDirty = true },
			Done: func(r session.EndReason) { eff.scanEnded = &r },
		})
	if err != nil {
		m.scanPanel.FinalNote = err.Error()
		m.scanPanel.FinalIsErr = true
		m.events.Add("err", "scan start: %v", err)
		return m, nil
	}
	m.scan = scan
	m.scanAttempt++
	m.scanPanel.FinalNote = ""
	m.scanPanel.Duration = duration
	m.chart.Reset()
	m.events.Add("scan", "session started (iface %q, %ds)", iface, duration)
	m.reconcile()
	return m, tea.Batch(
		client.DialScan(m.scanURL(), m.cfg.API.Token, m.scanAttempt),
		m.scanPanel.SpinnerTick(),
		m.drain(),
	)
}

func (m *Model) stopActiveSession() {
	if m.live != nil {
		m.live.Stop()
	}
	if m.scan != nil {
		m.scan.Stop()
	}
	m.reconcile()
}

// reconcile mirrors session state into the view models after any session
// interaction.
func (m *Model) reconcile() {
	if m.live != nil {
		m.livePanel.Active = m.live.Active()
		m.livePanel.Remaining = m.live.Remaining()
		m.livePanel.Live = m.live
		if !m.live.Active() {
			m.live = nil
			m.livePanel.Active = false
			m.livePanel.Live = nil
		}
	}
	if m.scan != nil {
		m.scanPanel.Active = m.scan.Stage() != session.StageTerminal
		m.scanPanel.Stage = m.scan.Stage()
		m.scanPanel.Remaining = m.scan.Remaining()
		if m.scan.Stage() == session.StageTerminal {
			m.scan = nil
			m.scanConn = nil
			m.scanPanel.Active = false
		}
	}
	m.livePanel.GateBusy = m.gate.IsHeld() && m.live == nil
	m.scanPanel.GateBusy = m.gate.IsHeld() && m.scan == nil
	m.statusBar.GateHeld = m.gate.IsHeld()
	if !m.gate.IsHeld() {
		m.statusBar.Suppressed = 0
	}
}

// drain converts collected callback effects into commands.
func (m *Model) drain() tea.Cmd {
	eff := m.eff
	var cmds []tea.Cmd

	if eff.pollRequested {
		eff.pollRequested = false
		cmds = append(cmds, m.fetchTelemetry())
	}
	if eff.spectrumDirty {
		eff.spectrumDirty = false
		if m.scan != nil {
			m.chart.SetSamples(m.scan.Spectrum().Samples())
		}
		if !m.animating {
			m.animating = true
			cmds = append(cmds, animTick())
		}
	}
	if r := eff.liveEnded; r != nil {
		eff.liveEnded = nil
		m.events.Add("live", "session ended: %s", r.Kind)
		m.livePanel.FinalNote = "Live session ended: " + r.Kind.String()
		// Cleanup already happened inside the session; only now is the
		// historical view reloaded, so countdown and historical data
		// are never on screen together.
		cmds = append(cmds, m.fetchStats())
	}
	if r := eff.scanEnded; r != nil {
		eff.scanEnded = nil
		m.scanPanel.FinalNote, m.scanPanel.FinalIsErr = scanOutcome(*r)
		m.events.Add("scan", "session ended: %s", r.Kind)
		cmds = append(cmds, m.fetchStats())
	}

	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// scanOutcome maps a terminal reason onto the note under the scan panel.
// Unsupported devices get their own explanation instead of the generic
// connectivity failure.
func scanOutcome(r session.EndReason) (note string, isErr bool) {
	switch r.Kind {
	case session.EndCompleted:
		return "Scan completed.", false
	case session.EndUser, session.EndStopped:
		return "Scan stopped.", false
	case session.EndUnsupported:
		msg := r.Message
		if msg == "" {
			msg = "This device cannot run a spectral scan."
		}
		return msg, true
	case session.EndDeviceError:
		return "Device reported an error: " + r.Message, true
	default:
		return "Connection to the device was lost.", true
	}
}

// --- commands ---

func (m Model) fetchDevice() tea.Cmd {
	httpc, id := m.http, m.deviceID
	return func() tea.Msg {
		d, err := httpc.GetDevice(id)
		return deviceMsg{device: d, err: err}
	}
}

func (m *Model) fetchStats() tea.Cmd {
	m.statsRequests++
	httpc, id := m.http, m.deviceID
	return func() tea.Msg {
		s, err := httpc.GetStatistics(id)
		return statsMsg{stats: s, err: err}
	}
}

func (m Model) fetchInterfaces() tea.Cmd {
	httpc, id := m.http, m.deviceID
	return func() tea.Msg {
		ifs, err := httpc.GetWirelessInterfaces(id)
		return interfacesMsg{ifaces: ifs, err: err}
	}
}

func (m Model) fetchTelemetry() tea.Cmd {
	httpc, id := m.http, m.deviceID
	return func() tea.Msg {
		s, err := httpc.GetLive(id)
		return telemetryMsg{sample: s, err: err}
	}
}

func (m Model) scanURL() string {
	base := strings.Replace(m.cfg.API.BaseURL, "http", "ws", 1)
	return base + "/devices/" + m.deviceID + "/spectral-scan"
}

func animTick() tea.Cmd {
	return tea.Tick(time.Second/30, func(time.Time) tea.Msg { return animFrameMsg{} })
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	switch m.overlay {
	case OverlayHelp:
		return m.helpView.View(m.width)
	case OverlayEvents:
		return m.events.View(m.width, m.height)
	}

	sections := []string{
		m.statusBar.View(),
		lipgloss.JoinHorizontal(lipgloss.Top, m.livePanel.View(), m.scanPanel.View()),
	}
	if m.scanPanel.Active && m.scanPanel.Stage == session.StageScanning {
		sections = append(sections, m.chart.View())
	}
	sections = append(sections,
		theme.StyleDimmed.Render("  l:live  s:scan  i:interface  t:duration  r:reload  e:events  ?:help  q:quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
