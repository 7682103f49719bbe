// Package sim implements a standalone simulator of the manager's device API:
// the REST surface the monitor polls, the spectral-scan WebSocket protocol
// and the push-notification channel. It exists so the TUI can be exercised
// without a router on the bench.
package sim

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kaber420/mikroisp-manager-sub000/internal/client"
)

// Options configure the simulated device.
type Options struct {
	DeviceID            string
	DeviceName          string
	DeviceModel         string
	Address             string
	PollIntervalSeconds int // 0 means unconfigured
	Interfaces          []client.WirelessInterface
	ScanSupported       bool
	AuthToken           string
	RefreshInterval     time.Duration // push refresh cadence
	FrameInterval       time.Duration // spectral sweep cadence
}

// DefaultOptions returns a scan-capable dual-radio device.
func DefaultOptions() Options {
	return Options{
		DeviceID:            "sim-1",
		DeviceName:          "ap-simulated",
		DeviceModel:         "RB922UAGS-5HPacD",
		Address:             "10.0.0.2",
		PollIntervalSeconds: 5,
		Interfaces: []client.WirelessInterface{
			{Name: "wlan1", Type: "5ghz-ac"},
			{Name: "wlan2", Type: "2ghz-g/n"},
		},
		ScanSupported:   true,
		RefreshInterval: 15 * time.Second,
		FrameInterval:   500 * time.Millisecond,
	}
}

// Server serves one simulated device.
type Server struct {
	opts    Options
	hub     *Hub
	telem   *Telemetry
	started time.Time
}

func NewServer(opts Options) *Server {
	return &Server{
		opts:    opts,
		hub:     NewHub(),
		telem:   NewTelemetry(),
		started: time.Now(),
	}
}

// Routes builds the simulator's HTTP mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handlePush)
	mux.HandleFunc("/devices/", s.handleDeviceRoutes)
	return mux
}

// Start launches the background refresh loop.
func (s *Server) Start(ctx context.Context) {
	if s.opts.RefreshInterval > 0 {
		go s.hub.RefreshLoop(ctx, s.opts.DeviceID, s.opts.RefreshInterval)
	}
}

// ListenAndServe starts the simulator on addr and blocks.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.Start(ctx)
	log.Printf("device simulator listening on %s (device %s)", addr, s.opts.DeviceID)
	return http.ListenAndServe(addr, s.Routes())
}

func (s *Server) handleDeviceRoutes(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Parse: /devices/{id}[/live|/wireless-interfaces|/statistics|/spectral-scan]
	path := strings.TrimPrefix(r.URL.Path, "/devices/")
	parts := strings.SplitN(path, "/", 2)
	if parts[0] != s.opts.DeviceID {
		http.Error(w, "device not found", http.StatusNotFound)
		return
	}

	if len(parts) == 1 || parts[1] == "" {
		s.handleDevice(w, r)
		return
	}
	switch parts[1] {
	case "live":
		s.handleLive(w, r)
	case "wireless-interfaces":
		s.handleInterfaces(w, r)
	case "statistics":
		s.handleStatistics(w, r)
	case "spectral-scan":
		s.handleScan(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) handleDevice(w http.ResponseWriter, _ *http.Request) {
	d := client.Device{
		ID:      s.opts.DeviceID,
		Name:    s.opts.DeviceName,
		Model:   s.opts.DeviceModel,
		Address: s.opts.Address,
	}
	if s.opts.PollIntervalSeconds > 0 {
		interval := s.opts.PollIntervalSeconds
		d.PollIntervalSeconds = &interval
	}
	writeJSON(w, d)
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.telem.Sample())
}

func (s *Server) handleInterfaces(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.opts.Interfaces)
}

func (s *Server) handleStatistics(w http.ResponseWriter, _ *http.Request) {
	tx, rx := s.telem.Totals()
	writeJSON(w, client.DeviceStatistics{
		LastSeen:     time.Now(),
		UptimeSec:    int64(time.Since(s.started).Seconds()),
		AvgSignalDBm: -63.5,
		AvgCCQ:       91.2,
		AvgCPULoad:   17.8,
		TxBytes:      tx,
		RxBytes:      rx,
	})
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("push upgrade error: %v", err)
		return
	}

	c := s.hub.Add(conn)
	go func() {
		defer s.hub.Remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) hasInterface(name string) bool {
	for _, iface := range s.opts.Interfaces {
		if iface.Name == name {
			return true
		}
	}
	return false
}

func (s *Server) authorize(r *http.Request) bool {
	if s.opts.AuthToken == "" {
		return true
	}
	if r.URL.Query().Get("token") == s.opts.AuthToken {
		return true
	}
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.opts.AuthToken
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
