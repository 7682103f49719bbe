package sim

import (
	"encoding/json"
	"log"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kaber420/mikroisp-manager-sub000/internal/session"
)

const (
	configReadTimeout = 10 * time.Second
	maxScanSeconds    = 300
)

// scanBand returns the center frequencies swept for an interface. The 2.4 GHz
// radio covers channels 1-13, the 5 GHz radio a UNII-1/2 slice.
func scanBand(iface string) []float64 {
	if iface == "wlan2" {
		freqs := make([]float64, 13)
		for i := range freqs {
			freqs[i] = 2412 + float64(i)*5
		}
		return freqs
	}
	freqs := make([]float64, 16)
	for i := range freqs {
		freqs[i] = 5180 + float64(i)*10
	}
	return freqs
}

// sweep synthesizes one pass over the band: a couple of stable carriers on a
// noise floor, drifting a little from pass to pass.
type sweep struct {
	freqs []float64
	peaks map[float64]float64
	rng   *rand.Rand
	pass  int
}

func newSweep(freqs []float64) *sweep {
	return &sweep{
		freqs: freqs,
		peaks: make(map[float64]float64, len(freqs)),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *sweep) next() []session.ScanMessage {
	s.pass++
	msgs := make([]session.ScanMessage, 0, len(s.freqs))
	for i, f := range s.freqs {
		signal := -95 + s.rng.Float64()*6
		// Carriers at roughly a third and two thirds of the band.
		for _, c := range []int{len(s.freqs) / 3, 2 * len(s.freqs) / 3} {
			if d := float64(i - c); math.Abs(d) <= 2 {
				signal += (35 - 8*math.Abs(d)) * (0.8 + 0.2*math.Sin(float64(s.pass)/4))
			}
		}
		peak, ok := s.peaks[f]
		if !ok || signal > peak {
			peak = signal
			s.peaks[f] = peak
		}
		msgs = append(msgs, session.ScanMessage{
			Status:    session.StatusData,
			Frequency: f,
			Signal:    signal,
			Peak:      peak,
		})
	}
	return msgs
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("scan upgrade error: %v", err)
		return
	}
	defer conn.Close()

	send := func(msg session.ScanMessage) error {
		return conn.WriteJSON(msg)
	}

	if !s.opts.ScanSupported {
		send(session.ScanMessage{
			Status:  session.StatusUnsupported,
			Message: "spectral scan requires a wireless chipset with background scan support",
		})
		return
	}

	if err := send(session.ScanMessage{Status: session.StatusWaitingConfig}); err != nil {
		return
	}

	conn.SetReadDeadline(time.Now().Add(configReadTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return
	}
	var cfg session.ScanConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		send(session.ScanMessage{Status: session.StatusError, Message: "invalid scan configuration"})
		return
	}

	iface := s.opts.Interfaces[0].Name
	if cfg.Interface != nil {
		iface = *cfg.Interface
		if !s.hasInterface(iface) {
			send(session.ScanMessage{Status: session.StatusError, Message: "unknown interface " + iface})
			return
		}
	}
	duration := cfg.DurationSeconds
	if duration <= 0 || duration > maxScanSeconds {
		duration = 60
	}

	if err := send(session.ScanMessage{Status: session.StatusStarting}); err != nil {
		return
	}
	if err := send(session.ScanMessage{Status: session.StatusPreparing}); err != nil {
		return
	}
	if err := send(session.ScanMessage{
		Status:          session.StatusScanning,
		Interface:       iface,
		DurationSeconds: duration,
	}); err != nil {
		return
	}

	// Reader goroutine watches for the stop control while the writer streams.
	stop := make(chan struct{})
	go func() {
		defer close(stop)
		conn.SetReadDeadline(time.Time{})
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(msg) == session.StopControl {
				return
			}
		}
	}()

	sw := newSweep(scanBand(iface))
	ticker := time.NewTicker(s.opts.FrameInterval)
	defer ticker.Stop()
	deadline := time.After(time.Duration(duration) * time.Second)

	for {
		select {
		case <-stop:
			send(session.ScanMessage{Status: session.StatusStopped})
			return
		case <-deadline:
			send(session.ScanMessage{Status: session.StatusCompleted})
			return
		case <-ticker.C:
			for _, msg := range sw.next() {
				if err := send(msg); err != nil {
					return
				}
			}
		}
	}
}
