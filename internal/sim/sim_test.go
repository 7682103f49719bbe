package sim

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kaber420/mikroisp-manager-sub000/internal/client"
	"github.com/kaber420/mikroisp-manager-sub000/internal/session"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.RefreshInterval = 0 // tests broadcast explicitly
	opts.FrameInterval = 20 * time.Millisecond
	return opts
}

func startServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(opts)
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return s, ts
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func TestDeviceEndpoint(t *testing.T) {
	_, ts := startServer(t, testOptions())

	resp, err := http.Get(ts.URL + "/devices/sim-1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var d client.Device
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		t.Fatal(err)
	}
	if d.Name != "ap-simulated" {
		t.Errorf("name = %q", d.Name)
	}
	if d.PollIntervalSeconds == nil || *d.PollIntervalSeconds != 5 {
		t.Error("poll interval not exposed")
	}
}

func TestUnknownDevice(t *testing.T) {
	_, ts := startServer(t, testOptions())
	resp, err := http.Get(ts.URL + "/devices/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	opts := testOptions()
	opts.AuthToken = "secret"
	_, ts := startServer(t, opts)

	resp, err := http.Get(ts.URL + "/devices/sim-1")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/devices/sim-1", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("bearer status = %d, want 200", resp.StatusCode)
	}
}

func TestLiveAndStatistics(t *testing.T) {
	_, ts := startServer(t, testOptions())

	resp, err := http.Get(ts.URL + "/devices/sim-1/live")
	if err != nil {
		t.Fatal(err)
	}
	var sample session.TelemetrySample
	err = json.NewDecoder(resp.Body).Decode(&sample)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if sample.At.IsZero() {
		t.Error("sample timestamp empty")
	}
	if sample.CCQ < 0 || sample.CCQ > 100 {
		t.Errorf("ccq = %f out of range", sample.CCQ)
	}

	resp, err = http.Get(ts.URL + "/devices/sim-1/statistics")
	if err != nil {
		t.Fatal(err)
	}
	var stats client.DeviceStatistics
	err = json.NewDecoder(resp.Body).Decode(&stats)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if stats.UptimeSec < 0 {
		t.Errorf("uptime = %d", stats.UptimeSec)
	}
}

func dialScan(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/devices/sim-1/spectral-scan"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) session.ScanMessage {
	t.Helper()
	var msg session.ScanMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	return msg
}

// readUntil skips data frames while waiting for a specific status.
func readUntil(t *testing.T, conn *websocket.Conn, status string) session.ScanMessage {
	t.Helper()
	for {
		msg := readMsg(t, conn)
		if msg.Status == status {
			return msg
		}
		if msg.Status != session.StatusData {
			t.Fatalf("status %q while waiting for %q", msg.Status, status)
		}
	}
}

func TestScanProtocolCompletes(t *testing.T) {
	_, ts := startServer(t, testOptions())
	conn := dialScan(t, ts)

	if msg := readMsg(t, conn); msg.Status != session.StatusWaitingConfig {
		t.Fatalf("first status = %q, want waiting_config", msg.Status)
	}
	if err := conn.WriteJSON(session.ScanConfig{DurationSeconds: 1}); err != nil {
		t.Fatal(err)
	}
	if msg := readMsg(t, conn); msg.Status != session.StatusStarting {
		t.Fatalf("status = %q, want starting", msg.Status)
	}
	if msg := readMsg(t, conn); msg.Status != session.StatusPreparing {
		t.Fatalf("status = %q, want preparing", msg.Status)
	}
	msg := readMsg(t, conn)
	if msg.Status != session.StatusScanning {
		t.Fatalf("status = %q, want scanning", msg.Status)
	}
	if msg.DurationSeconds != 1 {
		t.Errorf("echoed duration = %d, want 1", msg.DurationSeconds)
	}

	sawData := false
	for {
		msg := readMsg(t, conn)
		if msg.Status == session.StatusCompleted {
			break
		}
		if msg.Status != session.StatusData {
			t.Fatalf("unexpected status %q", msg.Status)
		}
		sawData = true
		if msg.Frequency <= 0 {
			t.Errorf("data frame without frequency: %+v", msg)
		}
		if msg.Peak < msg.Signal {
			t.Errorf("peak %f below signal %f", msg.Peak, msg.Signal)
		}
	}
	if !sawData {
		t.Error("scan completed without any data frames")
	}
}

func TestScanStopControl(t *testing.T) {
	_, ts := startServer(t, testOptions())
	conn := dialScan(t, ts)

	readUntil(t, conn, session.StatusWaitingConfig)
	if err := conn.WriteJSON(session.ScanConfig{DurationSeconds: 60}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, session.StatusScanning)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(session.StopControl)); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, session.StatusStopped)
}

func TestScanUnknownInterface(t *testing.T) {
	_, ts := startServer(t, testOptions())
	conn := dialScan(t, ts)

	readUntil(t, conn, session.StatusWaitingConfig)
	iface := "wlan9"
	if err := conn.WriteJSON(session.ScanConfig{Interface: &iface, DurationSeconds: 30}); err != nil {
		t.Fatal(err)
	}
	msg := readMsg(t, conn)
	if msg.Status != session.StatusError {
		t.Fatalf("status = %q, want error", msg.Status)
	}
	if !strings.Contains(msg.Message, "wlan9") {
		t.Errorf("message = %q, want interface name", msg.Message)
	}
}

func TestScanUnsupportedDevice(t *testing.T) {
	opts := testOptions()
	opts.ScanSupported = false
	_, ts := startServer(t, opts)
	conn := dialScan(t, ts)

	msg := readMsg(t, conn)
	if msg.Status != session.StatusUnsupported {
		t.Fatalf("status = %q, want unsupported", msg.Status)
	}
	if msg.Message == "" {
		t.Error("unsupported outcome carries no explanation")
	}
}

func TestPushBroadcast(t *testing.T) {
	s, ts := startServer(t, testOptions())

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// The hub registers the client synchronously during the upgrade
	// handler, but give the HTTP round trip a moment on slow machines.
	deadline := time.Now().Add(2 * time.Second)
	for s.hub.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.hub.count() == 0 {
		t.Fatal("push client never registered")
	}

	s.hub.Broadcast(client.NotifyMessage{Type: client.NotifyRefresh, DeviceID: "sim-1"})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg client.NotifyMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != client.NotifyRefresh || msg.DeviceID != "sim-1" {
		t.Errorf("notification = %+v", msg)
	}
}

func TestSweepPeaksNeverRegress(t *testing.T) {
	sw := newSweep(scanBand("wlan1"))
	prev := make(map[float64]float64)
	for pass := 0; pass < 20; pass++ {
		for _, msg := range sw.next() {
			if p, ok := prev[msg.Frequency]; ok && msg.Peak < p {
				t.Fatalf("peak regressed at %.0f MHz: %f < %f", msg.Frequency, msg.Peak, p)
			}
			prev[msg.Frequency] = msg.Peak
		}
	}
}
