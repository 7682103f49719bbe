package client

import (
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

const scanWriteTimeout = 10 * time.Second

// ScanStream is the persistent channel to the spectral-scan proxy. It
// implements session.ScanChannel.
type ScanStream struct {
	writeMu sync.Mutex // serialises conn writes (config, stop)
	conn    *websocket.Conn
	attempt int
}

// --- Bubble Tea messages ---
//
// Every channel message carries the dial attempt that produced it. Dials and
// blocking reads outlive the session that started them, so without the tag a
// stale close from an abandoned attempt would be indistinguishable from the
// current channel dropping; the app compares it against its own counter and
// discards leftovers.

// ScanConnectedMsg delivers the opened stream.
type ScanConnectedMsg struct {
	Stream  *ScanStream
	Attempt int
}

// ScanFrameMsg delivers one raw channel message, in arrival order.
type ScanFrameMsg struct {
	Data    []byte
	Attempt int
}

// ScanClosedMsg is sent when the channel closes, expectedly or not. Dial
// failures arrive here too, so every connectivity loss unwinds one way.
type ScanClosedMsg struct {
	Err     error
	Attempt int
}

// DialScan returns a command that opens the scan channel for a device.
func DialScan(url, token string, attempt int) tea.Cmd {
	return func() tea.Msg {
		var header http.Header
		if token != "" {
			header = http.Header{"Authorization": {"Bearer " + token}}
		}
		conn, _, err := websocket.DefaultDialer.Dial(url, header)
		if err != nil {
			return ScanClosedMsg{Err: err, Attempt: attempt}
		}
		return ScanConnectedMsg{Stream: &ScanStream{conn: conn, attempt: attempt}, Attempt: attempt}
	}
}

// Read returns a command that blocks for the next channel message. The app
// re-arms it after handling each frame, which keeps processing strictly in
// arrival order.
func (s *ScanStream) Read() tea.Cmd {
	return func() tea.Msg {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return ScanClosedMsg{Err: err, Attempt: s.attempt}
		}
		return ScanFrameMsg{Data: data, Attempt: s.attempt}
	}
}

// SendJSON writes one JSON message to the channel.
func (s *ScanStream) SendJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(scanWriteTimeout))
	return s.conn.WriteJSON(v)
}

// SendText writes one text control message to the channel.
func (s *ScanStream) SendText(text string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(scanWriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// Close tears the connection down. The pending Read unblocks with an error,
// which the session ignores once terminal.
func (s *ScanStream) Close() error {
	return s.conn.Close()
}
