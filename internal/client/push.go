package client

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// PushListener subscribes to the manager's global push channel, which
// announces "new data is available". Whether a refresh actually runs is the
// app's call: it drops the event while an intrusive session holds the gate.
type PushListener struct {
	url   string
	token string

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewPushListener creates a listener for the given WebSocket URL.
func NewPushListener(url, token string) *PushListener {
	return &PushListener{url: url, token: token}
}

// --- Bubble Tea messages ---

// PushConnectedMsg is sent when the push channel connects.
type PushConnectedMsg struct{}

// PushDisconnectedMsg is sent when the push channel drops.
type PushDisconnectedMsg struct{ Err error }

// PushRefreshMsg announces that refreshed data is available server-side.
type PushRefreshMsg struct{ DeviceID string }

// Listen returns a command that connects and reconnects with backoff.
func (l *PushListener) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		delay := reconnectBaseDelay
		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			conn, _, err := websocket.DefaultDialer.Dial(l.url, nil)
			if err != nil {
				log.Printf("push dial error: %v (retry in %v)", err, delay)
				time.Sleep(delay)
				delay = min(delay*2, reconnectMaxDelay)
				continue
			}

			l.mu.Lock()
			l.conn = conn
			l.mu.Unlock()
			return PushConnectedMsg{}
		}
	}
}

// ReadLoop returns a command that reads notifications until the connection
// drops. Start it after PushConnectedMsg.
func (l *PushListener) ReadLoop(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		l.mu.Lock()
		conn := l.conn
		l.mu.Unlock()
		if conn == nil {
			return PushDisconnectedMsg{}
		}

		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			_, data, err := conn.ReadMessage()
			if err != nil {
				l.mu.Lock()
				if l.conn == conn {
					l.conn = nil
				}
				l.mu.Unlock()
				conn.Close()
				return PushDisconnectedMsg{Err: err}
			}

			var msg NotifyMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if msg.Type == NotifyRefresh {
				return PushRefreshMsg{DeviceID: msg.DeviceID}
			}
			// Unknown notification types are skipped.
		}
	}
}
