// Package client provides the REST client, the spectral-scan WebSocket
// stream and the push-notification listener used by the monitoring TUI.
// Types mirror the manager's wire protocol.
package client

import "time"

// Device is the record returned by GET /devices/{id}.
type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Model    string `json:"model"`
	Address  string `json:"address"`
	Identity string `json:"identity,omitempty"`
	// PollIntervalSeconds is nil when the device has no configured live
	// polling interval; starting a live session then fails with a
	// not-configured prompt instead of a generic error.
	PollIntervalSeconds *int `json:"pollIntervalSeconds"`
}

// WirelessInterface is one entry of GET /devices/{id}/wireless-interfaces,
// offered to the user before a scan starts.
type WirelessInterface struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// DeviceStatistics is the historical (non-live) view of a device, reloaded
// once after every intrusive session ends.
type DeviceStatistics struct {
	LastSeen     time.Time `json:"lastSeen"`
	UptimeSec    int64     `json:"uptimeSec"`
	AvgSignalDBm float64   `json:"avgSignal"`
	AvgCCQ       float64   `json:"avgCcq"`
	AvgCPULoad   float64   `json:"avgCpu"`
	TxBytes      int64     `json:"txBytes"`
	RxBytes      int64     `json:"rxBytes"`
}

// NotifyMessage is the envelope on the global push channel. The only type
// the core cares about is "refresh"; everything else is ignored.
type NotifyMessage struct {
	Type     string `json:"type"`
	DeviceID string `json:"deviceId,omitempty"`
}

// NotifyRefresh announces that new data is available server-side.
const NotifyRefresh = "refresh"
