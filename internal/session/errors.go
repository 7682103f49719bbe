package session

import "errors"

// Precondition failures. Neither starts a session; both are resolved with a
// corrective prompt rather than a retry.
var (
	// ErrSessionActive means another intrusive session holds the gate.
	ErrSessionActive = errors.New("another live session is already running")

	// ErrNotConfigured means the device has no usable polling interval.
	// The remedy is configuring the device, not retrying.
	ErrNotConfigured = errors.New("device has no polling interval configured")
)

// EndKind classifies how a session reached its terminal state.
type EndKind int

const (
	// EndUser: the user stopped the session.
	EndUser EndKind = iota
	// EndExpired: the session's own countdown ran out.
	EndExpired
	// EndTransport: a poll fetch failed or the channel dropped unexpectedly.
	EndTransport
	// EndCompleted: the server reported the scan finished normally.
	EndCompleted
	// EndStopped: the server reported the scan was stopped.
	EndStopped
	// EndUnsupported: the device cannot perform the operation. Distinct
	// from EndDeviceError so the UI can show the device-specific
	// explanation instead of a generic failure.
	EndUnsupported
	// EndDeviceError: the server diagnosed an error the client cannot.
	EndDeviceError
)

var endKindNames = map[EndKind]string{
	EndUser:        "stopped by user",
	EndExpired:     "time limit reached",
	EndTransport:   "connection lost",
	EndCompleted:   "completed",
	EndStopped:     "stopped",
	EndUnsupported: "not supported by device",
	EndDeviceError: "device error",
}

func (k EndKind) String() string {
	if s, ok := endKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// EndReason is the terminal outcome of a session. All session resources are
// released before an EndReason is surfaced, never after.
type EndReason struct {
	Kind    EndKind
	Err     error  // set for EndTransport
	Message string // server-supplied text for EndUnsupported/EndDeviceError
}

// Failed reports whether the outcome should read as a failure to the user.
func (r EndReason) Failed() bool {
	switch r.Kind {
	case EndTransport, EndDeviceError, EndUnsupported:
		return true
	}
	return false
}
