// Package adapter exposes the functions of a connected device as tools
// over a JSON-RPC endpoint.
package adapter

import (
	"encoding/json"
	"fmt"
)

// State is the connection state of the device.
type State int

// Connection states.
const (
	Disconnected State = iota
	Connecting
	Initializing
	Ready
	Failed
)

var stateNames = [...]string{
	Disconnected: "Disconnected",
	Connecting:   "Connecting",
	Initializing: "Initializing",
	Ready:        "Ready",
	Failed:       "Error",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Status is a snapshot of the connection.
type Status struct {
	State State
	// DeviceID is set when Ready.
	DeviceID string
	// Err describes the failure when Failed.
	Err string
}

// IsReady tells if commands can be sent.
func (s Status) IsReady() bool {
	return s.State == Ready
}

// Message describes the state for the user.
func (s Status) Message() string {
	switch s.State {
	case Disconnected:
		return "device not connected - check USB connection"
	case Connecting:
		return "device is connecting - please wait"
	case Initializing:
		return "device is initializing - please wait"
	case Ready:
		return "device is ready"
	}
	return "device error: " + s.Err
}

type statusJSON struct {
	State    string  `json:"state"`
	Message  string  `json:"message"`
	DeviceID *string `json:"device_id"`
	Ready    bool    `json:"ready"`
}

// MarshalJSON implements json.Marshaler.
func (s Status) MarshalJSON() ([]byte, error) {
	out := statusJSON{
		State:   s.State.String(),
		Message: s.Message(),
		Ready:   s.IsReady(),
	}
	if s.IsReady() {
		out.DeviceID = &s.DeviceID
	}
	return json.Marshal(&out)
}

// NotReadyError is returned when a command is sent before the device
// is ready.
type NotReadyError struct {
	Status Status
}

// Error implements error.
func (e *NotReadyError) Error() string {
	return "device not ready: " + e.Status.Message()
}
