package adapter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusJSON(t *testing.T) {
	tests := []struct {
		status Status
		json   string
	}{
		{Status{}, `{"state":"Disconnected","message":"device not connected - check USB connection","device_id":null,"ready":false}`},
		{Status{State: Initializing}, `{"state":"Initializing","message":"device is initializing - please wait","device_id":null,"ready":false}`},
		{Status{State: Ready, DeviceID: "rover-1"}, `{"state":"Ready","message":"device is ready","device_id":"rover-1","ready":true}`},
		{Status{State: Failed, Err: "port busy"}, `{"state":"Error","message":"device error: port busy","device_id":null,"ready":false}`},
	}
	for _, test := range tests {
		out, err := json.Marshal(test.status)
		require.NoError(t, err)
		require.JSONEq(t, test.json, string(out))
	}
}

func TestStateString(t *testing.T) {
	require.Equal(t, "Connecting", Connecting.String())
	require.Equal(t, "State(9)", State(9).String())
}

func TestNotReadyError(t *testing.T) {
	err := &NotReadyError{Status: Status{State: Connecting}}
	require.Equal(t, "device not ready: device is connecting - please wait", err.Error())
}
