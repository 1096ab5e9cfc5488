package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

const (
	appID        = "mcplink"
	machineIDLen = 16
	fallbackID   = "mcplink-sim"
)

// MachineID retrieves an ID identifying the machine, hashed with the
// application name so the raw machine id is not exposed.
func MachineID() string {
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return fallbackID
	}
	if len(id) > machineIDLen {
		id = id[:machineIDLen]
	}
	return id
}
