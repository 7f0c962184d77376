package platform

import "runtime"

// BluetoothStack names the Bluetooth stack behind an accessory driver.
type BluetoothStack string

const (
	BluezStack BluetoothStack = "BlueZ (DBus)"

	// SimulatorStack is reported by the simulated driver, which is used on
	// platforms without a native driver and when simulation is configured.
	SimulatorStack BluetoothStack = "Simulated"
)

// PlatformInfo describes the platform a bridge runs on.
type PlatformInfo struct {
	OS    string         `json:"os,omitempty"`
	Stack BluetoothStack `json:"bluetooth_stack,omitempty"`
}

// NewPlatformInfo returns the PlatformInfo of the running binary.
func NewPlatformInfo(stack BluetoothStack) PlatformInfo {
	return PlatformInfo{
		OS:    runtime.GOOS + " (" + runtime.GOARCH + ")",
		Stack: stack,
	}
}

// String converts a BluetoothStack to a string.
func (b BluetoothStack) String() string {
	return string(b)
}

// Simulated reports whether the driver is simulated.
func (p PlatformInfo) Simulated() bool {
	return p.Stack == SimulatorStack
}
