package bluetooth

import "strconv"

// ControllerState describes the state of the local Bluetooth radio.
// The values follow the CoreBluetooth manager state numbering, which is
// what the host receives as the payload of a BluetoothStateChanged event.
type ControllerState int

const (
	StateUnknown      ControllerState = 0
	StateResetting    ControllerState = 1
	StateUnsupported  ControllerState = 2
	StateUnauthorized ControllerState = 3
	StatePoweredOff   ControllerState = 4
	StatePoweredOn    ControllerState = 5
)

// String returns the name of the state.
func (c ControllerState) String() string {
	switch c {
	case StateResetting:
		return "resetting"
	case StateUnsupported:
		return "unsupported"
	case StateUnauthorized:
		return "unauthorized"
	case StatePoweredOff:
		return "powered-off"
	case StatePoweredOn:
		return "powered-on"
	}

	return "unknown"
}

// Payload returns the numeric host payload of the state.
func (c ControllerState) Payload() string {
	return strconv.Itoa(int(c))
}

// Available reports whether sessions can be opened in this state.
func (c ControllerState) Available() bool {
	return c == StatePoweredOn
}
