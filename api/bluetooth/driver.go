package bluetooth

import (
	"context"
	"io"
)

// Driver describes the platform Bluetooth stack used by a bridge.
type Driver interface {
	// Start initializes the driver. notify is called with every
	// controller state change, including the initial state.
	Start(notify func(ControllerState)) error

	// Stop releases all the resources held by the driver.
	Stop() error

	// State returns the current controller state.
	State() ControllerState

	// Devices returns the accessories that a controller can be bound to.
	// The scan stops when ctx is done.
	Devices(ctx context.Context) ([]DeviceData, error)

	// Dial opens a data stream to the accessory.
	Dial(ctx context.Context, device DeviceData) (io.ReadWriteCloser, error)
}
