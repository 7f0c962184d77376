package bluetooth

// Bridge describes the interface invoked by the host runtime.
type Bridge interface {
	// SendEventToHost queues an event for the host and returns immediately.
	SendEventToHost(eventName, payload string)

	// EnumerateDevices scans for accessories and returns them as a JSON array.
	// An empty scan returns "[]".
	EnumerateDevices() string

	// SetupController binds the bridge to the accessory with the given identifier.
	SetupController(connectionID string) bool

	// OpenSession opens a session with the bound accessory.
	OpenSession() bool

	// CloseSession closes the open session, if any, and cancels an in-flight scan.
	CloseSession()
}
