package bluetooth

// EventID describes the identifier of a host event.
type EventID uint

const (
	EventNone EventID = iota
	EventBluetoothStateChanged
	EventTrameReceived
	EventAccessoryDisconnect
	EventBridgeError
)

// Events returns all the host event identifiers.
func Events() []EventID {
	return []EventID{
		EventBluetoothStateChanged,
		EventTrameReceived,
		EventAccessoryDisconnect,
		EventBridgeError,
	}
}

// Value returns the numeric value of the event identifier.
func (e EventID) Value() uint {
	return uint(e)
}

// String returns the host method name that receives the event.
func (e EventID) String() string {
	switch e {
	case EventBluetoothStateChanged:
		return "BluetoothStateChanged"
	case EventTrameReceived:
		return "OnTrameReceived"
	case EventAccessoryDisconnect:
		return "OnAccessoryDisconnect"
	case EventBridgeError:
		return "OnBridgeError"
	}

	return ""
}

// ParseEventID returns the event identifier of a host method name.
func ParseEventID(methodName string) EventID {
	for _, id := range Events() {
		if id.String() == methodName {
			return id
		}
	}

	return EventNone
}

// HostEvent holds an event that is delivered to the host.
type HostEvent struct {
	ID      EventID
	Method  string
	Payload string
}
