package bluetooth

// HostDispatcher delivers events to the host runtime.
type HostDispatcher interface {
	// SendEventToHost calls the host method with the message as its only argument.
	SendEventToHost(methodName, message string)
}

// HostDispatcherFunc adapts a function to a HostDispatcher.
type HostDispatcherFunc func(methodName, message string)

// SendEventToHost calls f(methodName, message).
func (f HostDispatcherFunc) SendEventToHost(methodName, message string) {
	f(methodName, message)
}

// NilDispatcher discards all events.
type NilDispatcher struct{}

// SendEventToHost does not do anything.
func (NilDispatcher) SendEventToHost(string, string) {}
