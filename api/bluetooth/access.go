package bluetooth

import (
	"context"
	"time"
)

// AccessAuthorizer describes an interface for authorizing access to an accessory.
// It is consulted every time a session is opened.
type AccessAuthorizer interface {
	// AuthorizeSession returns a non-nil error to deny the session.
	// The authorizer should give up once the timeout is done.
	AuthorizeSession(timeout AccessTimeout, device DeviceData) error
}

// AccessTimeout describes an authorization timeout duration.
// The context value is created with 'context.WithTimeout()'.
type AccessTimeout struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewAccessTimeout returns a new authorization timeout token.
func NewAccessTimeout(timeout time.Duration) AccessTimeout {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	return AccessTimeout{ctx, cancel}
}

// Done returns the inner context's Done() channel.
func (a *AccessTimeout) Done() <-chan struct{} {
	return a.ctx.Done()
}

// Cancel cancels the inner context.
func (a *AccessTimeout) Cancel() {
	a.cancel()
}

// DefaultAuthorizer describes a default authorization handler.
type DefaultAuthorizer struct{}

// AuthorizeSession accepts all session requests.
func (DefaultAuthorizer) AuthorizeSession(AccessTimeout, DeviceData) error {
	return nil
}

// AuthorizerFunc adapts a function to an AccessAuthorizer.
type AuthorizerFunc func(timeout AccessTimeout, device DeviceData) error

// AuthorizeSession calls f(timeout, device).
func (f AuthorizerFunc) AuthorizeSession(timeout AccessTimeout, device DeviceData) error {
	return f(timeout, device)
}
