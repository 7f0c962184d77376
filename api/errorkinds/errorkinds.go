package errorkinds

import "errors"

// Bridge errors.
var (
	ErrBridgeClosed       = errors.New("bridge is closed")
	ErrInvalidIdentifier  = errors.New("connection identifier is empty")
	ErrControllerNotFound = errors.New("controller not found")
	ErrNoController       = errors.New("no controller is bound")
	ErrSessionExists      = errors.New("a session is already open")
	ErrSessionNotExist    = errors.New("session does not exist")
)

// Platform errors.
var (
	ErrAdapterNotFound   = errors.New("no bluetooth adapter found")
	ErrAdapterNotPowered = errors.New("bluetooth adapter is not powered on")
	ErrNotAuthorized     = errors.New("bluetooth access is not authorized")
	ErrNotSupported      = errors.New("operation is not supported")
	ErrMethodCall        = errors.New("method call failed")
	ErrMethodTimeout     = errors.New("method call timed out")
	ErrInvalidAddress    = errors.New("invalid bluetooth address")
)

// Data errors.
var (
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrMalformedTrame   = errors.New("malformed trame")
	ErrUnsupportedTrame = errors.New("unsupported trame")
)
