package goSoap

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goSoap/cookie"
)

var (
	// ErrClientNotReady is returned by methods of a nil or unbuilt Client.
	ErrClientNotReady = errors.New("client not initialized")
	// ErrTransportRequired is returned by Build without a Transport.
	ErrTransportRequired = errors.New("transport required")
	// ErrCredentialsRequired is returned by Build without a login.
	ErrCredentialsRequired = errors.New("credentials required")
	// ErrRetryExhausted is wrapped by a CallError when the session kept
	// expiring after re-authentication.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
	// ErrLoginRateLimited is wrapped by an AuthError when the login throttle
	// refused a fresh login.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrSessionExpired is wrapped, next to ErrRetryExhausted, by the
	// CallError of a call whose session kept expiring.
	ErrSessionExpired = errors.New("session expired")
	// ErrLockTimeout is returned when the re-authentication lock is not
	// acquired in time.
	ErrLockTimeout = cookie.ErrLockTimeout
)

var errRetryExhaustedExpired = fmt.Errorf("%w: %w", ErrRetryExhausted, ErrSessionExpired)

// Fault is an application-level failure reported by the remote service.
// Transports return it for protocol faults.
type Fault struct {
	Kind    string
	Message string
}

func (f *Fault) Error() string {
	if f.Kind == "" {
		return "fault: " + f.Message
	}
	return "fault " + f.Kind + ": " + f.Message
}

// AuthError reports a failed session restore or login. Fingerprint is the
// log-safe prefix of the session fingerprint.
type AuthError struct {
	Fingerprint string
	Message     string
	Err         error
}

func (e *AuthError) Error() string {
	msg := "login failed"
	if e.Fingerprint != "" {
		msg += " for session " + e.Fingerprint
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// CallError reports a failed Call. Fault is set when the service answered
// with a fault; Err holds the cause otherwise, or ErrRetryExhausted.
type CallError struct {
	Method   string
	Attempts int
	Fault    *Fault
	Err      error
}

func (e *CallError) Error() string {
	msg := "call " + e.Method + " failed"
	switch {
	case e.Err != nil && e.Fault != nil:
		return msg + ": " + e.Err.Error() + ": " + e.Fault.Error()
	case e.Err != nil:
		return msg + ": " + e.Err.Error()
	case e.Fault != nil:
		return msg + ": " + e.Fault.Error()
	}
	return msg
}

func (e *CallError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Fault != nil {
		errs = append(errs, e.Fault)
	}
	return errs
}

// TransportError wraps a non-fault transport failure. Such failures are
// never retried.
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return "transport " + e.Method + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
