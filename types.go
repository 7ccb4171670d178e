package goSoap

import (
	"context"

	"github.com/MrEthical07/goSoap/codec"
	"github.com/MrEthical07/goSoap/wire"
)

// Transport performs one remote operation. Implementations return *Fault for
// application faults and any other error for transport failures.
type Transport interface {
	Call(ctx context.Context, method string, params wire.Value) (wire.Value, error)
	// LastResponseHeaders returns the raw header text of the last reply.
	LastResponseHeaders() string
	// SetCookie installs a cookie for subsequent calls, replacing any cookie
	// with the same name.
	SetCookie(name, value string)
}

// Credentials identify one session on one endpoint. An empty Account is sent
// as an explicit null. Charset, when set, overrides Config.Charset.
type Credentials struct {
	Login    string `toml:"login"`
	Password string `toml:"password"`
	Account  string `toml:"account"`
	Endpoint string `toml:"endpoint"`
	Charset  string `toml:"charset"`
}

// DiagnosticHandler receives the values an encode dropped or rejected.
type DiagnosticHandler func(ctx context.Context, method string, diags []codec.Diagnostic)

type callState uint8

const (
	stateIdle callState = iota
	stateEncoding
	stateAwaitingTransport
	stateReauthenticating
	stateDecoding
	stateDone
	stateFailed
)

func (s callState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateEncoding:
		return "encoding"
	case stateAwaitingTransport:
		return "awaiting_transport"
	case stateReauthenticating:
		return "reauthenticating"
	case stateDecoding:
		return "decoding"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}
