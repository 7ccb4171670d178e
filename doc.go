// Package goSoap provides a session-aware client adapter for a remote call
// protocol: one operation name plus one structured argument per call, with
// cookie based sessions that expire server side.
//
// A [Client] wraps a caller-supplied [Transport]. It restores the session
// cookies persisted by earlier processes, logs in when none are usable,
// translates native Go values to and from the wire value model, and
// transparently re-authenticates once when the server reports that the
// session has expired.
//
// # Architecture boundaries
//
// goSoap is the public surface. It exposes [Client], [Builder], [Config],
// [Credentials] and the error types. Value translation lives in codec,
// cookie persistence and locking in cookie, charset conversion in charset,
// and the login throttle in internal/rate.
//
// # What this package must NOT do
//
//   - Speak the underlying wire protocol itself (the Transport does).
//   - Log passwords or cookie values.
//   - Perform I/O during [Builder.Build]; [Builder.BuildAndConnect] is the
//     constructor that restores or creates a session.
//
// # Concurrency
//
// A Client is not designed for parallel calls. Metrics and audit dispatch
// are goroutine-safe, and re-authentication is serialized per session
// fingerprint across clients through a cookie.Locker.
package goSoap
