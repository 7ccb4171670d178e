// Package rate provides the Redis-backed login throttle used before a client
// performs a fresh login.
//
// # Window semantics
//
// One fixed window per fingerprint at <prefix>:login:<fingerprint>. A single
// Lua script checks the budget, increments and starts the window on the
// first login, so concurrent processes cannot overshoot MaxLogins.
//
// # What this package must NOT do
//
//   - Decide when a login is needed (the session manager does).
//   - Be imported outside the goSoap module.
package rate
