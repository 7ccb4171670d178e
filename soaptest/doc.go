// Package soaptest provides a scripted in-memory [goSoap.Transport] for
// tests and demos of code built on goSoap.
//
// # What this package must NOT do
//
//   - Open network connections.
//   - Model envelopes, HTTP or any other wire detail below the Transport interface.
package soaptest
