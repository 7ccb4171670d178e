// Package codec translates native Go values to and from the wire value model.
//
// # Encoding
//
// Native arguments are classified once at the boundary (scalar, list,
// associative, record) and then encoded recursively into [wire.Value]. Shape
// violations (nested maps, null values, complex keys, lists of lists) are
// reported as [Diagnostic] values. Under [ValidationDrop] the offending entry
// is dropped and encoding continues; under [ValidationStrict] the whole
// encode fails with a [*ValidationError].
//
// # Decoding
//
// Replies are decoded back into []any, [Assoc], [Object] and [Collection].
// The decoder re-wraps the protocol's collapsed single-element lists so
// callers always see a uniform list.
//
// # What this package must NOT do
//
//   - Perform I/O or know about sessions and transports.
//   - Mutate caller-supplied values.
package codec
