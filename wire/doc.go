// Package wire defines the typed value model exchanged with the remote
// protocol: scalars, sequences, ordered maps, named-field records and paged
// collections.
//
// The model is a closed variant. [Value] can only be implemented inside this
// package, so every consumer can switch exhaustively on [Kind].
//
// # What this package must NOT do
//
//   - Know about caller charsets; strings in a Value are always UTF-8.
//   - Interpret native Go values (that boundary belongs to codec).
package wire
