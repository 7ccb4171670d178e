// Package charset converts text between the charset a caller works in and the
// UTF-8 charset used on the wire.
//
// # Architecture boundaries
//
// Every string that crosses the codec boundary funnels through a [Transcoder].
// The package resolves charset names once, at construction, so the hot path is
// a single transform (or nothing at all for UTF-8 callers).
//
// # What this package must NOT do
//
//   - Import goSoap, codec, or wire (it is a leaf).
//   - Fail on unrepresentable runes when writing back to the caller charset;
//     those are substituted, mirroring transliteration.
package charset
