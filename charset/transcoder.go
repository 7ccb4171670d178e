package charset

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

// WireCharset is the canonical charset of the protocol.
const WireCharset = "utf-8"

// ErrUnknownCharset is returned when a charset name cannot be resolved.
var ErrUnknownCharset = errors.New("unknown charset")

// Transcoder converts strings between a caller charset and UTF-8.
//
// A nil *Transcoder behaves as the UTF-8 identity.
type Transcoder struct {
	name     string
	enc      encoding.Encoding
	identity bool
}

// New resolves name (case-insensitive, IANA or WHATWG label) into a Transcoder.
// An empty name selects UTF-8.
func New(name string) (*Transcoder, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" || isUTF8(normalized) {
		return &Transcoder{name: WireCharset, identity: true}, nil
	}

	enc, err := lookup(normalized)
	if err != nil {
		return nil, err
	}

	return &Transcoder{name: normalized, enc: enc}, nil
}

// MustNew is like New but panics on an unknown charset. Intended for tests
// and package-level defaults.
func MustNew(name string) *Transcoder {
	t, err := New(name)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the normalized caller charset name.
func (t *Transcoder) Name() string {
	if t == nil {
		return WireCharset
	}
	return t.name
}

// Identity reports whether the caller charset is already UTF-8.
func (t *Transcoder) Identity() bool {
	return t == nil || t.identity
}

// ToWire converts s from the caller charset into UTF-8.
func (t *Transcoder) ToWire(s string) (string, error) {
	if t.Identity() || s == "" {
		return s, nil
	}
	out, err := t.enc.NewDecoder().String(s)
	if err != nil {
		return "", fmt.Errorf("charset %s to %s: %w", t.name, WireCharset, err)
	}
	return out, nil
}

// FromWire converts s from UTF-8 into the caller charset. Runes the caller
// charset cannot represent are replaced rather than rejected.
func (t *Transcoder) FromWire(s string) (string, error) {
	if t.Identity() || s == "" {
		return s, nil
	}
	out, err := encoding.ReplaceUnsupported(t.enc.NewEncoder()).String(s)
	if err != nil {
		return "", fmt.Errorf("charset %s to %s: %w", WireCharset, t.name, err)
	}
	return out, nil
}

func lookup(name string) (encoding.Encoding, error) {
	// IANA first so that iso-8859-1 stays latin1; the WHATWG index would map
	// it onto windows-1252.
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc, nil
	}
	if enc, err := htmlindex.Get(name); err == nil && enc != nil {
		return enc, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCharset, name)
}

func isUTF8(name string) bool {
	switch name {
	case "utf-8", "utf8", "unicode-1-1-utf-8":
		return true
	}
	return false
}
