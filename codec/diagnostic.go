package codec

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation is wrapped by every ValidationError.
	ErrValidation = errors.New("value rejected by encoder")
	// ErrEmptyReply is returned when a reply record carries no fields.
	ErrEmptyReply = errors.New("empty reply")
	// ErrMalformedReply is returned when a wrapper shape is structurally wrong.
	ErrMalformedReply = errors.New("malformed reply")
)

// Policy selects how the encoder reacts to shape violations.
type Policy uint8

const (
	// ValidationDrop drops offending entries and reports them as diagnostics.
	ValidationDrop Policy = iota
	// ValidationStrict fails the whole encode on the first pass that reports
	// any diagnostic.
	ValidationStrict
)

func (p Policy) String() string {
	switch p {
	case ValidationDrop:
		return "drop"
	case ValidationStrict:
		return "strict"
	default:
		return fmt.Sprintf("policy(%d)", uint8(p))
	}
}

// ParsePolicy maps "drop" and "strict" onto a Policy. Empty means drop.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop":
		return ValidationDrop, nil
	case "strict":
		return ValidationStrict, nil
	}
	return 0, fmt.Errorf("unknown validation policy %q", s)
}

// MarshalText renders the policy name.
func (p Policy) MarshalText() ([]byte, error) {
	switch p {
	case ValidationDrop, ValidationStrict:
		return []byte(p.String()), nil
	}
	return nil, fmt.Errorf("unknown validation policy %d", uint8(p))
}

// UnmarshalText parses a policy name, see ParsePolicy.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Reason classifies a Diagnostic.
type Reason string

const (
	ReasonComplexKey    Reason = "complex_key"
	ReasonNullValue     Reason = "null_value"
	ReasonNestedObject  Reason = "nested_object"
	ReasonNestedMap     Reason = "nested_map"
	ReasonNestedList    Reason = "nested_list"
	ReasonInvalidParams Reason = "invalid_params"
	ReasonUnsupported   Reason = "unsupported_value"
	ReasonCharset       Reason = "charset"
)

// Diagnostic describes one value the encoder refused to carry.
type Diagnostic struct {
	Path    string
	Reason  Reason
	Message string
}

func (d Diagnostic) String() string {
	return d.Path + ": " + string(d.Reason) + ": " + d.Message
}

// ValidationError lists every diagnostic of a strict encode.
type ValidationError struct {
	Diagnostics []Diagnostic
}

func (e *ValidationError) Error() string {
	if len(e.Diagnostics) == 0 {
		return ErrValidation.Error()
	}
	if len(e.Diagnostics) == 1 {
		return ErrValidation.Error() + ": " + e.Diagnostics[0].String()
	}
	return fmt.Sprintf("%s: %s (and %d more)", ErrValidation, e.Diagnostics[0], len(e.Diagnostics)-1)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
