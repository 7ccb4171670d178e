package wire

import (
	"fmt"
	"strconv"
)

// Kind tags the shape of a Value.
type Kind uint8

const (
	// KindScalar is a string, number, bool, or explicit null.
	KindScalar Kind = iota + 1
	// KindSequence is the protocol "array".
	KindSequence
	// KindMap is an ordered list of key/value pairs.
	KindMap
	// KindRecord is a named-field entity.
	KindRecord
	// KindCollection is a paged result set.
	KindCollection
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMap:
		return "map"
	case KindRecord:
		return "record"
	case KindCollection:
		return "collection"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is any shape the protocol can carry.
type Value interface {
	Kind() Kind
	sealed()
}

// Scalar holds a string, int64, float64, bool, or nil (explicit null).
type Scalar struct {
	V any
}

// Null is the explicit null scalar.
var Null = Scalar{}

// String, Int, Float and Bool build scalars.
func String(s string) Scalar { return Scalar{V: s} }
func Int(i int64) Scalar     { return Scalar{V: i} }
func Float(f float64) Scalar { return Scalar{V: f} }
func Bool(b bool) Scalar     { return Scalar{V: b} }

func (Scalar) Kind() Kind { return KindScalar }
func (Scalar) sealed()    {}

// IsNull reports whether s is the explicit null.
func (s Scalar) IsNull() bool { return s.V == nil }

// IsText reports whether s holds a string.
func (s Scalar) IsText() bool {
	_, ok := s.V.(string)
	return ok
}

// Text returns the string held by s, or "".
func (s Scalar) Text() string {
	v, _ := s.V.(string)
	return v
}

// Int64 converts numeric and textual scalars to int64.
func (s Scalar) Int64() (int64, bool) {
	switch v := s.V.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

func (s Scalar) String() string {
	if s.V == nil {
		return "null"
	}
	return fmt.Sprint(s.V)
}

// Sequence is the protocol's ordered list.
type Sequence []Value

func (Sequence) Kind() Kind { return KindSequence }
func (Sequence) sealed()    {}

// Pair is one entry of a Map. Keys are string or int64 scalars.
type Pair struct {
	Key   Scalar
	Value Value
}

// Map is an associative shape. Order is kept for wire fidelity only.
type Map []Pair

func (Map) Kind() Kind { return KindMap }
func (Map) sealed()    {}

// Field is one named member of a Record.
type Field struct {
	Name  string
	Value Value
}

// Record is a named-field entity. Type is the optional explicit type tag.
// A name may repeat when the transport reports repeated child elements.
type Record struct {
	Type   string
	Fields []Field
}

func (*Record) Kind() Kind { return KindRecord }
func (*Record) sealed()    {}

// NewRecord builds an untyped record from fields.
func NewRecord(fields ...Field) *Record {
	return &Record{Fields: fields}
}

// F is shorthand for a Field literal.
func F(name string, v Value) Field {
	return Field{Name: name, Value: v}
}

// Len returns the number of fields, counting repeats.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Fields)
}

// Get returns the first field value named name.
func (r *Record) Get(name string) (Value, bool) {
	if r == nil {
		return nil, false
	}
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Has reports whether a field named name exists.
func (r *Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// All returns every value stored under name, in order.
func (r *Record) All(name string) []Value {
	if r == nil {
		return nil
	}
	var out []Value
	for _, f := range r.Fields {
		if f.Name == name {
			out = append(out, f.Value)
		}
	}
	return out
}

// Names returns the distinct field names in first-seen order.
func (r *Record) Names() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(r.Fields))
	out := make([]string, 0, len(r.Fields))
	for _, f := range r.Fields {
		if _, ok := seen[f.Name]; ok {
			continue
		}
		seen[f.Name] = struct{}{}
		out = append(out, f.Name)
	}
	return out
}

// Set appends a field.
func (r *Record) Set(name string, v Value) {
	r.Fields = append(r.Fields, Field{Name: name, Value: v})
}

// Collection is a paged result set.
type Collection struct {
	Start  int64
	Length int64
	Total  int64
	Items  []Value
}

func (*Collection) Kind() Kind { return KindCollection }
func (*Collection) sealed()    {}

// KindOf returns the kind of v, or 0 for a nil Value.
func KindOf(v Value) Kind {
	if v == nil {
		return 0
	}
	return v.Kind()
}
