package codec

import (
	"fmt"
	"strconv"

	"github.com/MrEthical07/goSoap/charset"
	"github.com/MrEthical07/goSoap/wire"
)

// RootPath prefixes every diagnostic path produced by EncodeParams.
const RootPath = "params"

// Encoder turns native values into wire values. It is safe for concurrent use.
type Encoder struct {
	tr     *charset.Transcoder
	policy Policy
}

// NewEncoder builds an Encoder. A nil transcoder means UTF-8.
func NewEncoder(tr *charset.Transcoder, policy Policy) *Encoder {
	return &Encoder{tr: tr, policy: policy}
}

// Policy returns the configured validation policy.
func (e *Encoder) Policy() Policy {
	return e.policy
}

// Encode converts v. Diagnostics are returned under both policies; under
// ValidationStrict a non-empty diagnostic list also yields a *ValidationError
// and a nil value.
func (e *Encoder) Encode(v any) (wire.Value, []Diagnostic, error) {
	st := &encodeState{tr: e.tr}
	out := st.value("value", classify(v))
	return e.finish(out, st.diags)
}

// EncodeParams wraps top-level call parameters into a single record.
func (e *Encoder) EncodeParams(params any) (*wire.Record, []Diagnostic, error) {
	st := &encodeState{tr: e.tr}
	rec := st.params(classify(params))
	out, diags, err := e.finish(rec, st.diags)
	if err != nil {
		return nil, diags, err
	}
	return out.(*wire.Record), diags, nil
}

func (e *Encoder) finish(v wire.Value, diags []Diagnostic) (wire.Value, []Diagnostic, error) {
	if e.policy == ValidationStrict && len(diags) > 0 {
		return nil, diags, &ValidationError{Diagnostics: diags}
	}
	return v, diags, nil
}

type encodeState struct {
	tr    *charset.Transcoder
	diags []Diagnostic
}

func (s *encodeState) reject(path string, reason Reason, format string, args ...any) {
	s.diags = append(s.diags, Diagnostic{
		Path:    path,
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
	})
}

func (s *encodeState) params(n native) *wire.Record {
	rec := wire.NewRecord()
	switch n.shape {
	case shapeNull:
		return rec
	case shapeRecord:
	case shapeAssoc:
		for _, e := range n.entries {
			if k, _ := normalizeKey(e.Key); !isStringKey(k) {
				s.reject(RootPath, ReasonInvalidParams, "parameter names must be strings, got %v", e.Key)
				return rec
			}
		}
	case shapeWire:
		if r, ok := n.raw.(*wire.Record); ok && r != nil {
			return r
		}
		s.reject(RootPath, ReasonInvalidParams, "parameters must be record-like, got %s", wire.KindOf(n.raw))
		return rec
	default:
		s.reject(RootPath, ReasonInvalidParams, "parameters must be record-like, got %s", n.shape)
		return rec
	}

	for _, e := range n.entries {
		key, _ := normalizeKey(e.Key)
		name := key.(string)
		path := RootPath + "." + name
		field, ok := s.text(path, name)
		if !ok {
			continue
		}
		child := classify(e.Value)
		if child.shape == shapeNull {
			rec.Set(field, wire.Null)
			continue
		}
		if v := s.value(path, child); v != nil {
			rec.Set(field, v)
		}
	}
	return rec
}

// value dispatches on shape. A nil return means the value was rejected.
func (s *encodeState) value(path string, n native) wire.Value {
	switch n.shape {
	case shapeNull:
		return wire.Null
	case shapeScalar:
		sc, ok := s.scalar(path, n.scalar)
		if !ok {
			return nil
		}
		return sc
	case shapeAssoc:
		return s.assoc(path, n.entries)
	case shapeList:
		return s.list(path, n.list)
	case shapeRecord:
		return s.record(path, n.entries)
	case shapeWire:
		return n.raw
	}
	s.reject(path, ReasonUnsupported, "cannot encode %s", n.goType)
	return nil
}

func (s *encodeState) assoc(path string, entries []Entry) wire.Map {
	out := make(wire.Map, 0, len(entries))
	for _, e := range entries {
		key, ok := normalizeKey(e.Key)
		if !ok {
			s.reject(path, ReasonComplexKey, "map key of type %T is not a string or integer", e.Key)
			continue
		}
		entryPath := path + "[" + keyString(key) + "]"

		var wireKey wire.Scalar
		switch k := key.(type) {
		case string:
			t, ok := s.text(entryPath, k)
			if !ok {
				continue
			}
			wireKey = wire.String(t)
		case int64:
			wireKey = wire.Int(k)
		}

		child := classify(e.Value)
		switch child.shape {
		case shapeNull:
			s.reject(entryPath, ReasonNullValue, "map values may not be null")
			continue
		case shapeRecord:
			s.reject(entryPath, ReasonNestedObject, "map values may not be records")
			continue
		case shapeAssoc:
			s.reject(entryPath, ReasonNestedMap, "maps may not nest")
			continue
		case shapeList:
			s.reject(entryPath, ReasonNestedList, "map values may not be lists")
			continue
		case shapeWire:
			sc, isScalar := child.raw.(wire.Scalar)
			if !isScalar || sc.IsNull() {
				s.reject(entryPath, ReasonNestedMap, "map values must be scalars, got %s", wire.KindOf(child.raw))
				continue
			}
			out = append(out, wire.Pair{Key: wireKey, Value: sc})
			continue
		case shapeUnsupported:
			s.reject(entryPath, ReasonUnsupported, "cannot encode %s", child.goType)
			continue
		}

		sc, ok := s.scalar(entryPath, child.scalar)
		if !ok {
			continue
		}
		out = append(out, wire.Pair{Key: wireKey, Value: sc})
	}
	return out
}

func (s *encodeState) list(path string, items []any) wire.Sequence {
	out := make(wire.Sequence, 0, len(items))
	for i, item := range items {
		itemPath := path + "[" + strconv.Itoa(i) + "]"
		child := classify(item)
		switch child.shape {
		case shapeRecord:
			out = append(out, s.record(itemPath, child.entries))
		case shapeList, shapeAssoc:
			s.reject(itemPath, ReasonNestedList, "list elements may not be lists or maps")
		case shapeNull:
			out = append(out, wire.Null)
		case shapeWire:
			out = append(out, child.raw)
		case shapeScalar:
			if sc, ok := s.scalar(itemPath, child.scalar); ok {
				out = append(out, sc)
			}
		default:
			s.reject(itemPath, ReasonUnsupported, "cannot encode %s", child.goType)
		}
	}
	return out
}

func (s *encodeState) record(path string, fields []Entry) *wire.Record {
	rec := wire.NewRecord()
	for _, f := range fields {
		key, ok := normalizeKey(f.Key)
		if !ok {
			s.reject(path, ReasonComplexKey, "field name of type %T is not a string or integer", f.Key)
			continue
		}
		fieldPath := path + "." + keyString(key)
		name, ok := s.text(fieldPath, keyString(key))
		if !ok {
			continue
		}

		child := classify(f.Value)
		switch child.shape {
		case shapeNull:
			s.reject(fieldPath, ReasonNullValue, "record fields may not be null")
		case shapeRecord:
			s.reject(fieldPath, ReasonNestedObject, "records may not nest")
		case shapeAssoc:
			rec.Set(name, s.assoc(fieldPath, child.entries))
		case shapeList:
			rec.Set(name, s.list(fieldPath, child.list))
		case shapeWire:
			if r, isRecord := child.raw.(*wire.Record); isRecord && r != nil {
				s.reject(fieldPath, ReasonNestedObject, "records may not nest")
				continue
			}
			rec.Set(name, child.raw)
		case shapeScalar:
			if sc, ok := s.scalar(fieldPath, child.scalar); ok {
				rec.Set(name, sc)
			}
		default:
			s.reject(fieldPath, ReasonUnsupported, "cannot encode %s", child.goType)
		}
	}
	return rec
}

func (s *encodeState) scalar(path string, v any) (wire.Scalar, bool) {
	if str, ok := v.(string); ok {
		t, ok := s.text(path, str)
		if !ok {
			return wire.Null, false
		}
		return wire.String(t), true
	}
	return wire.Scalar{V: v}, true
}

func isStringKey(k any) bool {
	_, ok := k.(string)
	return ok
}

func (s *encodeState) text(path, str string) (string, bool) {
	out, err := s.tr.ToWire(str)
	if err != nil {
		s.reject(path, ReasonCharset, "%v", err)
		return "", false
	}
	return out, true
}
