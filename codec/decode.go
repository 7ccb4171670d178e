package codec

import (
	"fmt"

	"github.com/MrEthical07/goSoap/charset"
	"github.com/MrEthical07/goSoap/wire"
)

// Reserved field names of the protocol's wrapper shapes.
const (
	fieldArray  = "array"
	fieldItem   = "item"
	fieldMap    = "map"
	fieldPair   = "pair"
	fieldKey    = "key"
	fieldValue  = "value"
	fieldStart  = "start"
	fieldLength = "length"
	fieldTotal  = "total"
	fieldItems  = "items"
)

// Decoder turns wire replies into native values. It is safe for concurrent use.
type Decoder struct {
	tr *charset.Transcoder
}

// NewDecoder builds a Decoder. A nil transcoder means UTF-8.
func NewDecoder(tr *charset.Transcoder) *Decoder {
	return &Decoder{tr: tr}
}

// Decode converts a reply. A record with no fields yields ErrEmptyReply.
func (d *Decoder) Decode(v wire.Value) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *wire.Record:
		return d.reply(t)
	}
	return d.element(v)
}

func (d *Decoder) reply(rec *wire.Record) (any, error) {
	if rec.Len() == 0 {
		return nil, ErrEmptyReply
	}
	if inner, ok := rec.Get(fieldArray); ok {
		return d.arrayWrapper(inner)
	}
	if inner, ok := rec.Get(fieldMap); ok {
		return d.mapWrapper(inner)
	}
	if rec.Has(fieldStart) && rec.Has(fieldLength) && rec.Has(fieldTotal) && rec.Has(fieldItems) {
		return d.collectionRecord(rec)
	}
	if v, ok := rec.Get(fieldValue); ok {
		if sc, isScalar := v.(wire.Scalar); isScalar {
			return d.scalar(sc)
		}
		return d.element(v)
	}
	// An untyped one-field record around a record is an entity envelope.
	// Only the envelope is removed; the entity is decoded field by field.
	if rec.Len() == 1 && rec.Type == "" {
		if inner, ok := rec.Fields[0].Value.(*wire.Record); ok && inner != nil {
			return d.object(inner)
		}
	}
	return d.object(rec)
}

// element decodes a value found inside a reply: no wrapper or envelope rules.
func (d *Decoder) element(v wire.Value) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case wire.Scalar:
		return d.scalar(t)
	case wire.Sequence:
		return d.sequence(t)
	case wire.Map:
		return d.pairs(t)
	case *wire.Record:
		if t == nil {
			return nil, nil
		}
		return d.object(t)
	case *wire.Collection:
		if t == nil {
			return nil, nil
		}
		return d.collection(t.Start, t.Length, t.Total, t.Items)
	}
	return nil, fmt.Errorf("%w: unknown value %T", ErrMalformedReply, v)
}

func (d *Decoder) scalar(s wire.Scalar) (any, error) {
	str, ok := s.V.(string)
	if !ok {
		return s.V, nil
	}
	return d.tr.FromWire(str)
}

func (d *Decoder) sequence(seq wire.Sequence) ([]any, error) {
	out := make([]any, 0, len(seq))
	for _, item := range seq {
		v, err := d.element(item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// object decodes every field of rec. Repeated names collect into a list.
func (d *Decoder) object(rec *wire.Record) (Object, error) {
	out := make(Object, len(rec.Fields))
	repeated := make(map[string]bool)
	for _, f := range rec.Fields {
		name, err := d.tr.FromWire(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := d.element(f.Value)
		if err != nil {
			return nil, err
		}
		prev, seen := out[name]
		switch {
		case !seen:
			out[name] = v
		case repeated[name]:
			out[name] = append(prev.([]any), v)
		default:
			out[name] = []any{prev, v}
			repeated[name] = true
		}
	}
	return out, nil
}

// unwrapList collapses the protocol's list wrapper forms into one slice:
// a Sequence is used as is, a lone value becomes a one-element list.
func unwrapList(vs []wire.Value) []wire.Value {
	if len(vs) == 1 {
		if seq, ok := vs[0].(wire.Sequence); ok {
			return seq
		}
	}
	out := make([]wire.Value, 0, len(vs))
	for _, v := range vs {
		if seq, ok := v.(wire.Sequence); ok {
			out = append(out, seq...)
			continue
		}
		out = append(out, v)
	}
	return out
}

func isAbsent(v wire.Value) bool {
	if v == nil {
		return true
	}
	if sc, ok := v.(wire.Scalar); ok {
		return sc.IsNull()
	}
	if r, ok := v.(*wire.Record); ok {
		return r == nil
	}
	return false
}

func (d *Decoder) arrayWrapper(inner wire.Value) ([]any, error) {
	if isAbsent(inner) {
		return []any{}, nil
	}
	var items []wire.Value
	switch t := inner.(type) {
	case *wire.Record:
		items = unwrapList(t.All(fieldItem))
	case wire.Sequence:
		items = t
	default:
		items = []wire.Value{inner}
	}
	return d.sequence(items)
}

func (d *Decoder) mapWrapper(inner wire.Value) (Assoc, error) {
	if isAbsent(inner) {
		return Assoc{}, nil
	}
	var pairs []wire.Value
	switch t := inner.(type) {
	case wire.Map:
		return d.pairs(t)
	case *wire.Record:
		pairs = unwrapList(t.All(fieldPair))
	case wire.Sequence:
		pairs = t
	default:
		return nil, fmt.Errorf("%w: map wrapper holds %s", ErrMalformedReply, wire.KindOf(inner))
	}

	b := newAssocBuilder(len(pairs))
	for i, p := range pairs {
		switch t := p.(type) {
		case *wire.Record:
			k, hasKey := t.Get(fieldKey)
			ks, keyIsScalar := k.(wire.Scalar)
			if !hasKey || !keyIsScalar {
				return nil, fmt.Errorf("%w: pair %d has no scalar key", ErrMalformedReply, i)
			}
			v, _ := t.Get(fieldValue)
			if err := d.addPair(b, ks, v); err != nil {
				return nil, err
			}
		case wire.Map:
			for _, pair := range t {
				if err := d.addPair(b, pair.Key, pair.Value); err != nil {
					return nil, err
				}
			}
		default:
			return nil, fmt.Errorf("%w: pair %d is a %s", ErrMalformedReply, i, wire.KindOf(p))
		}
	}
	return b.out, nil
}

func (d *Decoder) pairs(m wire.Map) (Assoc, error) {
	b := newAssocBuilder(len(m))
	for _, p := range m {
		if err := d.addPair(b, p.Key, p.Value); err != nil {
			return nil, err
		}
	}
	return b.out, nil
}

func (d *Decoder) addPair(b *assocBuilder, k wire.Scalar, v wire.Value) error {
	key, err := d.scalar(k)
	if err != nil {
		return err
	}
	if key == nil {
		return fmt.Errorf("%w: null map key", ErrMalformedReply)
	}
	val, err := d.element(v)
	if err != nil {
		return err
	}
	b.put(key, val)
	return nil
}

// assocBuilder keeps the last value per key at the key's first position.
type assocBuilder struct {
	out   Assoc
	index map[any]int
}

func newAssocBuilder(n int) *assocBuilder {
	return &assocBuilder{out: make(Assoc, 0, n), index: make(map[any]int, n)}
}

func (b *assocBuilder) put(key, val any) {
	k := key
	if nk, ok := normalizeKey(key); ok {
		k = nk
	}
	if i, ok := b.index[k]; ok {
		b.out[i].Value = val
		return
	}
	b.index[k] = len(b.out)
	b.out = append(b.out, Entry{Key: key, Value: val})
}

func (d *Decoder) collectionRecord(rec *wire.Record) (Collection, error) {
	start, err := counter(rec, fieldStart)
	if err != nil {
		return Collection{}, err
	}
	length, err := counter(rec, fieldLength)
	if err != nil {
		return Collection{}, err
	}
	total, err := counter(rec, fieldTotal)
	if err != nil {
		return Collection{}, err
	}

	var children []wire.Value
	itemsVal, _ := rec.Get(fieldItems)
	switch t := itemsVal.(type) {
	case *wire.Record:
		if t != nil {
			for _, name := range t.Names() {
				children = append(children, unwrapList(t.All(name))...)
			}
		}
	case wire.Sequence:
		children = t
	case wire.Scalar:
		if !t.IsNull() {
			return Collection{}, fmt.Errorf("%w: collection items is a scalar", ErrMalformedReply)
		}
	}
	return d.collection(start, length, total, children)
}

func (d *Decoder) collection(start, length, total int64, children []wire.Value) (Collection, error) {
	out := Collection{Start: start, Length: length, Total: total, Items: make([]Object, 0, len(children))}
	for i, child := range children {
		rec, ok := child.(*wire.Record)
		if !ok || rec == nil {
			return Collection{}, fmt.Errorf("%w: collection item %d is a %s", ErrMalformedReply, i, wire.KindOf(child))
		}
		obj, err := d.object(rec)
		if err != nil {
			return Collection{}, err
		}
		out.Items = append(out.Items, obj)
	}
	return out, nil
}

func counter(rec *wire.Record, name string) (int64, error) {
	v, _ := rec.Get(name)
	sc, ok := v.(wire.Scalar)
	if !ok {
		return 0, fmt.Errorf("%w: collection %s is a %s", ErrMalformedReply, name, wire.KindOf(v))
	}
	if sc.IsNull() {
		return 0, nil
	}
	n, ok := sc.Int64()
	if !ok {
		return 0, fmt.Errorf("%w: collection %s %q is not an integer", ErrMalformedReply, name, sc.String())
	}
	return n, nil
}
