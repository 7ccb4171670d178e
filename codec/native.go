package codec

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goSoap/wire"
)

// Entry is one key/value of an Assoc.
type Entry struct {
	Key   any
	Value any
}

// Assoc is an ordered key/value structure. An Assoc whose keys are exactly
// the integers 0..n-1, in order, is treated as a plain list.
type Assoc []Entry

// Get returns the value stored under key.
func (a Assoc) Get(key any) (any, bool) {
	nk, ok := normalizeKey(key)
	if !ok {
		return nil, false
	}
	for _, e := range a {
		if k, ok := normalizeKey(e.Key); ok && k == nk {
			return e.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in order.
func (a Assoc) Keys() []any {
	out := make([]any, len(a))
	for i, e := range a {
		out[i] = e.Key
	}
	return out
}

// Object is a record: a named-field entity. Fields are encoded in name order.
type Object map[string]any

// Collection is a decoded paged result set.
type Collection struct {
	Start  int64
	Length int64
	Total  int64
	Items  []Object
}

type shape uint8

const (
	shapeNull shape = iota
	shapeScalar
	shapeList
	shapeAssoc
	shapeRecord
	shapeWire
	shapeUnsupported
)

func (s shape) String() string {
	switch s {
	case shapeNull:
		return "null"
	case shapeScalar:
		return "scalar"
	case shapeList:
		return "list"
	case shapeAssoc:
		return "associative"
	case shapeRecord:
		return "record"
	case shapeWire:
		return "wire value"
	default:
		return "unsupported"
	}
}

// native is a Go value resolved into exactly one shape.
type native struct {
	shape  shape
	scalar any
	list   []any
	// entries holds assoc entries (raw keys) or record fields (string keys).
	entries []Entry
	raw     wire.Value
	goType  string
}

var timeType = reflect.TypeOf(time.Time{})

// classify resolves v into a single shape. It is the only place that looks at
// Go runtime types.
func classify(v any) native {
	switch t := v.(type) {
	case nil:
		return native{shape: shapeNull}
	case wire.Value:
		return native{shape: shapeWire, raw: t}
	case Assoc:
		if isList(t) {
			items := make([]any, len(t))
			for i, e := range t {
				items[i] = e.Value
			}
			return native{shape: shapeList, list: items}
		}
		return native{shape: shapeAssoc, entries: []Entry(t)}
	case Object:
		return native{shape: shapeRecord, entries: objectEntries(t)}
	case string:
		return native{shape: shapeScalar, scalar: t}
	case bool:
		return native{shape: shapeScalar, scalar: t}
	case []byte:
		return native{shape: shapeScalar, scalar: string(t)}
	case time.Time:
		return native{shape: shapeScalar, scalar: t.Format(time.RFC3339)}
	}
	return classifyReflect(reflect.ValueOf(v))
}

func classifyReflect(rv reflect.Value) native {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return native{shape: shapeNull}
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.String:
		return native{shape: shapeScalar, scalar: rv.String()}
	case reflect.Bool:
		return native{shape: shapeScalar, scalar: rv.Bool()}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return native{shape: shapeScalar, scalar: rv.Int()}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return native{shape: shapeScalar, scalar: float64(u)}
		}
		return native{shape: shapeScalar, scalar: int64(u)}
	case reflect.Float32, reflect.Float64:
		return native{shape: shapeScalar, scalar: rv.Float()}
	case reflect.Slice:
		if rv.IsNil() {
			return native{shape: shapeNull}
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return native{shape: shapeScalar, scalar: string(rv.Bytes())}
		}
		return native{shape: shapeList, list: listItems(rv)}
	case reflect.Array:
		return native{shape: shapeList, list: listItems(rv)}
	case reflect.Map:
		if rv.IsNil() {
			return native{shape: shapeNull}
		}
		entries := mapEntries(rv)
		if isList(entries) {
			items := make([]any, len(entries))
			for i, e := range entries {
				items[i] = e.Value
			}
			return native{shape: shapeList, list: items}
		}
		return native{shape: shapeAssoc, entries: entries}
	case reflect.Struct:
		if rv.Type() == timeType {
			return native{shape: shapeScalar, scalar: rv.Interface().(time.Time).Format(time.RFC3339)}
		}
		return native{shape: shapeRecord, entries: structEntries(rv)}
	}
	return native{shape: shapeUnsupported, goType: rv.Type().String()}
}

func listItems(rv reflect.Value) []any {
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items
}

func mapEntries(rv reflect.Value) Assoc {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return lessKey(keys[i], keys[j])
	})
	out := make(Assoc, 0, len(keys))
	for _, k := range keys {
		out = append(out, Entry{Key: k.Interface(), Value: rv.MapIndex(k).Interface()})
	}
	return out
}

func lessKey(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() < b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return a.Uint() < b.Uint()
	case reflect.String:
		return a.String() < b.String()
	}
	return fmt.Sprint(a.Interface()) < fmt.Sprint(b.Interface())
}

func objectEntries(o Object) []Entry {
	names := make([]string, 0, len(o))
	for name := range o {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Entry, len(names))
	for i, name := range names {
		out[i] = Entry{Key: name, Value: o[name]}
	}
	return out
}

// structEntries reads exported fields. A `soap:"name"` tag renames a field,
// `soap:"-"` skips it and `soap:",omitempty"` skips zero values.
func structEntries(rv reflect.Value) []Entry {
	rt := rv.Type()
	out := make([]Entry, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		omitEmpty := false
		if tag, ok := sf.Tag.Lookup("soap"); ok {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" {
					omitEmpty = true
				}
			}
		}
		fv := rv.Field(i)
		if omitEmpty && fv.IsZero() {
			continue
		}
		out = append(out, Entry{Key: name, Value: fv.Interface()})
	}
	return out
}

// isList reports whether the keys are exactly 0..n-1 in order.
func isList(entries []Entry) bool {
	for i, e := range entries {
		k, ok := normalizeKey(e.Key)
		if !ok {
			return false
		}
		n, isInt := k.(int64)
		if !isInt || n != int64(i) {
			return false
		}
	}
	return true
}

// normalizeKey maps string and integer keys onto string or int64.
func normalizeKey(key any) (any, bool) {
	if key == nil {
		return nil, false
	}
	switch k := key.(type) {
	case string:
		return k, true
	case int64:
		return k, true
	case int:
		return int64(k), true
	}
	rv := reflect.ValueOf(key)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, false
		}
		return int64(u), true
	}
	return nil, false
}

func keyString(key any) string {
	switch k := key.(type) {
	case string:
		return k
	case int64:
		return strconv.FormatInt(k, 10)
	}
	return fmt.Sprint(key)
}
