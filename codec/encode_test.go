package codec

import (
	"errors"
	"testing"

	"github.com/MrEthical07/goSoap/charset"
	"github.com/MrEthical07/goSoap/wire"
)

func newDropEncoder() *Encoder {
	return NewEncoder(nil, ValidationDrop)
}

func hasReason(diags []Diagnostic, reason Reason, path string) bool {
	for _, d := range diags {
		if d.Reason == reason && d.Path == path {
			return true
		}
	}
	return false
}

func TestEncodeAssocDropsNullKeepsSiblings(t *testing.T) {
	v, diags, err := newDropEncoder().Encode(Assoc{
		{Key: "a", Value: "1"},
		{Key: "b", Value: nil},
		{Key: "c", Value: "3"},
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	m, ok := v.(wire.Map)
	if !ok {
		t.Fatalf("expected wire.Map, got %T", v)
	}
	if len(m) != 2 || m[0].Key.Text() != "a" || m[1].Key.Text() != "c" {
		t.Fatalf("unexpected pairs %+v", m)
	}
	if len(diags) != 1 || !hasReason(diags, ReasonNullValue, "value[b]") {
		t.Fatalf("expected one null diagnostic, got %v", diags)
	}
}

func TestEncodeNestedMapInMapDropped(t *testing.T) {
	v, diags, err := newDropEncoder().Encode(map[string]any{
		"x": map[string]any{"y": 1},
		"z": 2,
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	m := v.(wire.Map)
	if len(m) != 1 || m[0].Key.Text() != "z" {
		t.Fatalf("expected only z to survive, got %+v", m)
	}
	if n, _ := m[0].Value.(wire.Scalar).Int64(); n != 2 {
		t.Fatalf("expected z=2, got %v", m[0].Value)
	}
	if !hasReason(diags, ReasonNestedMap, "value[x]") {
		t.Fatalf("expected nested map diagnostic, got %v", diags)
	}
}

func TestEncodeMapRejections(t *testing.T) {
	_, diags, err := newDropEncoder().Encode(Assoc{
		{Key: 1.5, Value: "x"},
		{Key: "rec", Value: Object{"a": 1}},
		{Key: "list", Value: []string{"a"}},
		{Key: "ok", Value: true},
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !hasReason(diags, ReasonComplexKey, "value") {
		t.Fatalf("expected complex key diagnostic, got %v", diags)
	}
	if !hasReason(diags, ReasonNestedObject, "value[rec]") {
		t.Fatalf("expected nested object diagnostic, got %v", diags)
	}
	if !hasReason(diags, ReasonNestedList, "value[list]") {
		t.Fatalf("expected nested list diagnostic, got %v", diags)
	}
	if len(diags) != 3 {
		t.Fatalf("expected 3 diagnostics, got %d: %v", len(diags), diags)
	}
}

func TestEncodeListShapes(t *testing.T) {
	v, diags, err := newDropEncoder().Encode([]any{
		"a",
		int32(7),
		[]any{"nested"},
		Object{"name": "Ed"},
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	seq, ok := v.(wire.Sequence)
	if !ok || len(seq) != 3 {
		t.Fatalf("expected 3-element sequence, got %#v", v)
	}
	if n, _ := seq[1].(wire.Scalar).Int64(); n != 7 {
		t.Fatalf("expected int normalized to 7, got %v", seq[1])
	}
	rec, ok := seq[2].(*wire.Record)
	if !ok {
		t.Fatalf("expected record element, got %T", seq[2])
	}
	if name, _ := rec.Get("name"); name.(wire.Scalar).Text() != "Ed" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !hasReason(diags, ReasonNestedList, "value[2]") {
		t.Fatalf("expected nested list diagnostic, got %v", diags)
	}
}

func TestAssocWithSequentialIntKeysIsList(t *testing.T) {
	v, _, err := newDropEncoder().Encode(Assoc{{Key: 0, Value: "a"}, {Key: 1, Value: "b"}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if _, ok := v.(wire.Sequence); !ok {
		t.Fatalf("expected sequence, got %T", v)
	}

	v, _, err = newDropEncoder().Encode(map[int]string{1: "a", 2: "b"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	m, ok := v.(wire.Map)
	if !ok || len(m) != 2 {
		t.Fatalf("expected map, got %#v", v)
	}
	if k, _ := m[0].Key.Int64(); k != 1 {
		t.Fatalf("expected sorted int keys, got %v", m[0].Key)
	}
}

func TestEncodeParamsRecordRules(t *testing.T) {
	type query struct {
		ID      int      `soap:"id"`
		Tags    []string `soap:"tags"`
		Secret  string   `soap:"-"`
		Comment string   `soap:"comment,omitempty"`
	}

	rec, diags, err := newDropEncoder().EncodeParams(query{ID: 5, Tags: []string{"x", "y"}, Secret: "s"})
	if err != nil {
		t.Fatalf("EncodeParams failed: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics %v", diags)
	}
	if got := rec.Names(); len(got) != 2 || got[0] != "id" || got[1] != "tags" {
		t.Fatalf("unexpected fields %v", got)
	}
	tags, _ := rec.Get("tags")
	if seq, ok := tags.(wire.Sequence); !ok || len(seq) != 2 {
		t.Fatalf("expected tags sequence, got %#v", tags)
	}
}

func TestEncodeParamsNullAndNesting(t *testing.T) {
	rec, diags, err := newDropEncoder().EncodeParams(Object{
		"account": nil,
		"profile": Object{
			"name":  "Ed",
			"inner": Object{"deep": 1},
			"attrs": map[string]string{"k": "v"},
		},
	})
	if err != nil {
		t.Fatalf("EncodeParams failed: %v", err)
	}
	account, ok := rec.Get("account")
	if !ok || !account.(wire.Scalar).IsNull() {
		t.Fatalf("expected explicit null account, got %v", account)
	}
	profile, _ := rec.Get("profile")
	pr := profile.(*wire.Record)
	if pr.Has("inner") || !pr.Has("name") || !pr.Has("attrs") {
		t.Fatalf("unexpected profile fields %v", pr.Names())
	}
	if !hasReason(diags, ReasonNestedObject, "params.profile.inner") {
		t.Fatalf("expected nested object diagnostic, got %v", diags)
	}
}

func TestEncodeParamsInvalidShapes(t *testing.T) {
	rec, diags, err := newDropEncoder().EncodeParams(nil)
	if err != nil || rec.Len() != 0 || len(diags) != 0 {
		t.Fatalf("nil params must be an empty record: %v %v %v", rec, diags, err)
	}

	for _, params := range []any{"x", []int{1, 2}, Assoc{{Key: 3, Value: "x"}}} {
		rec, diags, err := newDropEncoder().EncodeParams(params)
		if err != nil {
			t.Fatalf("drop policy must not fail: %v", err)
		}
		if rec.Len() != 0 || !hasReason(diags, ReasonInvalidParams, RootPath) {
			t.Fatalf("params %#v: expected empty record and invalid params diagnostic, got %v", params, diags)
		}
	}
}

func TestEncodeUnsupportedValue(t *testing.T) {
	_, diags, err := newDropEncoder().EncodeParams(Object{"fn": func() {}, "ok": 1})
	if err != nil {
		t.Fatalf("EncodeParams failed: %v", err)
	}
	if !hasReason(diags, ReasonUnsupported, "params.fn") {
		t.Fatalf("expected unsupported diagnostic, got %v", diags)
	}
}

func TestStrictPolicyFails(t *testing.T) {
	enc := NewEncoder(nil, ValidationStrict)
	rec, diags, err := enc.EncodeParams(Object{"m": Assoc{{Key: "a", Value: nil}}})
	if rec != nil {
		t.Fatalf("strict encode must not return a value")
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Diagnostics) != 1 || len(diags) != 1 {
		t.Fatalf("expected one diagnostic in ValidationError, got %v", err)
	}

	if _, _, err := enc.EncodeParams(Object{"m": "fine"}); err != nil {
		t.Fatalf("clean params must pass strict mode: %v", err)
	}
}

func TestEncodeLatin1ToWire(t *testing.T) {
	enc := NewEncoder(charset.MustNew("iso-8859-1"), ValidationDrop)
	rec, _, err := enc.EncodeParams(Object{"name": "caf\xe9"})
	if err != nil {
		t.Fatalf("EncodeParams failed: %v", err)
	}
	v, _ := rec.Get("name")
	if got := v.(wire.Scalar).Text(); got != "café" {
		t.Fatalf("expected utf-8 café, got %q", got)
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": ValidationDrop, "DROP": ValidationDrop, "strict": ValidationStrict} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParsePolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParsePolicy("lenient"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
