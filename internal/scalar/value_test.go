package scalar

import (
	"encoding/json"
	"testing"
)

func TestValueAccessors(t *testing.T) {
	cases := []Value{
		FromInt64(42),
		FromFloat64(3.14),
		FromString("hello"),
		FromBool(true),
	}
	for _, v := range cases {
		switch v.Kind() {
		case KindInt64:
			got, ok := v.Int64()
			if !ok || got != 42 {
				t.Fatalf("Int64: got %v, %v", got, ok)
			}
			if _, ok := v.String(); ok {
				t.Fatal("String should report false for an int64 value")
			}
		case KindFloat64:
			if got, ok := v.Float64(); !ok || got != 3.14 {
				t.Fatalf("Float64: got %v, %v", got, ok)
			}
		case KindString:
			if got, ok := v.String(); !ok || got != "hello" {
				t.Fatalf("String: got %v, %v", got, ok)
			}
		case KindBool:
			if got, ok := v.Bool(); !ok || got != true {
				t.Fatalf("Bool: got %v, %v", got, ok)
			}
		}
	}
}

func TestValueJSONRoundTrip(t *testing.T) {
	doc := Document{
		"count":  FromInt64(7),
		"score":  FromFloat64(0.5),
		"label":  FromString("cat"),
		"active": FromBool(false),
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Document
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got) != len(doc) {
		t.Fatalf("got %d fields, want %d", len(got), len(doc))
	}
	for k, v := range doc {
		gv, ok := got[k]
		if !ok {
			t.Fatalf("missing key %q after round trip", k)
		}
		if gv.Kind() != v.Kind() {
			t.Fatalf("key %q: kind mismatch %v vs %v", k, gv.Kind(), v.Kind())
		}
	}
}
