// Package scalar implements the closed tagged union of metadata values a
// vector id may carry: a signed 64-bit integer, a 64-bit float, a UTF-8
// string, or a boolean. Trimmed from the teacher's richer metadata.Value
// (which also carries Null/Array variants and string interning via
// unique.Handle) to the four variants the data model calls for.
package scalar

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	KindInt64 Kind = iota
	KindFloat64
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Value is one scalar metadata value. The zero Value is an int64 of 0;
// callers should always construct through the From* helpers.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
}

func FromInt64(v int64) Value     { return Value{kind: KindInt64, i: v} }
func FromFloat64(v float64) Value { return Value{kind: KindFloat64, f: v} }
func FromString(v string) Value   { return Value{kind: KindString, s: v} }
func FromBool(v bool) Value       { return Value{kind: KindBool, b: v} }

func (v Value) Kind() Kind { return v.kind }

// Int64 returns the value and true if Kind is KindInt64.
func (v Value) Int64() (int64, bool) { return v.i, v.kind == KindInt64 }

// Float64 returns the value and true if Kind is KindFloat64.
func (v Value) Float64() (float64, bool) { return v.f, v.kind == KindFloat64 }

// String returns the value and true if Kind is KindString.
func (v Value) String() (string, bool) { return v.s, v.kind == KindString }

// Bool returns the value and true if Kind is KindBool.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

type wireValue struct {
	Kind   Kind    `json:"kind"`
	Int64  int64   `json:"i,omitempty"`
	Float  float64 `json:"f,omitempty"`
	String string  `json:"s,omitempty"`
	Bool   bool    `json:"b,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	w := wireValue{Kind: v.kind}
	switch v.kind {
	case KindInt64:
		w.Int64 = v.i
	case KindFloat64:
		w.Float = v.f
	case KindString:
		w.String = v.s
	case KindBool:
		w.Bool = v.b
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Kind {
	case KindInt64:
		*v = FromInt64(w.Int64)
	case KindFloat64:
		*v = FromFloat64(w.Float)
	case KindString:
		*v = FromString(w.String)
	case KindBool:
		*v = FromBool(w.Bool)
	default:
		return fmt.Errorf("scalar: unknown kind %d", w.Kind)
	}
	return nil
}

// Document is the metadata attached to a single vector id: a map from
// field name to scalar value.
type Document map[string]Value
