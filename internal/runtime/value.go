// Package runtime implements the JSON-e-style template interpreter: the
// tagged Value type, lexical Context, expression language, and template
// renderer that the worker drives for EvaluateScript tasks.
package runtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
	KindFunction
	KindCallable
	KindDeleted
)

// Function is a synchronous built-in: arguments are evaluated eagerly
// before it runs.
type Function func(args []Value) (Value, error)

// Pair is one ordered object field. Objects preserve declaration order,
// which a plain Go map cannot guarantee.
type Pair struct {
	Key   string
	Value Value
}

// Value is the tagged union the interpreter operates on: null, bool,
// number, string, array, object, sync function, or async callable.
// Functions and callables never survive a render to JSON.
type Value struct {
	kind  Kind
	b     bool
	n     float64
	s     string
	arr   []Value
	obj   []Pair
	fn    Function
	async AsyncCallable
}

// Null is the zero Value and the interpreter's null literal.
var Null = Value{kind: KindNull}

// Deleted is the sentinel produced by an untaken $if branch. It is
// stripped from arrays and removes its key from objects; it never
// appears nested inside a scalar.
var Deleted = Value{kind: KindDeleted}

func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func Array(vs []Value) Value {
	if vs == nil {
		vs = []Value{}
	}
	return Value{kind: KindArray, arr: vs}
}
func Object(pairs []Pair) Value {
	if pairs == nil {
		pairs = []Pair{}
	}
	return Value{kind: KindObject, obj: pairs}
}
func Func(f Function) Value          { return Value{kind: KindFunction, fn: f} }
func Callable(c AsyncCallable) Value { return Value{kind: KindCallable, async: c} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) IsDeleted() bool { return v.kind == KindDeleted }
func (v Value) Bool() bool   { return v.b }
func (v Value) Num() float64 { return v.n }
func (v Value) Str() string  { return v.s }
func (v Value) Arr() []Value { return v.arr }
func (v Value) Obj() []Pair  { return v.obj }
func (v Value) Func() Function         { return v.fn }
func (v Value) AsCallable() (AsyncCallable, bool) {
	if v.kind != KindCallable {
		return nil, false
	}
	return v.async, true
}

// Get looks up a key in an object Value, returning Null if absent or if
// v is not an object.
func (v Value) Get(key string) Value {
	for _, p := range v.obj {
		if p.Key == key {
			return p.Value
		}
	}
	return Null
}

// Truthy mirrors JSON-e's truthiness: false, null, 0, "", empty array,
// empty object are falsy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull, KindDeleted:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0
	case KindString:
		return v.s != ""
	case KindArray:
		return len(v.arr) > 0
	case KindObject:
		return len(v.obj) > 0
	default:
		return true
	}
}

// TypeName returns the JSON-e type name used in error messages.
func (v Value) TypeName() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindFunction, KindCallable:
		return "function"
	default:
		return "deletion-marker"
	}
}

// Stringify renders v the way string interpolation does: numbers use
// the shortest round-trip decimal, arrays/objects become compact JSON.
func (v Value) Stringify() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case KindString:
		return v.s
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// FromJSON converts a decoded JSON value (as produced by
// encoding/json.Unmarshal into `any`, or json.Number-preserving decoders)
// into a Value. Object key order is taken from an *orderedmap-free* plain
// map by sorting keys, since Go's json package does not preserve source
// order; callers that need source order should decode with json.Decoder
// and a custom walker (see DecodeTemplate).
func FromJSON(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case json.Number:
		f, _ := t.Float64()
		return Number(f)
	case string:
		return String(t)
	case []any:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = FromJSON(e)
		}
		return Array(out)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]Pair, 0, len(t))
		for _, k := range keys {
			pairs = append(pairs, Pair{Key: k, Value: FromJSON(t[k])})
		}
		return Object(pairs)
	default:
		return Null
	}
}

// ToJSON converts v back into a plain `any` tree suitable for
// encoding/json, erroring if a function or callable survived the render.
func ToJSON(v Value) (any, error) {
	switch v.kind {
	case KindNull:
		return nil, nil
	case KindDeleted:
		return nil, fmt.Errorf("deletion marker escaped render")
	case KindBool:
		return v.b, nil
	case KindNumber:
		return v.n, nil
	case KindString:
		return v.s, nil
	case KindArray:
		out := make([]any, 0, len(v.arr))
		for _, e := range v.arr {
			if e.IsDeleted() {
				continue
			}
			j, err := ToJSON(e)
			if err != nil {
				return nil, err
			}
			out = append(out, j)
		}
		return out, nil
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for _, p := range v.obj {
			if p.Value.IsDeleted() {
				continue
			}
			j, err := ToJSON(p.Value)
			if err != nil {
				return nil, err
			}
			out[p.Key] = j
		}
		return out, nil
	default:
		return nil, fmt.Errorf("function value escaped render")
	}
}

// MarshalJSON lets Value participate directly in encoding/json, e.g. when
// an HTTP handler returns a rendered Manuscript.
func (v Value) MarshalJSON() ([]byte, error) {
	j, err := ToJSON(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(j)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = FromJSON(raw)
	return nil
}
