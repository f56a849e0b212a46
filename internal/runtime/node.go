package runtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Node is a decoded-but-unrendered template subtree: nil, bool, float64,
// string, []Node, or *Object. Unlike encoding/json's map[string]any,
// *Object preserves source key order, which the renderer's "array/object
// rendering walks in source order" invariant depends on.
type Node = any

// Object is an order-preserving decoded JSON object.
type Object struct {
	Keys []string
	M    map[string]Node
}

func NewObject() *Object { return &Object{M: map[string]Node{}} }

func (o *Object) Set(key string, v Node) {
	if _, ok := o.M[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.M[key] = v
}

func (o *Object) Get(key string) (Node, bool) {
	v, ok := o.M[key]
	return v, ok
}

func (o *Object) Len() int { return len(o.Keys) }

// DecodeTemplate parses JSON bytes into an order-preserving Node tree.
func DecodeTemplate(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after template")
	}
	return n, nil
}

func decodeValue(dec *json.Decoder) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Node, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected object key, got %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return obj, nil
		case '[':
			var arr []Node
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			if arr == nil {
				arr = []Node{}
			}
			return arr, nil
		}
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case string, bool, nil:
		return t, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// NodeFromValue reifies an already-rendered Value back into a raw Node
// tree. Used by the eval() builtin to hand its result back through
// Render as if it were freshly parsed template source.
func NodeFromValue(v Value) Node {
	switch v.Kind() {
	case KindNull, KindDeleted:
		return nil
	case KindBool:
		return v.Bool()
	case KindNumber:
		return v.Num()
	case KindString:
		return v.Str()
	case KindArray:
		arr := v.Arr()
		out := make([]Node, len(arr))
		for i, e := range arr {
			out[i] = NodeFromValue(e)
		}
		return out
	case KindObject:
		obj := NewObject()
		for _, p := range v.Obj() {
			obj.Set(p.Key, NodeFromValue(p.Value))
		}
		return obj
	default:
		return nil
	}
}
