package runtime

import (
	"context"
	"testing"
)

func renderJSON(t *testing.T, src string, ctx *Context) Value {
	t.Helper()
	node, err := DecodeTemplate([]byte(src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	rc := &RenderContext{Go: context.Background(), Vars: ctx}
	v, err := Render(rc, node)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return v
}

func TestEvalArithmetic(t *testing.T) {
	v := renderJSON(t, `{"$eval": "1 + 2"}`, NewContext())
	if v.Kind() != KindNumber || v.Num() != 3 {
		t.Fatalf("want 3, got %#v", v)
	}
}

func TestNestedLet(t *testing.T) {
	ctx := NewContext()
	ctx.Insert("today", Func(func(args []Value) (Value, error) {
		return String("2024"), nil
	}))
	v := renderJSON(t, `{"$let": {"a": {"$eval": "today()"}}, "in": {"$eval": "a"}}`, ctx)
	if v.Kind() != KindString || v.Str() != "2024" {
		t.Fatalf("want \"2024\", got %#v", v)
	}
}

func TestLetInterpolationIsLexical(t *testing.T) {
	v := renderJSON(t, `{"$let": {"a": 1, "b": "${a}"}, "in": {"$eval": "b"}}`, NewContext())
	if v.Kind() != KindString || v.Str() != "1" {
		t.Fatalf("want \"1\", got %#v", v)
	}
}

func TestReplaceBuiltin(t *testing.T) {
	ctx := NewContext()
	ctx.Insert("replace", Func(func(args []Value) (Value, error) {
		if len(args) != 3 {
			return Null, nil
		}
		s, _ := AsString(args[0])
		pat, _ := AsString(args[1])
		to, _ := AsString(args[2])
		out := ""
		for i := 0; i < len(s); {
			if i+len(pat) <= len(s) && s[i:i+len(pat)] == pat {
				out += to
				i += len(pat)
			} else {
				out += string(s[i])
				i++
			}
		}
		return String(out), nil
	}))
	v := renderJSON(t, `{"$eval": "replace('abcabc', 'b', 'X')"}`, ctx)
	if v.Str() != "aXcaXc" {
		t.Fatalf("want aXcaXc, got %q", v.Str())
	}
}

func TestIfDeletionMarkerYieldsEmptyObject(t *testing.T) {
	v := renderJSON(t, `{"wrapper": {"$if": "false", "then": 1}}`, NewContext())
	obj, err := AsObject(v)
	if err != nil {
		t.Fatal(err)
	}
	if len(obj) != 0 {
		t.Fatalf("want empty object, got %#v", obj)
	}
}

func TestMapOperator(t *testing.T) {
	v := renderJSON(t, `{"$map": [1,2,3], "each(x)": {"$eval": "x * 2"}}`, NewContext())
	arr, err := AsArray(v)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{2, 4, 6}
	for i, w := range want {
		if arr[i].Num() != w {
			t.Fatalf("index %d: want %v got %v", i, w, arr[i].Num())
		}
	}
}

func TestUnrecognizedOperatorIsError(t *testing.T) {
	node, err := DecodeTemplate([]byte(`{"$bogus": 1}`))
	if err != nil {
		t.Fatal(err)
	}
	rc := &RenderContext{Go: context.Background(), Vars: NewContext()}
	if _, err := Render(rc, node); err == nil {
		t.Fatal("expected error for unrecognized operator")
	}
}

func TestOperatorRejectsStraySiblingKey(t *testing.T) {
	node, err := DecodeTemplate([]byte(`{"$eval": "1", "extra": 2}`))
	if err != nil {
		t.Fatal(err)
	}
	rc := &RenderContext{Go: context.Background(), Vars: NewContext()}
	if _, err := Render(rc, node); err == nil {
		t.Fatal("expected error for stray sibling key")
	}
}

func TestContextScoping(t *testing.T) {
	parent := NewContext()
	parent.Insert("x", Number(1))
	child := parent.Child()
	if v, ok := child.Lookup("x"); !ok || v.Num() != 1 {
		t.Fatal("child should see parent binding")
	}
	child.Insert("x", Number(2))
	if v, _ := parent.Lookup("x"); v.Num() != 1 {
		t.Fatal("insert in child must not affect parent")
	}
}

func TestEmptySectionsManuscript(t *testing.T) {
	v := renderJSON(t, `{"title": "x", "sections": []}`, NewContext())
	sections := v.Get("sections")
	if sections.Kind() != KindArray || len(sections.Arr()) != 0 {
		t.Fatalf("want empty sections array, got %#v", sections)
	}
}
