package runtime

import (
	"fmt"

	"github.com/botcast/worker/internal/apperr"
)

// evalExpr evaluates a parsed mini-language expression against rc's
// lexical scope. Function calls dispatch eagerly for a Function value
// (arguments evaluated left-to-right and run synchronously) and lazily
// for an AsyncCallable (raw Expr args, callable decides evaluation order).
func evalExpr(rc *RenderContext, e Expr) (Value, error) {
	switch n := e.(type) {
	case NullLit:
		return Null, nil
	case BoolLit:
		return Bool(n.V), nil
	case NumberLit:
		return Number(n.V), nil
	case StringLit:
		return String(n.V), nil
	case ArrayLit:
		vals := make([]Value, len(n.Items))
		for i, it := range n.Items {
			v, err := evalExpr(rc, it)
			if err != nil {
				return Null, err
			}
			vals[i] = v
		}
		return Array(vals), nil
	case ObjectLit:
		pairs := make([]Pair, len(n.Keys))
		for i, k := range n.Keys {
			v, err := evalExpr(rc, n.Vals[i])
			if err != nil {
				return Null, err
			}
			pairs[i] = Pair{Key: k, Value: v}
		}
		return Object(pairs), nil
	case Ident:
		v, ok := rc.Vars.Lookup(n.Name)
		if !ok {
			return Null, apperr.Script(fmt.Sprintf("unknown identifier %q", n.Name), nil)
		}
		return v, nil
	case Member:
		recv, err := evalExpr(rc, n.Recv)
		if err != nil {
			return Null, err
		}
		if recv.Kind() != KindObject {
			return Null, apperr.Script(fmt.Sprintf("cannot access .%s on %s", n.Name, recv.TypeName()), nil)
		}
		return recv.Get(n.Name), nil
	case Index:
		recv, err := evalExpr(rc, n.Recv)
		if err != nil {
			return Null, err
		}
		at, err := evalExpr(rc, n.At)
		if err != nil {
			return Null, err
		}
		return indexValue(recv, at)
	case Unary:
		return evalUnary(rc, n)
	case Binary:
		return evalBinary(rc, n)
	case Ternary:
		cond, err := evalExpr(rc, n.Cond)
		if err != nil {
			return Null, err
		}
		if cond.Truthy() {
			return evalExpr(rc, n.Then)
		}
		return evalExpr(rc, n.Else)
	case Call:
		return evalCall(rc, n)
	default:
		return Null, fmt.Errorf("unhandled expression node %T", e)
	}
}

func indexValue(recv, at Value) (Value, error) {
	switch recv.Kind() {
	case KindArray:
		idx, err := AsNumber(at)
		if err != nil {
			return Null, err
		}
		i := int(idx)
		arr := recv.Arr()
		if i < 0 {
			i += len(arr)
		}
		if i < 0 || i >= len(arr) {
			return Null, apperr.Script("index out of range", nil)
		}
		return arr[i], nil
	case KindObject:
		key, err := AsString(at)
		if err != nil {
			return Null, err
		}
		return recv.Get(key), nil
	default:
		return Null, apperr.Script(fmt.Sprintf("cannot index %s", recv.TypeName()), nil)
	}
}

func evalUnary(rc *RenderContext, n Unary) (Value, error) {
	x, err := evalExpr(rc, n.X)
	if err != nil {
		return Null, err
	}
	switch n.Op {
	case "!":
		return Bool(!x.Truthy()), nil
	case "-":
		f, err := AsNumber(x)
		if err != nil {
			return Null, err
		}
		return Number(-f), nil
	default:
		return Null, fmt.Errorf("unknown unary operator %q", n.Op)
	}
}

func evalBinary(rc *RenderContext, n Binary) (Value, error) {
	if n.Op == "&&" {
		l, err := evalExpr(rc, n.L)
		if err != nil {
			return Null, err
		}
		if !l.Truthy() {
			return l, nil
		}
		return evalExpr(rc, n.R)
	}
	if n.Op == "||" {
		l, err := evalExpr(rc, n.L)
		if err != nil {
			return Null, err
		}
		if l.Truthy() {
			return l, nil
		}
		return evalExpr(rc, n.R)
	}

	l, err := evalExpr(rc, n.L)
	if err != nil {
		return Null, err
	}
	r, err := evalExpr(rc, n.R)
	if err != nil {
		return Null, err
	}

	switch n.Op {
	case "+":
		if l.Kind() == KindString || r.Kind() == KindString {
			ls, err := AsString(l)
			if err != nil {
				return Null, err
			}
			rs, err := AsString(r)
			if err != nil {
				return Null, err
			}
			return String(ls + rs), nil
		}
		lf, rf, err := bothNumbers(l, r)
		if err != nil {
			return Null, err
		}
		return Number(lf + rf), nil
	case "-", "*", "/", "%":
		lf, rf, err := bothNumbers(l, r)
		if err != nil {
			return Null, err
		}
		switch n.Op {
		case "-":
			return Number(lf - rf), nil
		case "*":
			return Number(lf * rf), nil
		case "/":
			if rf == 0 {
				return Null, apperr.Script("division by zero", nil)
			}
			return Number(lf / rf), nil
		case "%":
			if rf == 0 {
				return Null, apperr.Script("division by zero", nil)
			}
			return Number(float64(int64(lf) % int64(rf))), nil
		}
	case "==":
		return Bool(valuesEqual(l, r)), nil
	case "!=":
		return Bool(!valuesEqual(l, r)), nil
	case "<", "<=", ">", ">=":
		return compareValues(l, r, n.Op)
	}
	return Null, fmt.Errorf("unknown binary operator %q", n.Op)
}

func bothNumbers(l, r Value) (float64, float64, error) {
	lf, err := AsNumber(l)
	if err != nil {
		return 0, 0, err
	}
	rf, err := AsNumber(r)
	if err != nil {
		return 0, 0, err
	}
	return lf, rf, nil
}

func valuesEqual(l, r Value) bool {
	if l.Kind() != r.Kind() {
		return false
	}
	switch l.Kind() {
	case KindNull:
		return true
	case KindBool:
		return l.Bool() == r.Bool()
	case KindNumber:
		return l.Num() == r.Num()
	case KindString:
		return l.Str() == r.Str()
	case KindArray:
		la, ra := l.Arr(), r.Arr()
		if len(la) != len(ra) {
			return false
		}
		for i := range la {
			if !valuesEqual(la[i], ra[i]) {
				return false
			}
		}
		return true
	case KindObject:
		lo, ro := l.Obj(), r.Obj()
		if len(lo) != len(ro) {
			return false
		}
		for i := range lo {
			if lo[i].Key != ro[i].Key || !valuesEqual(lo[i].Value, ro[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func compareValues(l, r Value, op string) (Value, error) {
	if l.Kind() != r.Kind() || (l.Kind() != KindNumber && l.Kind() != KindString) {
		return Null, apperr.Script(fmt.Sprintf("cannot compare %s and %s", l.TypeName(), r.TypeName()), nil)
	}
	var less, equal bool
	if l.Kind() == KindNumber {
		less = l.Num() < r.Num()
		equal = l.Num() == r.Num()
	} else {
		less = l.Str() < r.Str()
		equal = l.Str() == r.Str()
	}
	switch op {
	case "<":
		return Bool(less), nil
	case "<=":
		return Bool(less || equal), nil
	case ">":
		return Bool(!less && !equal), nil
	case ">=":
		return Bool(!less), nil
	}
	return Null, fmt.Errorf("unknown comparison operator %q", op)
}

func evalCall(rc *RenderContext, n Call) (Value, error) {
	name, ok := n.Callee.(Ident)
	if !ok {
		return Null, apperr.Script("function calls require a plain identifier callee", nil)
	}
	v, ok := rc.Vars.Lookup(name.Name)
	if !ok {
		return Null, apperr.Script(fmt.Sprintf("unknown function %q", name.Name), nil)
	}
	switch v.Kind() {
	case KindFunction:
		args := make([]Value, len(n.Args))
		for i, a := range n.Args {
			av, err := evalExpr(rc, a)
			if err != nil {
				return Null, err
			}
			args[i] = av
		}
		res, err := v.Func()(args)
		if err != nil {
			return Null, apperr.Wrap(name.Name, err)
		}
		return res, nil
	case KindCallable:
		callable, _ := v.AsCallable()
		res, err := callable.Call(rc, n.Args)
		if err != nil {
			return Null, apperr.Wrap(name.Name, err)
		}
		return res, nil
	default:
		return Null, apperr.Script(fmt.Sprintf("%q is not a function", name.Name), nil)
	}
}
