package runtime

import "fmt"

// AsString coerces v to a string, erroring for non-scalar kinds.
func AsString(v Value) (string, error) {
	switch v.Kind() {
	case KindString:
		return v.Str(), nil
	case KindNumber, KindBool, KindNull:
		return v.Stringify(), nil
	default:
		return "", fmt.Errorf("expected string, got %s", v.TypeName())
	}
}

// AsNumber coerces v to a float64.
func AsNumber(v Value) (float64, error) {
	if v.Kind() != KindNumber {
		return 0, fmt.Errorf("expected number, got %s", v.TypeName())
	}
	return v.Num(), nil
}

// AsUint64 coerces a numeric Value to a non-negative integer.
func AsUint64(v Value) (uint64, error) {
	n, err := AsNumber(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("expected non-negative integer, got %g", n)
	}
	return uint64(n), nil
}

// AsArray coerces v to its element slice.
func AsArray(v Value) ([]Value, error) {
	if v.Kind() != KindArray {
		return nil, fmt.Errorf("expected array, got %s", v.TypeName())
	}
	return v.Arr(), nil
}

// AsObject coerces v to its ordered pairs.
func AsObject(v Value) ([]Pair, error) {
	if v.Kind() != KindObject {
		return nil, fmt.Errorf("expected object, got %s", v.TypeName())
	}
	return v.Obj(), nil
}
