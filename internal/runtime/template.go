package runtime

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/botcast/worker/internal/apperr"
)

func marshalCompact(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var interpolation = regexp.MustCompile(`\$\{([^}]*)\}`)

// renderNode walks a raw, order-preserving Node tree against rc's scope,
// dispatching $-operators, expanding ${...} string interpolation, and
// stripping deletion markers from arrays and objects.
func renderNode(rc *RenderContext, node Node) (Value, error) {
	switch n := node.(type) {
	case nil:
		return Null, nil
	case bool:
		return Bool(n), nil
	case float64:
		return Number(n), nil
	case string:
		return renderString(rc, n)
	case []Node:
		out := make([]Value, 0, len(n))
		for _, item := range n {
			v, err := renderNode(rc, item)
			if err != nil {
				return Null, err
			}
			if v.IsDeleted() {
				continue
			}
			out = append(out, v)
		}
		return Array(out), nil
	case *Object:
		return renderObject(rc, n)
	default:
		return Null, fmt.Errorf("unrenderable node of type %T", node)
	}
}

func renderString(rc *RenderContext, s string) (Value, error) {
	if !strings.Contains(s, "${") {
		return String(s), nil
	}
	// Whole-string interpolation is stringified like any other
	// (e.g. "${a}" where a is the number 1 yields the String "1").
	if m := interpolation.FindStringSubmatch(s); m != nil && m[0] == s {
		e, err := ParseExpr(m[1])
		if err != nil {
			return Null, apperr.Script("interpolation parse error", err)
		}
		v, err := rc.Eval(e)
		if err != nil {
			return Null, err
		}
		return String(v.Stringify()), nil
	}
	var outErr error
	out := interpolation.ReplaceAllStringFunc(s, func(match string) string {
		if outErr != nil {
			return ""
		}
		inner := match[2 : len(match)-1]
		e, err := ParseExpr(inner)
		if err != nil {
			outErr = apperr.Script("interpolation parse error", err)
			return ""
		}
		v, err := rc.Eval(e)
		if err != nil {
			outErr = err
			return ""
		}
		return v.Stringify()
	})
	if outErr != nil {
		return Null, outErr
	}
	return String(out), nil
}

var operatorCompanions = map[string][]string{
	"$let":         {"in"},
	"$if":          {"then", "else"},
	"$json":        nil,
	"$eval":        nil,
	"$flatten":     nil,
	"$flattenDeep": nil,
	"$reverse":     nil,
	"$sort":        nil,
	"$fromNow":     nil,
}

var eachKeyPattern = regexp.MustCompile(`^each\(([A-Za-z_][A-Za-z0-9_]*)\)$`)

func renderObject(rc *RenderContext, obj *Object) (Value, error) {
	var opKey string
	for _, k := range obj.Keys {
		if strings.HasPrefix(k, "$") {
			if opKey != "" {
				return Null, apperr.InvalidInput("object has multiple operator keys: %q and %q", opKey, k)
			}
			opKey = k
		}
	}
	if opKey == "" {
		return renderPlainObject(rc, obj)
	}

	if opKey == "$map" {
		return renderMap(rc, obj)
	}

	allowed, known := operatorCompanions[opKey]
	if !known {
		return Null, apperr.InvalidInput("unrecognized operator %q", opKey)
	}
	allowedSet := map[string]bool{opKey: true}
	for _, a := range allowed {
		allowedSet[a] = true
	}
	for _, k := range obj.Keys {
		if !allowedSet[k] {
			return Null, apperr.InvalidInput("operator %q has unexpected sibling key %q", opKey, k)
		}
	}

	switch opKey {
	case "$eval":
		exprNode, _ := obj.Get("$eval")
		s, ok := exprNode.(string)
		if !ok {
			return Null, apperr.InvalidInput("$eval requires a string expression")
		}
		e, err := ParseExpr(s)
		if err != nil {
			return Null, apperr.Script("$eval parse error", err)
		}
		return rc.Eval(e)

	case "$let":
		bindingsNode, _ := obj.Get("$let")
		bindingsObj, ok := bindingsNode.(*Object)
		if !ok {
			return Null, apperr.InvalidInput("$let requires an object of bindings")
		}
		child := rc.Vars.Child()
		childRC := rc.WithVars(child)
		for _, k := range bindingsObj.Keys {
			raw, _ := bindingsObj.Get(k)
			v, err := renderNode(childRC, raw)
			if err != nil {
				return Null, err
			}
			child.Insert(k, v)
		}
		inNode, _ := obj.Get("in")
		return renderNode(childRC, inNode)

	case "$json":
		inner, _ := obj.Get("$json")
		v, err := renderNode(rc, inner)
		if err != nil {
			return Null, err
		}
		j, err := ToJSON(v)
		if err != nil {
			return Null, apperr.Script("$json render error", err)
		}
		b, err := marshalCompact(j)
		if err != nil {
			return Null, apperr.Script("$json marshal error", err)
		}
		return String(b), nil

	case "$if":
		predNode, _ := obj.Get("$if")
		predStr, ok := predNode.(string)
		if !ok {
			return Null, apperr.InvalidInput("$if requires a string predicate")
		}
		e, err := ParseExpr(predStr)
		if err != nil {
			return Null, apperr.Script("$if parse error", err)
		}
		cond, err := rc.Eval(e)
		if err != nil {
			return Null, err
		}
		var branchKey string
		if cond.Truthy() {
			branchKey = "then"
		} else {
			branchKey = "else"
		}
		branch, ok := obj.Get(branchKey)
		if !ok {
			return Deleted, nil
		}
		return renderNode(rc, branch)

	case "$flatten", "$flattenDeep", "$reverse", "$sort":
		inner, _ := obj.Get(opKey)
		v, err := renderNode(rc, inner)
		if err != nil {
			return Null, err
		}
		arr, err := AsArray(v)
		if err != nil {
			return Null, apperr.Script(opKey+" requires an array", err)
		}
		switch opKey {
		case "$flatten":
			return Array(flattenOnce(arr)), nil
		case "$flattenDeep":
			return Array(flattenDeep(arr)), nil
		case "$reverse":
			out := make([]Value, len(arr))
			for i, v := range arr {
				out[len(arr)-1-i] = v
			}
			return Array(out), nil
		case "$sort":
			return Array(sortValues(arr)), nil
		}
	case "$fromNow":
		inner, _ := obj.Get("$fromNow")
		s, ok := inner.(string)
		if !ok {
			return Null, apperr.InvalidInput("$fromNow requires a string duration")
		}
		d, err := parseFromNow(s)
		if err != nil {
			return Null, apperr.Script("$fromNow parse error", err)
		}
		return String(time.Now().Add(d).Format(time.RFC3339)), nil
	}
	return Null, fmt.Errorf("unhandled operator %q", opKey)
}

func renderMap(rc *RenderContext, obj *Object) (Value, error) {
	var eachKey, varName string
	for _, k := range obj.Keys {
		if m := eachKeyPattern.FindStringSubmatch(k); m != nil {
			eachKey = k
			varName = m[1]
		}
	}
	allowed := map[string]bool{"$map": true}
	if eachKey != "" {
		allowed[eachKey] = true
	}
	for _, k := range obj.Keys {
		if !allowed[k] {
			return Null, apperr.InvalidInput("$map has unexpected sibling key %q", k)
		}
	}
	if eachKey == "" {
		return Null, apperr.InvalidInput("$map requires an \"each(var)\" companion key")
	}
	arrNode, _ := obj.Get("$map")
	arrVal, err := renderNode(rc, arrNode)
	if err != nil {
		return Null, err
	}
	arr, err := AsArray(arrVal)
	if err != nil {
		return Null, apperr.Script("$map requires an array", err)
	}
	tmpl, _ := obj.Get(eachKey)
	out := make([]Value, 0, len(arr))
	for _, elem := range arr {
		child := rc.Vars.Child()
		child.Insert(varName, elem)
		v, err := renderNode(rc.WithVars(child), tmpl)
		if err != nil {
			return Null, err
		}
		if v.IsDeleted() {
			continue
		}
		out = append(out, v)
	}
	return Array(out), nil
}

func renderPlainObject(rc *RenderContext, obj *Object) (Value, error) {
	pairs := make([]Pair, 0, obj.Len())
	for _, k := range obj.Keys {
		raw, _ := obj.Get(k)
		v, err := renderNode(rc, raw)
		if err != nil {
			return Null, err
		}
		if v.IsDeleted() {
			continue
		}
		pairs = append(pairs, Pair{Key: k, Value: v})
	}
	return Object(pairs), nil
}

func flattenOnce(arr []Value) []Value {
	var out []Value
	for _, v := range arr {
		if v.Kind() == KindArray {
			out = append(out, v.Arr()...)
		} else {
			out = append(out, v)
		}
	}
	return out
}

func flattenDeep(arr []Value) []Value {
	var out []Value
	for _, v := range arr {
		if v.Kind() == KindArray {
			out = append(out, flattenDeep(v.Arr())...)
		} else {
			out = append(out, v)
		}
	}
	return out
}

func sortValues(arr []Value) []Value {
	out := make([]Value, len(arr))
	copy(out, arr)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind() == KindNumber && b.Kind() == KindNumber {
			return a.Num() < b.Num()
		}
		return a.Stringify() < b.Stringify()
	})
	return out
}

// parseFromNow parses durations like "1 day", "-3 hours", "30 minutes".
func parseFromNow(s string) (time.Duration, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) != 2 {
		return 0, fmt.Errorf("expected \"<n> <unit>\", got %q", s)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("invalid duration amount %q", fields[0])
	}
	unit := strings.TrimSuffix(strings.ToLower(fields[1]), "s")
	var base time.Duration
	switch unit {
	case "second":
		base = time.Second
	case "minute":
		base = time.Minute
	case "hour":
		base = time.Hour
	case "day":
		base = 24 * time.Hour
	case "week":
		base = 7 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("unknown duration unit %q", fields[1])
	}
	return time.Duration(n) * base, nil
}

// Render renders a decoded template Node against rc and returns the
// resulting Value. This is the entry point the worker and HTTP facade use.
func Render(rc *RenderContext, node Node) (Value, error) {
	return renderNode(rc, node)
}
