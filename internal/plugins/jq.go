package plugins

import (
	"github.com/itchyny/gojq"

	"github.com/botcast/worker/internal/apperr"
	"github.com/botcast/worker/internal/runtime"
)

// JQPlugin registers jq(value, query), grounded on original_source's
// imports/jq.rs Jq callable (there backed by an internal xq wrapper; here
// the ecosystem-standard itchyny/gojq fills the same role).
type JQPlugin struct{}

func (JQPlugin) Register(ctx *runtime.Context) {
	ctx.Insert("jq", runtime.Callable(runtime.AsyncFunc(jqCall)))
}

func jqCall(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
	vals, err := rc.EvaluateArgs(args)
	if err != nil {
		return runtime.Null, err
	}
	if len(vals) != 2 {
		return runtime.Null, apperr.InvalidInput("jq(value, query) takes exactly two arguments")
	}
	query, err := runtime.AsString(vals[1])
	if err != nil {
		return runtime.Null, err
	}
	parsed, err := gojq.Parse(query)
	if err != nil {
		return runtime.Null, apperr.Script("jq: parse query", err)
	}
	input, err := runtime.ToJSON(vals[0])
	if err != nil {
		return runtime.Null, apperr.Script("jq: render input", err)
	}

	iter := parsed.RunWithContext(rc.Go, input)
	var results []runtime.Value
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return runtime.Null, apperr.Script("jq: evaluate query", err)
		}
		results = append(results, runtime.FromJSON(v))
	}
	return runtime.Array(results), nil
}
