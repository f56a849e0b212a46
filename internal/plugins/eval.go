package plugins

import (
	"github.com/botcast/worker/internal/apperr"
	"github.com/botcast/worker/internal/runtime"
)

// EvalPlugin registers eval(template, values), grounded on
// original_source's imports/mod.rs Eval callable: template is a JSON
// string re-parsed as a template node and rendered with values bound
// into a child scope, the same mechanism internal/urn uses to resolve
// urn:script: references.
type EvalPlugin struct{}

func (EvalPlugin) Register(ctx *runtime.Context) {
	ctx.Insert("eval", runtime.Callable(runtime.AsyncFunc(evalCallBuiltin)))
}

func evalCallBuiltin(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
	vals, err := rc.EvaluateArgs(args)
	if err != nil {
		return runtime.Null, err
	}
	if len(vals) != 2 {
		return runtime.Null, apperr.InvalidInput("eval(template, values) takes exactly two arguments")
	}
	template, err := runtime.AsString(vals[0])
	if err != nil {
		return runtime.Null, err
	}
	pairs, err := runtime.AsObject(vals[1])
	if err != nil {
		return runtime.Null, apperr.InvalidInput("eval(template, values): values must be an object")
	}

	node, err := runtime.DecodeTemplate([]byte(template))
	if err != nil {
		return runtime.Null, apperr.Script("eval: parse template", err)
	}

	child := rc.Vars.Child()
	for _, p := range pairs {
		child.Insert(p.Key, p.Value)
	}
	return rc.WithVars(child).Render(node)
}
