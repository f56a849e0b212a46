package plugins

import (
	"strings"

	"github.com/botcast/worker/internal/apperr"
	"github.com/botcast/worker/internal/runtime"
)

// ReplacePlugin registers replace(s, old, new), grounded on
// original_source's imports/mod.rs Replace callable.
type ReplacePlugin struct{}

func (ReplacePlugin) Register(ctx *runtime.Context) {
	ctx.Insert("replace", runtime.Callable(runtime.AsyncFunc(replaceCall)))
}

func replaceCall(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
	vals, err := rc.EvaluateArgs(args)
	if err != nil {
		return runtime.Null, err
	}
	if len(vals) != 3 {
		return runtime.Null, apperr.InvalidInput("replace(s, old, new) takes exactly three arguments")
	}
	s, err := runtime.AsString(vals[0])
	if err != nil {
		return runtime.Null, err
	}
	old, err := runtime.AsString(vals[1])
	if err != nil {
		return runtime.Null, err
	}
	replacement, err := runtime.AsString(vals[2])
	if err != nil {
		return runtime.Null, err
	}
	return runtime.String(strings.ReplaceAll(s, old, replacement)), nil
}
