package plugins

import (
	"math/rand/v2"

	"github.com/botcast/worker/internal/apperr"
	"github.com/botcast/worker/internal/runtime"
)

// RandPlugin registers rand(lo, hi) and choice(arr), grounded on
// original_source's imports/mod.rs Rand/Choice callables. math/rand/v2
// replaces the original's rand crate one-for-one; no third-party RNG in
// the example pack does this job any better than the standard library's
// own v2 generator.
type RandPlugin struct{}

func (RandPlugin) Register(ctx *runtime.Context) {
	ctx.Insert("rand", runtime.Callable(runtime.AsyncFunc(randCall)))
	ctx.Insert("choice", runtime.Callable(runtime.AsyncFunc(choiceCall)))
}

func randCall(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
	vals, err := rc.EvaluateArgs(args)
	if err != nil {
		return runtime.Null, err
	}
	if len(vals) != 2 {
		return runtime.Null, apperr.InvalidInput("rand(lo, hi) takes exactly two arguments")
	}
	lo, err := runtime.AsNumber(vals[0])
	if err != nil {
		return runtime.Null, err
	}
	hi, err := runtime.AsNumber(vals[1])
	if err != nil {
		return runtime.Null, err
	}
	loI, hiI := int64(lo), int64(hi)
	if hiI <= loI {
		return runtime.Null, apperr.InvalidInput("rand(lo, hi): hi must be > lo")
	}
	return runtime.Number(float64(loI + rand.N(hiI-loI))), nil
}

func choiceCall(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
	vals, err := rc.EvaluateArgs(args)
	if err != nil {
		return runtime.Null, err
	}
	if len(vals) != 1 {
		return runtime.Null, apperr.InvalidInput("choice(arr) takes exactly one argument")
	}
	arr, err := runtime.AsArray(vals[0])
	if err != nil {
		return runtime.Null, err
	}
	if len(arr) == 0 {
		return runtime.Null, apperr.InvalidInput("choice(arr): array must be non-empty")
	}
	return arr[rand.N(len(arr))], nil
}
