package runtime

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// AsyncCallable is a named built-in that performs effectful work (HTTP,
// LLM calls, repository reads) while the render suspends. Arguments
// arrive as unevaluated expression trees so the callable can decide
// whether, and in what order, to evaluate them.
type AsyncCallable interface {
	Call(rc *RenderContext, args []Expr) (Value, error)
}

// AsyncFunc adapts a plain function into an AsyncCallable.
type AsyncFunc func(rc *RenderContext, args []Expr) (Value, error)

func (f AsyncFunc) Call(rc *RenderContext, args []Expr) (Value, error) { return f(rc, args) }

// RenderContext binds a Go context.Context (for cancellation/timeouts) to
// a lexical Context so callables can render nested expressions and
// templates at the call site.
type RenderContext struct {
	Go   context.Context
	Vars *Context
}

// WithVars returns a RenderContext bound to a different lexical scope,
// keeping the same Go context.
func (rc *RenderContext) WithVars(vars *Context) *RenderContext {
	return &RenderContext{Go: rc.Go, Vars: vars}
}

// Eval evaluates a single mini-language expression in rc's scope.
func (rc *RenderContext) Eval(e Expr) (Value, error) {
	return evalExpr(rc, e)
}

// Render walks a raw template Node (as produced by DecodeTemplate or
// NodeFromValue) in rc's scope, applying the full operator/interpolation
// semantics of the template interpreter.
func (rc *RenderContext) Render(node Node) (Value, error) {
	return renderNode(rc, node)
}

// EvaluateArgs renders each argument concurrently against the call-site
// context and joins the results in array order. This is the
// `evaluate_args` helper essentially every built-in uses.
func (rc *RenderContext) EvaluateArgs(args []Expr) ([]Value, error) {
	out := make([]Value, len(args))
	g, gctx := errgroup.WithContext(rc.Go)
	for i := range args {
		i := i
		g.Go(func() error {
			sub := &RenderContext{Go: gctx, Vars: rc.Vars}
			v, err := sub.Eval(args[i])
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
