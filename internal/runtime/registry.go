package runtime

// Plugin registers one or more named callables into a Context before a
// render begins. Plugins hold no per-render state; any state a plugin
// needs (an HTTP client, a repository handle) is captured at
// construction time.
type Plugin interface {
	Register(ctx *Context)
}

// PluginFunc adapts a plain function into a Plugin.
type PluginFunc func(ctx *Context)

func (f PluginFunc) Register(ctx *Context) { f(ctx) }

// NewRootContext builds a fresh root Context with every plugin in stack
// registered, ready to render a template.
func NewRootContext(stack ...Plugin) *Context {
	ctx := NewContext()
	for _, p := range stack {
		p.Register(ctx)
	}
	return ctx
}
