package runtime

// Context is a lexical scope: an immutable parent pointer plus a local
// name->Value mapping. Lookup walks from innermost scope outward; Insert
// mutates only the top scope. Cheap to chain, never mutates a parent.
type Context struct {
	parent *Context
	vars   map[string]Value
}

// NewContext returns an empty root context.
func NewContext() *Context {
	return &Context{vars: map[string]Value{}}
}

// Child returns a nested context that shadows but never mutates c.
func (c *Context) Child() *Context {
	return &Context{parent: c, vars: map[string]Value{}}
}

// Insert binds name to v in the top scope only.
func (c *Context) Insert(name string, v Value) {
	c.vars[name] = v
}

// Lookup walks from this scope outward, returning (Null, false) if unbound.
func (c *Context) Lookup(name string) (Value, bool) {
	for s := c; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return Null, false
}
