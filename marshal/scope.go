package marshal

// Scope runs fn and pops every slot it leaves behind, restoring the stack
// to its entry depth on normal return, error, and panic alike. fn's error
// passes through unchanged.
//
// fn must not pop below the depth it was entered at; slots removed beneath
// the scope cannot be restored.
func (c *Channel) Scope(fn func() error) error {
	top := c.stack.Top()
	defer func() {
		if n := c.stack.Top() - top; n > 0 {
			c.stack.Pop(n)
		}
	}()
	return fn()
}
