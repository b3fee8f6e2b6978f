// Package lifecycle installs type callbacks into a runtime's hook table.
//
// A runtime consults its hook table when collecting or comparing boundary
// values. This package bridges the registry to that table: every registered
// type's destructor and equality callback is wrapped in a panic guard and
// installed under the type's tag, for types registered before the bind and,
// through a registry observer, for types registered after it.
//
// # Guarding
//
// A panic in a destructor or equality callback must never unwind into the
// runtime's collection loop. The installed wrappers recover, log through
// this package's zap logger, and suppress: a panicking destructor is
// dropped after logging, a panicking equality reports not equal.
//
//	binding, err := lifecycle.Install(stack, reg)
//	if err != nil {
//	    return err
//	}
//	defer binding.Detach()
//
// Detach stops following the registry; hooks already installed stay
// installed, since hook tables never give callbacks back.
//
// # Ordering
//
// Hooks for a tag must be in the table before the first value of that tag
// is pushed. Registrations that race a stack's goroutine are not
// synchronized by this package; register types before handing the registry
// to a running stack.
package lifecycle
