package lifecycle

import (
	"go.uber.org/zap"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/registry"
)

// Binding ties a hook table to a registry. While attached, every new
// registration is installed into the table.
type Binding struct {
	tbl scriptbridge.HookTable
	reg *registry.Registry
}

var _ registry.Observer = (*Binding)(nil)

// Install installs guarded hooks for every type in reg into tbl and
// subscribes to future registrations. Tags whose hooks are already in the
// table are skipped; any other install failure aborts.
func Install(tbl scriptbridge.HookTable, reg *registry.Registry) (*Binding, error) {
	if tbl == nil {
		return nil, errors.InvalidInput(errors.PhaseHook, "hook table cannot be nil")
	}
	if reg == nil {
		return nil, errors.InvalidInput(errors.PhaseHook, "registry cannot be nil")
	}

	var installErr error
	reg.Each(func(d *registry.Descriptor) bool {
		if err := install(tbl, d); err != nil {
			installErr = err
			return false
		}
		return true
	})
	if installErr != nil {
		return nil, installErr
	}

	b := &Binding{tbl: tbl, reg: reg}
	reg.Subscribe(b)
	return b, nil
}

// Detach stops following the registry. Hooks already installed stay
// installed.
func (b *Binding) Detach() {
	b.reg.Unsubscribe(b)
}

// OnRegister implements registry.Observer. Install failures cannot be
// returned here, so they are logged and the registration proceeds; the
// first push of the affected type will surface the missing hooks.
func (b *Binding) OnRegister(d *registry.Descriptor) {
	if err := install(b.tbl, d); err != nil {
		Logger().Warn("hook install failed",
			zap.String("type", d.Name()),
			zap.Uint32("tag", uint32(d.Tag())),
			zap.Error(err))
	}
}

func install(tbl scriptbridge.HookTable, d *registry.Descriptor) error {
	err := tbl.InstallHooks(d.Tag(), Guard(d))
	if err == nil {
		return nil
	}
	// Hooks are immutable once installed; a prior bind of the same
	// registry already covered this tag.
	if e, ok := err.(*errors.Error); ok && e.Kind == errors.KindHookInstalled {
		return nil
	}
	return err
}

// Guard wraps a descriptor's callbacks in panic guards suitable for a
// runtime hook table. A panicking destructor is logged and suppressed; a
// panicking equality is logged and reports not equal.
func Guard(d *registry.Descriptor) scriptbridge.Hooks {
	name := d.Name()
	tag := uint32(d.Tag())

	return scriptbridge.Hooks{
		Name: name,
		Destroy: func(payload any) {
			defer func() {
				if r := recover(); r != nil {
					Logger().Error("destructor panicked",
						zap.String("type", name),
						zap.Uint32("tag", tag),
						zap.Any("panic", r))
				}
			}()
			d.Destroy(payload)
		},
		Equals: func(a, b any) (equal bool) {
			defer func() {
				if r := recover(); r != nil {
					equal = false
					Logger().Error("equality hook panicked",
						zap.String("type", name),
						zap.Uint32("tag", tag),
						zap.Any("panic", r))
				}
			}()
			return d.Equal(a, b)
		},
	}
}
