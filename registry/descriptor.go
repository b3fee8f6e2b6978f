package registry

import (
	"reflect"

	scriptbridge "github.com/wippyai/script-bridge"
)

// Descriptor is the boundary identity of a registered Go type.
// Descriptors are immutable after registration.
type Descriptor struct {
	tag     scriptbridge.Tag
	name    string
	goType  reflect.Type
	equals  func(a, b any) bool
	destroy func(payload any)
}

// Tag returns the type's boundary tag
func (d *Descriptor) Tag() scriptbridge.Tag {
	return d.tag
}

// Name returns the diagnostic name given at registration
func (d *Descriptor) Name() string {
	return d.name
}

// GoType returns the registered Go type
func (d *Descriptor) GoType() reflect.Type {
	return d.goType
}

// Equal compares two payloads with the registered equality callback.
// Payloads that are not the descriptor's Go type compare unequal.
func (d *Descriptor) Equal(a, b any) bool {
	return d.equals(a, b)
}

// Destroy releases a payload with the registered destructor.
// Payloads that are not the descriptor's Go type are ignored.
func (d *Descriptor) Destroy(payload any) {
	d.destroy(payload)
}

// Hooks returns the descriptor's callbacks in the form a runtime hook
// table accepts. The hooks carry the descriptor's defensive downcasts but
// no panic guarding; install through the lifecycle package to get both.
func (d *Descriptor) Hooks() scriptbridge.Hooks {
	return scriptbridge.Hooks{
		Name:    d.name,
		Destroy: d.destroy,
		Equals:  d.equals,
	}
}
