package registry

import (
	"reflect"
	"sync"
	"sync/atomic"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
)

// tagCounter is the process-wide tag source. Tags start at 1 and are never
// reused, even across independent registries, so a stale tag can never
// alias a younger type.
var tagCounter atomic.Uint32

// nextTag returns a fresh, never-before-issued tag
func nextTag() scriptbridge.Tag {
	return scriptbridge.Tag(tagCounter.Add(1))
}

// Observer receives notifications about type registrations.
type Observer interface {
	OnRegister(*Descriptor)
}

// Registry maps Go types to boundary descriptors.
// Safe for concurrent use; lookups take a read lock only.
type Registry struct {
	byType    map[reflect.Type]*Descriptor
	byTag     map[scriptbridge.Tag]*Descriptor
	observers []Observer
	mu        sync.RWMutex
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]*Descriptor),
		byTag:  make(map[scriptbridge.Tag]*Descriptor),
	}
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the shared process-wide registry, creating it on first use
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New()
	})
	return defaultRegistry
}

// Register registers T and returns its descriptor.
//
// A nil equals falls back to reflect.DeepEqual; a nil destroy registers a
// no-op. The callbacks are wrapped so that payloads of the wrong dynamic
// type compare unequal and are never passed to the destructor.
func Register[T any](r *Registry, name string, equals func(a, b T) bool, destroy func(value T)) (*Descriptor, error) {
	goType := reflect.TypeOf((*T)(nil)).Elem()

	var eq func(a, b any) bool
	if equals != nil {
		eq = func(a, b any) bool {
			av, aok := a.(T)
			bv, bok := b.(T)
			if !aok || !bok {
				return false
			}
			return equals(av, bv)
		}
	}

	var dtor func(payload any)
	if destroy != nil {
		dtor = func(payload any) {
			if v, ok := payload.(T); ok {
				destroy(v)
			}
		}
	}

	return RegisterType(r, goType, name, eq, dtor)
}

// RegisterType is the type-erased registration core. Callers passing their
// own callbacks are responsible for tolerating payloads of the wrong
// dynamic type; Register wraps typed callbacks accordingly.
func RegisterType(r *Registry, goType reflect.Type, name string, equals func(a, b any) bool, destroy func(payload any)) (*Descriptor, error) {
	if goType == nil {
		return nil, errors.InvalidInput(errors.PhaseRegister, "goType cannot be nil")
	}
	if name == "" {
		name = goType.String()
	}
	if equals == nil {
		equals = reflect.DeepEqual
	}
	if destroy == nil {
		destroy = func(any) {}
	}

	r.mu.Lock()
	if existing, ok := r.byType[goType]; ok {
		r.mu.Unlock()
		return nil, errors.AlreadyRegistered(goType.String(), existing.name, uint32(existing.tag))
	}

	desc := &Descriptor{
		tag:     nextTag(),
		name:    name,
		goType:  goType,
		equals:  equals,
		destroy: destroy,
	}
	r.byType[goType] = desc
	r.byTag[desc.tag] = desc

	observers := make([]Observer, len(r.observers))
	copy(observers, r.observers)
	r.mu.Unlock()

	// Notify outside the lock so observers can call back into the registry
	for _, obs := range observers {
		obs.OnRegister(desc)
	}
	return desc, nil
}

// Lookup returns the descriptor for a Go type
func (r *Registry) Lookup(goType reflect.Type) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.byType[goType]
	return desc, ok
}

// LookupTag returns the descriptor that owns a tag
func (r *Registry) LookupTag(tag scriptbridge.Tag) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.byTag[tag]
	return desc, ok
}

// TagFor returns the tag assigned to a Go type
func (r *Registry) TagFor(goType reflect.Type) (scriptbridge.Tag, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.byType[goType]
	if !ok {
		return 0, false
	}
	return desc.tag, true
}

// TagOf returns the tag assigned to T
func TagOf[T any](r *Registry) (scriptbridge.Tag, bool) {
	return r.TagFor(reflect.TypeOf((*T)(nil)).Elem())
}

// Verify reports whether tag is the tag registered for goType.
// A tag of 0, an unregistered type, and a foreign tag all verify false.
func (r *Registry) Verify(tag scriptbridge.Tag, goType reflect.Type) bool {
	if tag == 0 || goType == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.byType[goType]
	return ok && desc.tag == tag
}

// Subscribe adds an observer notified of every future registration
func (r *Registry) Subscribe(obs Observer) {
	if obs == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, obs)
}

// Unsubscribe removes a previously subscribed observer
func (r *Registry) Unsubscribe(obs Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, o := range r.observers {
		if o == obs {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered types
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byType)
}

// Each iterates over registered descriptors until fn returns false.
// Iteration order is unspecified.
func (r *Registry) Each(fn func(*Descriptor) bool) {
	r.mu.RLock()
	descs := make([]*Descriptor, 0, len(r.byTag))
	for _, d := range r.byTag {
		descs = append(descs, d)
	}
	r.mu.RUnlock()

	for _, d := range descs {
		if !fn(d) {
			return
		}
	}
}
