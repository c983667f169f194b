package behavior

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrUnknownKind is returned when a template names a kind the factory lacks.
	ErrUnknownKind = errors.New("behavior: unknown kind")
	// ErrDuplicateName is returned when two behaviors of one agent share a name.
	ErrDuplicateName = errors.New("behavior: duplicate name")
)

// Template is the authoring description of one behavior instance.
type Template struct {
	Kind    string
	Name    string
	CurbMin time.Duration
	CurbMax time.Duration
	Params  map[string]any
}

// WithParams clones the template and overlays overrides onto its parameters.
func (t Template) WithParams(overrides map[string]any) Template {
	cloned := t
	cloned.Params = make(map[string]any, len(t.Params)+len(overrides))
	for k, v := range t.Params {
		cloned.Params[k] = v
	}
	for k, v := range overrides {
		cloned.Params[k] = v
	}
	return cloned
}

func (t Template) instanceName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Kind
}

// Constructor builds a zero-configured behavior of one kind.
type Constructor func() Behavior

// Factory maps kind names onto constructors.
type Factory struct {
	kinds map[string]Constructor
}

func NewFactory() *Factory {
	return &Factory{kinds: make(map[string]Constructor)}
}

// Register adds or replaces the constructor for kind.
func (f *Factory) Register(kind string, ctor Constructor) {
	if f.kinds == nil {
		f.kinds = make(map[string]Constructor)
	}
	f.kinds[kind] = ctor
}

// New builds a fresh instance of kind.
func (f *Factory) New(kind string) (Behavior, error) {
	if f == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	ctor, ok := f.kinds[kind]
	if !ok || ctor == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	b := ctor()
	if b == nil || b.Core() == nil {
		return nil, fmt.Errorf("behavior: constructor for %q returned nil", kind)
	}
	return b, nil
}

// Kinds lists the registered kinds in sorted order.
func (f *Factory) Kinds() []string {
	if f == nil {
		return nil
	}
	kinds := make([]string, 0, len(f.kinds))
	for kind := range f.kinds {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// SkippedParam names a template parameter the instance did not accept.
type SkippedParam struct {
	Behavior string
	Kind     string
	Param    string
}

// RegisterReport summarises a Register call.
type RegisterReport struct {
	Registered []string
	Skipped    []SkippedParam
}

// Registry owns the behaviors bound to one agent, in registration order.
// It is not safe for concurrent use.
type Registry struct {
	factory   *Factory
	behaviors []Behavior
	byName    map[string]Behavior
}

func NewRegistry(factory *Factory) *Registry {
	return &Registry{factory: factory, byName: make(map[string]Behavior)}
}

// Register instantiates every template, copies its parameters, binds the
// instance to ctx and appends it. Unknown kinds and duplicate names fail the
// whole call before anything is appended; unknown parameters are skipped and
// reported.
func (r *Registry) Register(templates []Template, ctx Context) (RegisterReport, error) {
	var report RegisterReport
	if r.byName == nil {
		r.byName = make(map[string]Behavior)
	}

	built := make([]Behavior, 0, len(templates))
	names := make(map[string]struct{}, len(templates))
	for i, tmpl := range templates {
		name := tmpl.instanceName()
		if name == "" {
			return RegisterReport{}, fmt.Errorf("behavior: template %d has no kind", i)
		}
		if _, exists := r.byName[name]; exists {
			return RegisterReport{}, fmt.Errorf("%w %q", ErrDuplicateName, name)
		}
		if _, exists := names[name]; exists {
			return RegisterReport{}, fmt.Errorf("%w %q", ErrDuplicateName, name)
		}
		names[name] = struct{}{}

		instance, err := r.factory.New(tmpl.Kind)
		if err != nil {
			return RegisterReport{}, fmt.Errorf("register %q: %w", name, err)
		}
		base := instance.Core()
		base.Name = name
		base.Kind = tmpl.Kind
		base.CurbMin, base.CurbMax = normalizeCurb(tmpl.CurbMin, tmpl.CurbMax)

		report.Skipped = append(report.Skipped, applyParams(instance, name, tmpl)...)
		base.bind(ctx)
		built = append(built, instance)
	}

	for _, instance := range built {
		name := instance.Core().Name
		r.behaviors = append(r.behaviors, instance)
		r.byName[name] = instance
		report.Registered = append(report.Registered, name)
	}
	return report, nil
}

func applyParams(instance Behavior, name string, tmpl Template) []SkippedParam {
	if len(tmpl.Params) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tmpl.Params))
	for key := range tmpl.Params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	setter, _ := instance.(ParamSetter)
	var skipped []SkippedParam
	for _, key := range keys {
		if setter != nil && setter.SetParam(key, tmpl.Params[key]) {
			continue
		}
		skipped = append(skipped, SkippedParam{Behavior: name, Kind: tmpl.Kind, Param: key})
	}
	return skipped
}

func normalizeCurb(lo, hi time.Duration) (time.Duration, time.Duration) {
	if lo < 0 {
		lo = 0
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Behaviors returns the registered behaviors in registration order. The
// returned slice must not be modified.
func (r *Registry) Behaviors() []Behavior {
	if r == nil {
		return nil
	}
	return r.behaviors
}

// Lookup finds a behavior by name.
func (r *Registry) Lookup(name string) (Behavior, bool) {
	if r == nil {
		return nil, false
	}
	b, ok := r.byName[name]
	return b, ok
}

// Len reports the number of registered behaviors.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.behaviors)
}

// Contains reports whether b is owned by this registry.
func (r *Registry) Contains(b Behavior) bool {
	if r == nil || b == nil {
		return false
	}
	owned, ok := r.byName[b.Core().Name]
	return ok && owned == b
}
