// Package registry maps application references of the form
// "<module>.<attribute>" to http.Handler factories.
package registry

import (
	stderrors "errors"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/brendan.keane/apibridge/internal/errors"
)

// Sentinel causes carried by resolution errors
var (
	ErrInvalidReference  = stderrors.New("application reference must look like <module>.<attribute>")
	ErrModuleNotFound    = stderrors.New("module not registered")
	ErrAttributeNotFound = stderrors.New("module has no such attribute")
)

// Factory builds an application
type Factory func() (http.Handler, error)

// Registry holds factories grouped by module
type Registry struct {
	mu      sync.RWMutex
	modules map[string]map[string]Factory
}

// New returns an empty registry
func New() *Registry {
	return &Registry{modules: make(map[string]map[string]Factory)}
}

// Default is the process-wide registry used by Register and Resolve
var Default = New()

// SplitReference splits ref on its last '.' into module and attribute
func SplitReference(ref string) (module, attribute string, err error) {
	i := strings.LastIndex(ref, ".")
	if i <= 0 || i == len(ref)-1 {
		return "", "", errors.Wrap(ErrInvalidReference, errors.ErrorTypeConfig, "invalid application reference").
			WithContext("reference", ref)
	}
	return ref[:i], ref[i+1:], nil
}

// Register adds a factory under ref, replacing any previous one
func (r *Registry) Register(ref string, factory Factory) error {
	module, attribute, err := SplitReference(ref)
	if err != nil {
		return err
	}
	if factory == nil {
		return errors.New(errors.ErrorTypeConfig, "nil application factory").
			WithContext("reference", ref)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	attrs, ok := r.modules[module]
	if !ok {
		attrs = make(map[string]Factory)
		r.modules[module] = attrs
	}
	attrs[attribute] = factory
	return nil
}

// MustRegister is Register for init-time use; it panics on a bad reference
func (r *Registry) MustRegister(ref string, factory Factory) {
	if err := r.Register(ref, factory); err != nil {
		panic(err)
	}
}

// Resolve builds the application registered under ref
func (r *Registry) Resolve(ref string) (http.Handler, error) {
	module, attribute, err := SplitReference(ref)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	attrs, ok := r.modules[module]
	var factory Factory
	if ok {
		factory, ok = attrs[attribute]
	}
	r.mu.RUnlock()

	if attrs == nil {
		return nil, errors.Wrap(ErrModuleNotFound, errors.ErrorTypeConfig, "cannot resolve application").
			WithContext("reference", ref).
			WithContext("module", module)
	}
	if !ok {
		return nil, errors.Wrap(ErrAttributeNotFound, errors.ErrorTypeConfig, "cannot resolve application").
			WithContext("reference", ref).
			WithContext("attribute", attribute)
	}

	app, err := factory()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "application factory failed").
			WithContext("reference", ref)
	}
	if app == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "application factory returned nil").
			WithContext("reference", ref)
	}
	return app, nil
}

// Refs lists every registered reference in sorted order
func (r *Registry) Refs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var refs []string
	for module, attrs := range r.modules {
		for attribute := range attrs {
			refs = append(refs, module+"."+attribute)
		}
	}
	sort.Strings(refs)
	return refs
}

// Register adds a factory to the Default registry
func Register(ref string, factory Factory) error {
	return Default.Register(ref, factory)
}

// MustRegister adds a factory to the Default registry or panics
func MustRegister(ref string, factory Factory) {
	Default.MustRegister(ref, factory)
}

// Resolve resolves ref against the Default registry
func Resolve(ref string) (http.Handler, error) {
	return Default.Resolve(ref)
}

// Handler adapts a ready-made handler into a Factory
func Handler(h http.Handler) Factory {
	return func() (http.Handler, error) { return h, nil }
}
