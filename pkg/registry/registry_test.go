package registry

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"reflect"
	"testing"

	"github.com/brendan.keane/apibridge/internal/errors"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

func TestSplitReference(t *testing.T) {
	tests := []struct {
		ref        string
		wantModule string
		wantAttr   string
		wantErr    bool
	}{
		{ref: "api.index.application", wantModule: "api.index", wantAttr: "application"},
		{ref: "main.app", wantModule: "main", wantAttr: "app"},
		{ref: "app", wantErr: true},
		{ref: "", wantErr: true},
		{ref: ".app", wantErr: true},
		{ref: "main.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			module, attr, err := SplitReference(tt.ref)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SplitReference(%q) should fail", tt.ref)
				}
				if !stderrors.Is(err, ErrInvalidReference) {
					t.Errorf("expected ErrInvalidReference, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitReference(%q) error = %v", tt.ref, err)
			}
			if module != tt.wantModule || attr != tt.wantAttr {
				t.Errorf("got (%q, %q), expected (%q, %q)", module, attr, tt.wantModule, tt.wantAttr)
			}
		})
	}
}

func TestRegistry_Resolve(t *testing.T) {
	r := New()
	r.MustRegister("api.index.application", Handler(okHandler))

	app, err := r.Resolve("api.index.application")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if app == nil {
		t.Fatal("Resolve() returned nil handler")
	}
}

func TestRegistry_ResolveErrors(t *testing.T) {
	r := New()
	r.MustRegister("api.index.application", Handler(okHandler))
	r.MustRegister("api.broken.application", func() (http.Handler, error) {
		return nil, fmt.Errorf("database unavailable")
	})
	r.MustRegister("api.empty.application", func() (http.Handler, error) {
		return nil, nil
	})

	tests := []struct {
		name    string
		ref     string
		wantErr error
	}{
		{"no separator", "application", ErrInvalidReference},
		{"unknown module", "api.missing.application", ErrModuleNotFound},
		{"unknown attribute", "api.index.app", ErrAttributeNotFound},
		{"factory failure", "api.broken.application", nil},
		{"nil application", "api.empty.application", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.ref)
			if err == nil {
				t.Fatal("Resolve() should fail")
			}
			if !errors.IsType(err, errors.ErrorTypeConfig) {
				t.Errorf("expected config error, got %s", errors.GetType(err))
			}
			if tt.wantErr != nil && !stderrors.Is(err, tt.wantErr) {
				t.Errorf("expected %v in chain, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRegistry_Register(t *testing.T) {
	r := New()
	if err := r.Register("noseparator", Handler(okHandler)); err == nil {
		t.Error("Register should reject references without a module")
	}
	if err := r.Register("a.b", nil); err == nil {
		t.Error("Register should reject nil factories")
	}

	r.MustRegister("b.app", Handler(okHandler))
	r.MustRegister("a.app", Handler(okHandler))
	r.MustRegister("a.other", Handler(okHandler))

	if got := r.Refs(); !reflect.DeepEqual(got, []string{"a.app", "a.other", "b.app"}) {
		t.Errorf("Refs(): got %v", got)
	}
}

func TestMustRegister_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustRegister should panic on an invalid reference")
		}
	}()
	New().MustRegister("invalid", Handler(okHandler))
}
