package backend

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/ggframe/gpucore"
)

type stubBackend struct{ name string }

func (b stubBackend) Name() string { return b.name }
func (stubBackend) CreateSession(gpucore.Surface) (gpucore.Session, error) {
	return nil, errors.New("stub")
}

func register(t *testing.T, name string, f Factory) {
	t.Helper()
	Register(name, f)
	t.Cleanup(func() { Unregister(name) })
}

func TestRegistryOpen(t *testing.T) {
	var got map[string]any
	register(t, "stub", func(opts map[string]any) (gpucore.Backend, error) {
		got = opts
		return stubBackend{name: "stub"}, nil
	})

	b, err := Open("stub", map[string]any{"k": 1})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if b.Name() != "stub" || got["k"] != 1 {
		t.Errorf("Open returned %q with options %v", b.Name(), got)
	}
	if !IsRegistered("stub") || !slices.Contains(Available(), "stub") {
		t.Error("stub not listed")
	}
}

func TestRegistryOpenUnknown(t *testing.T) {
	if _, err := Open("does-not-exist", nil); !errors.Is(err, ErrBackendNotFound) {
		t.Errorf("err = %v, want ErrBackendNotFound", err)
	}
}

func TestRegistryDefaultFallsBack(t *testing.T) {
	for _, name := range Available() {
		f := factories[name]
		Unregister(name)
		t.Cleanup(func() { Register(name, f) })
	}
	register(t, NameWGPU, func(map[string]any) (gpucore.Backend, error) {
		return nil, errors.New("no adapter")
	})
	register(t, NameSoft, func(map[string]any) (gpucore.Backend, error) {
		return stubBackend{name: NameSoft}, nil
	})

	b, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if b.Name() != NameSoft {
		t.Errorf("Default() = %q, want %q", b.Name(), NameSoft)
	}
}
