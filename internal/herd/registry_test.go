package herd

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/farmsight/herdfeed/internal/api"
	"github.com/farmsight/herdfeed/internal/model"
)

// fakeSource serves a fixed animal list, optionally failing.
type fakeSource struct {
	mu      sync.Mutex
	animals []model.Animal
	err     error
	calls   int
}

func (f *fakeSource) GetAllAnimals(ctx context.Context, opts api.ListAnimalsOptions) ([]model.Animal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Animal, len(f.animals))
	copy(out, f.animals)
	return out, nil
}

func (f *fakeSource) set(animals []model.Animal, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.animals = animals
	f.err = err
}

func testHerd() []model.Animal {
	return []model.Animal{
		{ID: 1, TagID: "NL-4471", Name: "Bella", Species: "cattle", Status: "active"},
		{ID: 2, TagID: "NL-4472", Name: "Clara", Species: "cattle", Status: "active"},
	}
}

func TestRegistry_Load(t *testing.T) {
	source := &fakeSource{animals: testHerd()}
	r := NewRegistry(Config{}, source, nil)

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := r.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
	if a, ok := r.ByID(1); !ok || a.Name != "Bella" {
		t.Errorf("ByID(1) = (%+v, %v)", a, ok)
	}
	if r.LastSyncAt().IsZero() {
		t.Error("LastSyncAt should be set after Load")
	}
}

func TestRegistry_ByTagCaseInsensitive(t *testing.T) {
	source := &fakeSource{animals: testHerd()}
	r := NewRegistry(Config{}, source, nil)
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for _, tag := range []string{"NL-4471", "nl-4471", "Nl-4471"} {
		if a, ok := r.ByTag(tag); !ok || a.ID != 1 {
			t.Errorf("ByTag(%q) = (%+v, %v)", tag, a, ok)
		}
	}
	if _, ok := r.ByTag("NL-0000"); ok {
		t.Error("expected miss for unknown tag")
	}
}

func TestRegistry_LoadFailureKeepsPrevious(t *testing.T) {
	source := &fakeSource{animals: testHerd()}
	r := NewRegistry(Config{}, source, nil)
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	source.set(nil, errors.New("backend down"))
	if err := r.Load(context.Background()); err == nil {
		t.Fatal("expected error from failed load")
	}

	// Directory from the successful sync survives.
	if got := r.Count(); got != 2 {
		t.Errorf("Count() = %d after failed reload, want 2", got)
	}
}

func TestRegistry_StartSurvivesInitialFailure(t *testing.T) {
	source := &fakeSource{err: errors.New("backend down")}
	r := NewRegistry(Config{}, source, nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start must not fail on initial load error: %v", err)
	}
	defer r.Stop(context.Background())

	if got := r.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0 (empty start)", got)
	}
}

func TestRegistry_Reconciles(t *testing.T) {
	source := &fakeSource{animals: testHerd()}
	r := NewRegistry(Config{ReconcileInterval: 20 * time.Millisecond}, source, nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop(context.Background())

	// A new animal appears on the backend; the reconcile loop picks it up.
	source.set(append(testHerd(), model.Animal{ID: 3, TagID: "NL-4473"}), nil)

	deadline := time.Now().Add(2 * time.Second)
	for r.Count() != 3 {
		if time.Now().After(deadline) {
			t.Fatal("reconcile never picked up the new animal")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, ok := r.ByTag("NL-4473"); !ok {
		t.Error("expected new animal by tag after reconcile")
	}
}

func TestRegistry_ResolveTag(t *testing.T) {
	source := &fakeSource{animals: testHerd()}
	r := NewRegistry(Config{}, source, nil)
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		name string
		m    model.Measurement
		want string
	}{
		{"frame carries tag", model.Measurement{AnimalID: 1, TagID: "NL-4471"}, "NL-4471"},
		{"tag from registry", model.Measurement{AnimalID: 2}, "NL-4472"},
		{"unknown animal", model.Measurement{AnimalID: 999}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.ResolveTag(tt.m); got != tt.want {
				t.Errorf("ResolveTag() = %q, want %q", got, tt.want)
			}
		})
	}
}
