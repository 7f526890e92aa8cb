package service

import (
	"context"
	"errors"
	"testing"
)

// fakeService is a minimal Service for registry tests.
type fakeService struct {
	name string
}

func (f *fakeService) Name() string                          { return f.name }
func (f *fakeService) Initialize(ctx context.Context) error  { return nil }
func (f *fakeService) Cleanup(ctx context.Context) error     { return nil }
func (f *fakeService) Healthcheck(ctx context.Context) error { return nil }

func TestRegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	svc := &fakeService{name: "fuzzymatch"}
	if err := reg.Register(svc); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := reg.Get("fuzzymatch")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != svc {
		t.Error("Get returned a different service instance")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(&fakeService{name: "graphindex"}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	err := reg.Register(&fakeService{name: "graphindex"})
	if err == nil {
		t.Fatal("expected error registering duplicate name")
	}

	var dup *DuplicateServiceError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateServiceError, got %T", err)
	}
	if dup.Name != "graphindex" {
		t.Errorf("expected name graphindex, got %q", dup.Name)
	}
}

func TestRegisterNil(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(nil); err == nil {
		t.Error("expected error registering nil service")
	}
}

func TestRegisterEmptyName(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&fakeService{name: ""}); err == nil {
		t.Error("expected error registering empty name")
	}
}

func TestGetUnknown(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get("nope")
	if err == nil {
		t.Fatal("expected error for unknown service")
	}

	var unknown *UnknownServiceError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownServiceError, got %T", err)
	}
	if unknown.Name != "nope" {
		t.Errorf("expected name nope, got %q", unknown.Name)
	}
}

func TestAllPreservesRegistrationOrder(t *testing.T) {
	reg := NewRegistry()

	names := []string{"queryopt", "fuzzymatch", "graphindex"}
	for _, n := range names {
		if err := reg.Register(&fakeService{name: n}); err != nil {
			t.Fatalf("Register(%s) failed: %v", n, err)
		}
	}

	all := reg.All()
	if len(all) != len(names) {
		t.Fatalf("expected %d services, got %d", len(names), len(all))
	}
	for i, svc := range all {
		if svc.Name() != names[i] {
			t.Errorf("position %d: expected %s, got %s", i, names[i], svc.Name())
		}
	}

	got := reg.Names()
	for i, n := range names {
		if got[i] != n {
			t.Errorf("Names position %d: expected %s, got %s", i, n, got[i])
		}
	}
}

func TestLen(t *testing.T) {
	reg := NewRegistry()
	if reg.Len() != 0 {
		t.Errorf("expected empty registry, got %d", reg.Len())
	}
	_ = reg.Register(&fakeService{name: "a"})
	_ = reg.Register(&fakeService{name: "b"})
	if reg.Len() != 2 {
		t.Errorf("expected 2, got %d", reg.Len())
	}
}
