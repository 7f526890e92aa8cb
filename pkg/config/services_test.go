package config

import (
	"testing"
)

func TestInitializeServices(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.FuzzyMatch.Path = ""
	cfg.GraphIndex.Path = ""
	ApplyDefaults(cfg)

	reg, subs, err := InitializeServices(cfg)
	if err != nil {
		t.Fatalf("InitializeServices failed: %v", err)
	}

	if reg.Len() != 3 {
		t.Fatalf("Expected 3 registered services, got %d", reg.Len())
	}

	for _, name := range []string{"fuzzymatch", "graphindex", "queryopt"} {
		if _, err := reg.Get(name); err != nil {
			t.Errorf("Expected service %q registered: %v", name, err)
		}
	}

	if subs.FuzzyMatch == nil || subs.GraphIndex == nil || subs.QueryOpt == nil {
		t.Error("Expected all subsystem handles to be populated")
	}
}

func TestInitializeServices_NilConfig(t *testing.T) {
	if _, _, err := InitializeServices(nil); err == nil {
		t.Fatal("Expected error for nil config")
	}
}
