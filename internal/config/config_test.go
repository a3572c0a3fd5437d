package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "chunkworld.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestDefaultIsValid(t *testing.T) {
	for _, p := range []string{ProfileDesktop, ProfileConstrained} {
		if err := ForProfile(p).Validate(); err != nil {
			t.Fatalf("profile %s: %v", p, err)
		}
	}
}

func TestProfiles(t *testing.T) {
	d := ForProfile(ProfileDesktop)
	if d.Stream.ActiveRadius != 3 || d.Stream.EvictProbability != 0.01 {
		t.Fatalf("desktop: got radius %d p %v", d.Stream.ActiveRadius, d.Stream.EvictProbability)
	}
	c := ForProfile(ProfileConstrained)
	if c.Stream.ActiveRadius != 2 || c.Stream.EvictProbability != 0.05 {
		t.Fatalf("constrained: got radius %d p %v", c.Stream.ActiveRadius, c.Stream.EvictProbability)
	}
	if c.Stream.CacheCap != 500 || c.Stream.EvictBatch != 50 {
		t.Fatalf("constrained: got cap %d batch %d, want 500/50", c.Stream.CacheCap, c.Stream.EvictBatch)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("got %+v, want defaults", cfg)
	}
}

func TestLoadProfileDefaultsAndOverrides(t *testing.T) {
	p := writeFile(t, `
profile: constrained
store:
  path: /tmp/w.db
stream:
  cache_cap: 120
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Stream.ActiveRadius != 2 {
		t.Fatalf("radius: got %d, want 2", cfg.Stream.ActiveRadius)
	}
	if cfg.Stream.CacheCap != 120 {
		t.Fatalf("cache cap: got %d, want 120", cfg.Stream.CacheCap)
	}
	if cfg.Store.Path != "/tmp/w.db" {
		t.Fatalf("path: got %q", cfg.Store.Path)
	}
	if cfg.Terrain.VerticalOffset != 8 {
		t.Fatalf("terrain default lost: got %d", cfg.Terrain.VerticalOffset)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown profile": "profile: watch\n",
		"radius range":    "stream:\n  active_radius: 40\n",
		"probability":     "stream:\n  evict_probability: 1.5\n",
		"bad yaml":        "stream: [\n",
		"wrong type":      "stream:\n  cache_cap: lots\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("got %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	cfg := Default()
	cfg.Stream.ActiveRadius = 4
	cfg.Stream.CacheCap = 10
	cfg.Stream.EvictBatch = 200
	cfg.Normalize()
	if cfg.Stream.CacheCap != 81 {
		t.Fatalf("cache cap: got %d, want 81", cfg.Stream.CacheCap)
	}
	if cfg.Stream.EvictBatch != 81 {
		t.Fatalf("evict batch: got %d, want 81", cfg.Stream.EvictBatch)
	}
}
