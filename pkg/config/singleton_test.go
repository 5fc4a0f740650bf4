package config

import (
	"errors"
	"strings"
	"testing"
)

func TestSingleton(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	SetConfig(nil)
	if GetConfig() != nil {
		t.Fatal("GetConfig() != nil after SetConfig(nil)")
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("MustGetConfig() did not panic without configuration")
			}
		}()
		MustGetConfig()
	}()

	path := writeConfig(t, "limiter:\n  limit: 3\n")
	if err := ReloadConfig(path); err != nil {
		t.Fatalf("ReloadConfig() error = %v", err)
	}
	if got := MustGetConfig().Limiter.Limit; got != 3 {
		t.Errorf("Limiter.Limit = %d, want 3", got)
	}

	bad := writeConfig(t, "limiter:\n  limit: -3\n")
	if err := ReloadConfig(bad); err == nil {
		t.Fatal("ReloadConfig(invalid) error = nil")
	}
	if got := GetConfig().Limiter.Limit; got != 3 {
		t.Errorf("Limiter.Limit = %d after failed reload, want 3", got)
	}
}

func TestOnReload(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	var seen []int64
	remove := OnReload(func(cfg *Config) error {
		seen = append(seen, cfg.Limiter.Limit)
		return nil
	})
	failing := OnReload(func(*Config) error { return errors.New("listener failed") })

	path := writeConfig(t, "limiter:\n  limit: 4\n")
	err := ReloadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "listener failed") {
		t.Fatalf("ReloadConfig() error = %v, want listener error", err)
	}
	if got := GetConfig().Limiter.Limit; got != 4 {
		t.Errorf("Limiter.Limit = %d, want 4 despite listener error", got)
	}

	failing()
	bad := writeConfig(t, "limiter:\n  limit: -1\n")
	if err := ReloadConfig(bad); err == nil {
		t.Fatal("ReloadConfig(invalid) error = nil")
	}

	remove()
	if err := ReloadConfig(path); err != nil {
		t.Fatalf("ReloadConfig() error = %v", err)
	}

	if len(seen) != 1 || seen[0] != 4 {
		t.Errorf("listener saw %v, want [4]", seen)
	}
}
