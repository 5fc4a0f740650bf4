package config

import (
	"errors"
	"fmt"
	"sync"
)

var (
	globalConfig *Config
	configMutex  sync.RWMutex
	initOnce     sync.Once

	listeners   []func(*Config) error
	listenersMu sync.Mutex
)

// Initialize loads path with environment overrides into the process-wide
// configuration. Only the first call has any effect.
func Initialize(path string) error {
	var initErr error
	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		SetConfig(cfg)
	})
	return initErr
}

// GetConfig returns the current configuration, or nil if none is set.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetConfig replaces the current configuration without notifying
// listeners.
func SetConfig(cfg *Config) {
	configMutex.Lock()
	globalConfig = cfg
	configMutex.Unlock()
}

// MustGetConfig is GetConfig for code that runs after startup. It panics
// when no configuration is set.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}

// OnReload registers fn to run after each successful ReloadConfig, in
// registration order. It returns a function that removes the listener.
func OnReload(fn func(*Config) error) (remove func()) {
	listenersMu.Lock()
	defer listenersMu.Unlock()

	listeners = append(listeners, fn)
	idx := len(listeners) - 1
	return func() {
		listenersMu.Lock()
		defer listenersMu.Unlock()
		if idx < len(listeners) {
			listeners[idx] = nil
		}
	}
}

// ReloadConfig loads path and, when it is valid, makes it the current
// configuration and notifies listeners. An invalid file leaves the current
// configuration in place. Listener errors are joined into the result but
// do not undo the swap.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	SetConfig(cfg)

	listenersMu.Lock()
	fns := append([]func(*Config) error(nil), listeners...)
	listenersMu.Unlock()

	var errs []error
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		if err := fn(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
