// Package config provides configuration management for windowlimit.
//
// Configuration is loaded from a YAML file, completed with defaults,
// optionally overridden from the environment, and validated before use.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("config.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention WINDOWLIMIT_SECTION_FIELD:
//
//   - WINDOWLIMIT_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - WINDOWLIMIT_COORDINATOR_NODES overrides coordinator.nodes (comma separated)
//   - WINDOWLIMIT_NODE_REDIS_ADDRESS overrides node.redis.address
//   - WINDOWLIMIT_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// A Watcher observes the configuration file and calls back after each
// change settles. Reload failures leave the previous configuration in place:
//
//	w, err := config.NewWatcher(config.WatcherConfig{Path: path})
//	go w.Watch(ctx, func() error { return config.ReloadConfig(path) })
//
// # Singleton Pattern
//
//	if err := config.Initialize("config.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// For testing, prefer passing explicit Config values.
package config
