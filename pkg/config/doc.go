// Package config provides a type-safe, generic and cached way to load
// application configuration from environment variables.
//
// It wraps `github.com/joho/godotenv` and `github.com/caarlos0/env/v11`:
//
//   - LoadEnv reads one or more `.env` files into the process environment,
//     later files overriding earlier ones.
//   - Load parses the environment into any struct using `env` tags and caches
//     the result per type and prefix.
//   - WithPrefix lets the same struct be loaded for several components, e.g.
//     `MQUEUE_DB_HOST` and `AUDIT_DB_HOST` from one `sqldb.Config`.
//   - MustLoad and MustLoadEnv panic on failure for configuration the process
//     cannot start without.
//
// # Usage
//
//	import "github.com/dmitrymomot/dbqueue/pkg/config"
//
//	func main() {
//	    if err := config.LoadEnv("./config/.env"); err != nil {
//	        log.Fatalf("loading env: %v", err)
//	    }
//
//	    var cfg mqueue.Config
//	    if err := config.Load(&cfg, config.WithPrefix("MQUEUE_")); err != nil {
//	        log.Fatalf("parsing env: %v", err)
//	    }
//	}
//
// A failed parse is not cached; the next Load parses the environment again.
//
// # Error Handling
//
//   - ErrParsingConfig   – failed to parse env vars into struct.
//   - ErrConfigNotLoaded – the parsed value is missing from the cache.
//   - ErrNilPointer      – nil pointer passed to Load/MustLoad.
//   - ErrLoadingEnvFile  – an env file passed to LoadEnv could not be read.
//
// # Testing Helpers
//
// ResetCache clears the cache so the next Load sees environment changes.
package config
