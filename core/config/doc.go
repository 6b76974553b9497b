// Package config loads environment variables into typed structs with
// caarlos0/env, reading an optional .env file once through joho/godotenv.
//
// Load caches the parsed value per struct type, so components that ask for the
// same configuration share one parse:
//
//	var cfg enginekit.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// MustLoad panics instead of returning the error and suits program startup.
// Parse bypasses the cache, which tests that set variables with t.Setenv need.
//
// Nested structs are parsed in place, so an aggregate like enginekit.Config picks
// up SESSION_*, HTTP_* and WS_* variables from its members.
package config
