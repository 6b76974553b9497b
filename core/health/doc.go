// Package health provides route handlers for service health monitoring.
//
// Handlers:
//   - Liveness: process is running (no dependency checks)
//   - Readiness: all dependencies are available
//   - NoContent: 204 for minimal overhead
//
// Usage:
//
//	app.Get("/health/live", health.Liveness)
//	app.Get("/health/ready", health.Readiness(log, db.PingContext, cache.Ping))
//	app.Get("/ping", health.NoContent)
//
// Dependency checks follow the func(context.Context) error signature and run
// concurrently.
package health
