// Package logging provides a minimal logging interface and adapters.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that every ContextMesh package accepts through its options.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping an existing *slog.Logger
//   - ContextLogger with component and pass scoping plus domain helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	mesh := contextmesh.New(provider, func(o *contextmesh.Options) { o.Logger = logger })
package logging
