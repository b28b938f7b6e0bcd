// Package snapshot implements the snapshot acquirer: it pulls raw session data
// from a host SnapshotProvider and normalizes it into an immutable
// core.Snapshot, resolving every missing or wrong-shaped optional field to its
// documented default.
//
// Acquisition only fails when the provider itself fails (host unreachable).
// Malformed fields are absorbed and reported as debug log entries.
package snapshot
