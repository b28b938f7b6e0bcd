// Package session holds raw host sessions. InMemoryStore keeps sessions keyed
// by id and hands out SnapshotProviders bound to one id; FileProvider reads a
// session exported to disk on every pass. Both feed the snapshot acquirer
// through core.SnapshotProvider, so the processing pipeline never depends on
// where a session lives.
package session
