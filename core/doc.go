// Package core provides the foundational domain types and collaborator
// contracts used by ContextMesh. It defines:
//
//   - Raw host shapes (RawSession and friends) as delivered by a host application
//   - Snapshots (immutable, normalized point-in-time captures of a session)
//   - ProcessedContext (formatted blocks, entities, timeline, relationships,
//     store data and token estimates derived from one processing pass)
//   - Collaborator contracts for the host (SnapshotProvider) and the external
//     persistent story-state store (StateStore plus optional accessors)
//
// The package keeps implementation concerns (formatting, extraction, scoring,
// routing) out of scope so that every stage can depend on the same small set
// of types without introducing dependency cycles.
package core
