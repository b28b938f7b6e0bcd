// Package memory contains an in-process story-state store. It implements
// core.StateStore together with every optional accessor (current scene, plot
// lines, scene history, presence, dialogue, factions, locations, summary), so
// the processing pass and the context router can read it without knowing its
// concrete type.
//
// All accessors return plain data ([]any, map[string]any, string) so values
// can be rendered into prompts and flattened for relevance scoring.
package memory
