// Package format renders raw snapshot fragments (chat history, lore entries,
// the character sheet) into human-readable text blocks. Every function is
// total: malformed input produces an empty-content result, never an error.
package format
