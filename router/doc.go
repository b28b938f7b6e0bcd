// Package router assembles per-consumer context bundles. A consumer declares
// its information needs; the router pulls each need from the processed
// snapshot first, falls back to a live read of the external store, and
// serializes the resulting sections into a length-bounded prompt string.
//
// Needs form a closed enumeration. Adding a Need without registering its
// name and handler fails to compile.
package router
