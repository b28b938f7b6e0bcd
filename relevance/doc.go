// Package relevance scores text against a query with a deterministic lexical
// heuristic and ranks excerpts drawn from a processed snapshot.
//
// Score components (case-folded):
//
//   - exact: the whole query is a substring of the text
//   - keyword: per query word longer than two characters found in the text
//   - proximity: flat bonus when two or more found words sit, on average,
//     less than ProximityWindow characters apart
//
// The partial weight is accepted for configuration compatibility and is
// currently not applied.
package relevance
