// Package model defines the provider‑agnostic abstractions for handing a
// routed context bundle to a language model.
//
// Core goals:
//   - Unify streaming + non‑streaming generation behind a single interface
//   - Turn a router.Bundle plus consumer profile into a Request (NewRequest)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface in
// sub-packages so the core stays decoupled from vendor SDKs.
package model
