// Package models defines domain entities and persistence interfaces for the xtrobe study-progress service.
//
// The package contains two categories of types:
//
// 1. Curriculum entities: immutable catalog data loaded once at startup
//   - [Module] : A top-level curriculum unit with an ordered list of submodules
//   - [Submodule] : An atomic content unit identified only by its position in the module
//
// 2. Progress entities: per-user state persisted in a document store
//   - [ProgressRecord] : Completed submodule count for one user/module pair
//   - [ResumePointer] : The singleton "last viewed" position for a user
//   - [Document] : A schemaless record addressed by collection path and id
//
// The [DocumentStore] interface is the only persistence contract the progress tracker depends on.
// Backends that can write several documents atomically also implement [BatchWriter].
package models
