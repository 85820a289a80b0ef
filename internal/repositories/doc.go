// Package repositories implements the document stores that back user progress.
//
// Every store satisfies [models.DocumentStore]: schemaless documents addressed by a
// collection path and an id, with replace or top-level merge writes.
//
// Key Implementations:
//   - [SQLDocumentStore] : one documents table on SQLite (mattn or modernc) or Postgres
//   - [RedisDocumentStore] : JSON values plus a per-collection id set, transactional via WATCH
//   - [MemoryDocumentStore] : process-local maps, used by tests and the "memory" backend
//
// The SQL and Redis stores also implement [models.BatchWriter] so a progress transition
// (record plus resume pointer) lands atomically.
//
// [Open] picks the backend from [shared.Config].
package repositories
