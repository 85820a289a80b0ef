// Package progress tracks how far each user has read through the catalog.
//
// State lives in a [models.DocumentStore] under two paths per user:
//
//	userProgress/{userId}/modules/{moduleId}  {completedSubmodules, lastUpdated}
//	userProgress/{userId}/metadata/state      {lastViewed: {moduleId, submoduleIndex}, lastUpdated}
//
// The [Tracker] turns navigation events (entering a module, Next, jumping to a module) into
// store writes and decides where the reader goes next. The [Resolver] answers "continue
// learning" from the resume pointer, and [Percent] converts completion counts for display.
//
// Reads that fail degrade to "no progress known" for display and mark the session Degraded.
// Writes that fail are always returned to the caller. Concurrent sessions of one user are
// last-write-wins, except that a tracker never lowers a stored completion count.
package progress
