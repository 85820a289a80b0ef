// Package tasks runs long progress-report jobs with real-time progress reporting.
//
// # Core Operations
//
// [ReportEngine.ExportReports] writes one report per user:
//
//  1. Loads each user's [progress.Overview], rate limited so the store is not flooded
//  2. Hands overviews to a bounded worker pool that renders and writes files
//  3. Writes a JSON manifest summarizing successes, failures and degraded reads
//
// # Progress Reporting
//
// Updates are sent on an optional channel using select with default, so a slow or
// absent consumer never blocks the export. The [ProgressUpdate] struct carries the
// phase, step counters, a display message and optional data.
package tasks
