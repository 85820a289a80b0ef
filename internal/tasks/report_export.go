package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/xtrobe/internal/formatter"
	"github.com/desertthunder/xtrobe/internal/progress"
	"github.com/desertthunder/xtrobe/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers = 4
	maxWorkers     = 10
	defaultRate    = 10.0

	// ManifestName is the manifest file written into the output directory.
	ManifestName = "report_manifest.json"
)

// ExportOpts configures [ReportEngine.ExportReports].
type ExportOpts struct {
	Format     string  // json, csv, markdown or txt
	OutputDir  string  // Base output directory (default: progress_reports_{epoch})
	NumWorkers int     // Concurrent file writers (default: 4, max: 10)
	RateLimit  float64 // Overview loads per second (default: 10)
}

// UserExportResult is the outcome for one user.
type UserExportResult struct {
	UserID   string
	Files    []string
	Success  bool
	Degraded bool // Report written but some progress could not be read
	Error    error
}

// ExportResult summarizes a bulk export.
type ExportResult struct {
	RunID             string
	TotalUsers        int
	SuccessfulExports int
	FailedExports     int
	DegradedExports   int
	OutputDirectory   string
	ManifestPath      string
	Results           []UserExportResult
}

type reportJob struct {
	userID   string
	overview *progress.Overview
}

// ExportReports writes one report per user using a worker pool.
//
// Overview loads are rate limited and run on a single producer goroutine; rendering and
// file writes happen on the workers. Per-user failures are recorded in the result and
// the manifest rather than aborting the run. Duplicate and blank user ids are dropped.
func (e *ReportEngine) ExportReports(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	users []string,
	opts ExportOpts,
) (*ExportResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: overview source not initialized", shared.ErrStoreUnavailable)
	}

	format, err := formatter.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	opts.Format = format

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("progress_reports_%d", time.Now().Unix())
	}
	opts.NumWorkers = min(max(opts.NumWorkers, 0), maxWorkers)
	if opts.NumWorkers == 0 {
		opts.NumWorkers = defaultWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRate
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	users = uniqueUsers(users)
	total := len(users)
	result := &ExportResult{
		RunID:           shared.GenerateID(),
		TotalUsers:      total,
		OutputDirectory: opts.OutputDir,
		Results:         make([]UserExportResult, 0, total),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan reportJob, total)
	results := make(chan UserExportResult, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.reportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, userID := range users {
			if ctx.Err() != nil {
				return
			}
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			e.sendProgress(prog, loadingUpdate(i+1, total, userID))
			overview, err := e.source.Overview(ctx, userID)
			if err != nil {
				results <- UserExportResult{
					UserID: userID,
					Error:  fmt.Errorf("failed to load progress: %w", err),
				}
				continue
			}
			jobs <- reportJob{userID: userID, overview: overview}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			if res.Degraded {
				result.DegradedExports++
			}
			e.sendProgress(prog, reportWrittenUpdate(completed, total, res))
		} else {
			result.FailedExports++
			e.logger.Warn("report export failed", "user", res.UserID, "err", res.Error)
			e.sendProgress(prog, reportFailedUpdate(completed, total, res))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, ManifestName)
	e.sendProgress(prog, manifestUpdate(manifestPath))
	manifest := formatter.Manifest{
		RunID:           result.RunID,
		Format:          opts.Format,
		OutputDirectory: opts.OutputDir,
		Entries:         manifestEntries(result.Results),
	}
	if err := formatter.WriteReportManifest(manifest, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("export interrupted after %d of %d users: %w", completed, total, err)
	}
	return result, nil
}

// reportWorker renders and writes reports from the jobs channel.
func (e *ReportEngine) reportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan reportJob,
	results chan<- UserExportResult,
	opts ExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			results <- UserExportResult{UserID: job.userID, Error: ctx.Err()}
			continue
		}
		results <- e.writeSingleReport(job, opts)
	}
}

func (e *ReportEngine) writeSingleReport(j reportJob, opts ExportOpts) UserExportResult {
	res := UserExportResult{UserID: j.userID, Degraded: j.overview.Degraded}

	files, err := formatter.WriteReport(j.overview, opts.Format, opts.OutputDir)
	if err != nil {
		res.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		return res
	}
	res.Files = files
	res.Success = true
	return res
}

func manifestEntries(results []UserExportResult) []formatter.ManifestEntry {
	entries := make([]formatter.ManifestEntry, len(results))
	for i, r := range results {
		entries[i] = formatter.ManifestEntry{
			UserID:   r.UserID,
			Files:    r.Files,
			Success:  r.Success,
			Degraded: r.Degraded,
			Error:    r.Error,
		}
	}
	return entries
}

func uniqueUsers(users []string) []string {
	seen := make(map[string]struct{}, len(users))
	out := make([]string, 0, len(users))
	for _, u := range users {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
