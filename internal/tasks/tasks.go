package tasks

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/xtrobe/internal/progress"
)

// OverviewSource loads a user's progress overview. Implemented by [progress.Tracker].
type OverviewSource interface {
	Overview(ctx context.Context, userID string) (*progress.Overview, error)
}

// ReportEngine exports progress reports for many users.
type ReportEngine struct {
	source OverviewSource
	logger *log.Logger
}

// NewReportEngine creates a ReportEngine reading overviews from source.
func NewReportEngine(source OverviewSource, logger *log.Logger) *ReportEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &ReportEngine{source: source, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *ReportEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
