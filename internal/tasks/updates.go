package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	LoadOverview Phase = iota
	WriteReport
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case LoadOverview:
		return "load_overview"
	case WriteReport:
		return "write_report"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

func loadingUpdate(step, total int, userID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadOverview,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Loading progress for %s...", step, total, userID),
	}
}

func reportWrittenUpdate(step, total int, res UserExportResult) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, res.UserID, len(res.Files))
	if res.Degraded {
		msg += " (incomplete: store unavailable)"
	}
	return ProgressUpdate{
		Phase:   WriteReport,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    res,
	}
}

func reportFailedUpdate(step, total int, res UserExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteReport,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.UserID, res.Error),
		Data:    res,
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing manifest to %s", path),
	}
}
