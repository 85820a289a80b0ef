package progress

import (
	"context"
	"math"

	"github.com/desertthunder/xtrobe/internal/shared"
)

const (
	// MasteryPercent is the module percentage counted as mastered.
	MasteryPercent = 90
	// MilestoneStep is the number of completed submodules between milestones.
	MilestoneStep = 5
)

// ModuleProgress is one row of an [Overview].
type ModuleProgress struct {
	ModuleID  int    `json:"moduleId"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Completed int    `json:"completedSubmodules"`
	Total     int    `json:"totalSubmodules"`
	Percent   int    `json:"percent"`
	Done      bool   `json:"done"`
}

// Overview summarizes a user's progress across the whole catalog.
type Overview struct {
	UserID              string           `json:"userId"`
	Modules             []ModuleProgress `json:"modules"`
	AveragePercent      int              `json:"averagePercent"`
	Mastered            int              `json:"mastered"`
	CompletedSubmodules int              `json:"completedSubmodules"`
	TotalSubmodules     int              `json:"totalSubmodules"`
	Milestones          []int            `json:"milestones"`
	Resume              *ResumeTarget    `json:"resume,omitempty"`
	Degraded            bool             `json:"degraded"` // Some stored state could not be read
}

// Overview reads every record and the resume pointer for userID.
//
// Read failures do not fail the call: missing data shows as no progress and Degraded is set.
func (t *Tracker) Overview(ctx context.Context, userID string) (*Overview, error) {
	if userID == "" {
		return nil, shared.ErrNotAuthenticated
	}

	o := &Overview{UserID: userID, Milestones: []int{}}

	records, err := t.store.Records(ctx, userID)
	if err != nil {
		t.logger.Warn("progress unavailable for overview", "user", userID, "err", err)
		o.Degraded = true
	}

	sum := 0
	for _, e := range t.catalog.Entries() {
		total := e.Len()
		completed := min(max(records[e.ID].CompletedSubmodules, 0), total)
		row := ModuleProgress{
			ModuleID:  e.ID,
			Title:     e.Title,
			Slug:      e.Slug,
			Completed: completed,
			Total:     total,
			Percent:   Percent(completed, total),
			Done:      total > 0 && completed == total,
		}

		o.Modules = append(o.Modules, row)
		o.CompletedSubmodules += completed
		o.TotalSubmodules += total
		sum += row.Percent
		if row.Percent >= MasteryPercent {
			o.Mastered++
		}
	}

	if len(o.Modules) > 0 {
		o.AveragePercent = int(math.Round(float64(sum) / float64(len(o.Modules))))
	}
	for m := MilestoneStep; m <= o.CompletedSubmodules; m += MilestoneStep {
		o.Milestones = append(o.Milestones, m)
	}

	resume, err := NewResolver(t.catalog, t.store, t.logger).ResolveResumeTarget(ctx, userID)
	if err != nil {
		t.logger.Warn("resume pointer unavailable for overview", "user", userID, "err", err)
		o.Degraded = true
	}
	o.Resume = resume

	return o, nil
}
