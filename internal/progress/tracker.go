package progress

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/xtrobe/internal/catalog"
	"github.com/desertthunder/xtrobe/internal/models"
	"github.com/desertthunder/xtrobe/internal/shared"
)

// OutcomeKind is the result of [Tracker.Advance].
type OutcomeKind int

const (
	OutcomeAdvanced   OutcomeKind = iota // moved to the next submodule of the same module
	OutcomeNextModule                    // finished the module; the session now points at the next one
	OutcomeTerminal                      // last submodule of the last module; nothing changed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAdvanced:
		return "advanced"
	case OutcomeNextModule:
		return "next_module"
	case OutcomeTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome tells the caller where to navigate after an advance.
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	NextSlug string      `json:"nextSlug,omitempty"` // Set for [OutcomeNextModule]
}

// Session is one user's position inside one module.
//
// Completed may be larger than SubmoduleIndex when the user re-reads a module.
type Session struct {
	UserID         string        `json:"userId"`
	Module         models.Module `json:"module"`
	Slug           string        `json:"slug"`
	SubmoduleIndex int           `json:"submoduleIndex"`
	Completed      int           `json:"completedSubmodules"`
	Degraded       bool          `json:"degraded"` // Completed could not be read and is shown as 0
}

// Submodule returns the submodule being viewed.
func (s *Session) Submodule() models.Submodule {
	return s.Module.Submodules[s.SubmoduleIndex]
}

// Percent returns the completion percentage of the session's module.
func (s *Session) Percent() int {
	return Percent(s.Completed, s.Module.Len())
}

// Tracker applies navigation events to stored progress.
type Tracker struct {
	catalog *catalog.Catalog
	store   *Store
	logger  *log.Logger
}

// NewTracker creates a [Tracker]. A nil logger uses [log.Default].
func NewTracker(c *catalog.Catalog, store *Store, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.Default()
	}
	return &Tracker{catalog: c, store: store, logger: logger}
}

// Catalog returns the catalog the tracker navigates.
func (t *Tracker) Catalog() *catalog.Catalog { return t.catalog }

// Enter opens a module by slug at min(completed, last index) and records the resume pointer.
//
// When the stored record cannot be read the session starts at 0, is marked Degraded, and
// no pointer is written. When the pointer write fails the session is still returned with the error.
func (t *Tracker) Enter(ctx context.Context, userID, slug string) (*Session, error) {
	if userID == "" {
		return nil, shared.ErrNotAuthenticated
	}

	module, err := t.enterable(slug)
	if err != nil {
		return nil, err
	}

	s := t.open(ctx, userID, module)
	s.SubmoduleIndex = min(s.Completed, module.LastIndex())

	if s.Degraded {
		return s, nil
	}

	ptr := models.ResumePointer{UserID: userID, ModuleID: module.ID, SubmoduleIndex: s.SubmoduleIndex}
	if err := t.store.SavePointer(ctx, ptr); err != nil {
		t.logger.Error("failed to save resume pointer", "user", userID, "module", module.ID, "err", err)
		return s, err
	}

	t.logger.Debug("entered module", "user", userID, "module", module.ID, "index", s.SubmoduleIndex)
	return s, nil
}

// SessionAt rebuilds a session at an explicit index without writing anything.
func (t *Tracker) SessionAt(ctx context.Context, userID, slug string, index int) (*Session, error) {
	if userID == "" {
		return nil, shared.ErrNotAuthenticated
	}

	module, err := t.enterable(slug)
	if err != nil {
		return nil, err
	}
	if index < 0 || index > module.LastIndex() {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", shared.ErrInvalidSubmodule, index, module.LastIndex())
	}

	s := t.open(ctx, userID, module)
	s.SubmoduleIndex = index
	return s, nil
}

// Advance marks the current submodule complete and moves the session forward.
//
// Completion goes up by one over the larger of the stored and session counts, capped at the
// module length, so a stale session never lowers the stored count. Both the record and the
// pointer are written before s changes; on error s is left as it was. In the terminal state
// Advance writes nothing and returns [OutcomeTerminal].
func (t *Tracker) Advance(ctx context.Context, s *Session) (Outcome, error) {
	if s == nil || s.UserID == "" {
		return Outcome{}, shared.ErrNotAuthenticated
	}
	if s.Module.Len() == 0 {
		return Outcome{}, fmt.Errorf("%w: %q", shared.ErrEmptyModule, s.Module.Title)
	}
	if s.SubmoduleIndex < 0 || s.SubmoduleIndex > s.Module.LastIndex() {
		return Outcome{}, fmt.Errorf("%w: %d not in [0, %d]", shared.ErrInvalidSubmodule, s.SubmoduleIndex, s.Module.LastIndex())
	}

	atLast := s.SubmoduleIndex == s.Module.LastIndex()
	next, hasNext := t.catalog.Next(s.Module.ID)
	if atLast && !hasNext {
		return Outcome{Kind: OutcomeTerminal}, nil
	}

	stored, err := t.store.Record(ctx, s.UserID, s.Module.ID)
	if err != nil {
		t.logger.Error("failed to read progress before advance", "user", s.UserID, "module", s.Module.ID, "err", err)
		return Outcome{}, err
	}

	completed := min(s.Module.Len(), max(stored.CompletedSubmodules, s.Completed)+1)
	rec := models.ProgressRecord{UserID: s.UserID, ModuleID: s.Module.ID, CompletedSubmodules: completed}

	if !atLast {
		ptr := models.ResumePointer{UserID: s.UserID, ModuleID: s.Module.ID, SubmoduleIndex: s.SubmoduleIndex + 1}
		if err := t.store.SaveTransition(ctx, rec, ptr); err != nil {
			t.logger.Error("failed to save progress", "user", s.UserID, "module", s.Module.ID, "err", err)
			return Outcome{}, err
		}

		s.SubmoduleIndex++
		s.Completed = completed
		s.Degraded = false
		t.logger.Debug("advanced", "user", s.UserID, "module", s.Module.ID, "index", s.SubmoduleIndex, "completed", completed)
		return Outcome{Kind: OutcomeAdvanced}, nil
	}

	ptr := models.ResumePointer{UserID: s.UserID, ModuleID: next.ID, SubmoduleIndex: 0}
	if err := t.store.SaveTransition(ctx, rec, ptr); err != nil {
		t.logger.Error("failed to save module completion", "user", s.UserID, "module", s.Module.ID, "err", err)
		return Outcome{}, err
	}

	t.logger.Debug("completed module", "user", s.UserID, "module", s.Module.ID, "next", next.ID)
	*s = *t.open(ctx, s.UserID, next)
	return Outcome{Kind: OutcomeNextModule, NextSlug: s.Slug}, nil
}

// JumpToModule starts a module at submodule 0 and records the pointer. Its completion count is untouched.
func (t *Tracker) JumpToModule(ctx context.Context, userID string, moduleID int) (*Session, error) {
	if userID == "" {
		return nil, shared.ErrNotAuthenticated
	}

	module, ok := t.catalog.ByID(moduleID)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", shared.ErrModuleNotFound, moduleID)
	}
	if module.Len() == 0 {
		return nil, fmt.Errorf("%w: %q", shared.ErrEmptyModule, module.Title)
	}

	s := t.open(ctx, userID, module)
	s.SubmoduleIndex = 0

	ptr := models.ResumePointer{UserID: userID, ModuleID: module.ID, SubmoduleIndex: 0}
	if err := t.store.SavePointer(ctx, ptr); err != nil {
		t.logger.Error("failed to save resume pointer", "user", userID, "module", module.ID, "err", err)
		return s, err
	}

	t.logger.Debug("jumped to module", "user", userID, "module", module.ID)
	return s, nil
}

// JumpToSlug is [Tracker.JumpToModule] addressed by slug.
func (t *Tracker) JumpToSlug(ctx context.Context, userID, slug string) (*Session, error) {
	module, err := t.catalog.Resolve(slug)
	if err != nil {
		return nil, err
	}
	return t.JumpToModule(ctx, userID, module.ID)
}

func (t *Tracker) enterable(slug string) (models.Module, error) {
	module, err := t.catalog.Resolve(slug)
	if err != nil {
		return models.Module{}, err
	}
	if module.Len() == 0 {
		return models.Module{}, fmt.Errorf("%w: %q", shared.ErrEmptyModule, module.Title)
	}
	return module, nil
}

// open builds a session at index 0 with the stored completion count, degrading on read failure.
func (t *Tracker) open(ctx context.Context, userID string, module models.Module) *Session {
	slug, _ := t.catalog.Slug(module.ID)
	s := &Session{UserID: userID, Module: module, Slug: slug}

	rec, err := t.store.Record(ctx, userID, module.ID)
	if err != nil {
		t.logger.Warn("progress unavailable, showing none", "user", userID, "module", module.ID, "err", err)
		s.Degraded = true
		return s
	}

	s.Completed = min(max(rec.CompletedSubmodules, 0), module.Len())
	return s
}
