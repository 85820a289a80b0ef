package progress

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/xtrobe/internal/catalog"
	"github.com/desertthunder/xtrobe/internal/models"
	"github.com/desertthunder/xtrobe/internal/shared"
)

// ResumeTarget is where "continue learning" should land.
type ResumeTarget struct {
	Module         models.Module `json:"module"`
	Slug           string        `json:"slug"`
	SubmoduleIndex int           `json:"submoduleIndex"`
}

// Resolver reads resume pointers back into catalog positions.
type Resolver struct {
	catalog *catalog.Catalog
	store   *Store
	logger  *log.Logger
}

// NewResolver creates a [Resolver]. A nil logger uses [log.Default].
func NewResolver(c *catalog.Catalog, store *Store, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{catalog: c, store: store, logger: logger}
}

// ResolveResumeTarget returns the stored resume position, or nil when there is none.
//
// A pointer to a module that is gone, or to an index the module no longer has, also yields nil.
// Store failures are returned so callers can tell "nothing stored" from "could not read".
func (r *Resolver) ResolveResumeTarget(ctx context.Context, userID string) (*ResumeTarget, error) {
	if userID == "" {
		return nil, shared.ErrNotAuthenticated
	}

	ptr, err := r.store.Pointer(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ptr == nil {
		return nil, nil
	}

	module, ok := r.catalog.ByID(ptr.ModuleID)
	if !ok || ptr.SubmoduleIndex < 0 || ptr.SubmoduleIndex > module.LastIndex() {
		r.logger.Warn("ignoring resume pointer", "user", userID, "module", ptr.ModuleID, "index", ptr.SubmoduleIndex, "err", shared.ErrInconsistentPointer)
		return nil, nil
	}

	slug, _ := r.catalog.Slug(module.ID)
	return &ResumeTarget{Module: module, Slug: slug, SubmoduleIndex: ptr.SubmoduleIndex}, nil
}

// Continue resolves the resume target and falls back to the first module with content at index 0.
//
// On a store failure the fallback target is returned together with the error.
func (r *Resolver) Continue(ctx context.Context, userID string) (ResumeTarget, error) {
	target, err := r.ResolveResumeTarget(ctx, userID)
	if target != nil {
		return *target, nil
	}
	return r.Start(), err
}

// Start is the default target: the first module with content, at index 0.
func (r *Resolver) Start() ResumeTarget {
	module := r.catalog.First()
	for _, m := range r.catalog.Modules() {
		if m.Len() > 0 {
			module = m
			break
		}
	}
	slug, _ := r.catalog.Slug(module.ID)
	return ResumeTarget{Module: module, Slug: slug}
}
