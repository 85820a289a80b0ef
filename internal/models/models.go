// package models defines the data model for the study-progress service
package models

import (
	"context"
	"time"
)

// Module is a top-level curriculum unit. Owned by the catalog and never mutated after load.
type Module struct {
	ID         int         `json:"id" yaml:"id" validate:"gte=0"`
	Title      string      `json:"title" yaml:"title" validate:"required"`
	Submodules []Submodule `json:"submodules" yaml:"submodules" validate:"dive"`
}

// Len returns the number of submodules.
func (m Module) Len() int { return len(m.Submodules) }

// LastIndex returns the index of the final submodule, or -1 for an empty module.
func (m Module) LastIndex() int { return len(m.Submodules) - 1 }

// Submodule is identified by its index within the parent [Module].
type Submodule struct {
	Title   string `json:"title" yaml:"title" validate:"required"`
	Content string `json:"content" yaml:"content"`
}

// ProgressRecord is the number of submodules a user has completed in one module.
//
// Invariant: 0 <= CompletedSubmodules <= len(module.Submodules).
type ProgressRecord struct {
	UserID              string    `json:"userId"`
	ModuleID            int       `json:"moduleId"`
	CompletedSubmodules int       `json:"completedSubmodules"`
	LastUpdated         time.Time `json:"lastUpdated"`
}

// ResumePointer records where a user last was.
//
// Invariant: 0 <= SubmoduleIndex < len(module.Submodules) for the referenced module.
type ResumePointer struct {
	UserID         string    `json:"userId"`
	ModuleID       int       `json:"moduleId"`
	SubmoduleIndex int       `json:"submoduleIndex"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Document is a schemaless record stored under a collection path.
type Document struct {
	Collection string         `json:"collection"`
	ID         string         `json:"id"`
	Fields     map[string]any `json:"fields"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// SetOptions controls how [DocumentStore.Set] combines new fields with an existing document.
type SetOptions struct {
	Merge bool // Merge keeps top-level fields that are not being written
}

// Write is a single document write used by [BatchWriter].
type Write struct {
	Collection string
	ID         string
	Fields     map[string]any
	Options    SetOptions
}

// DocumentStore defines the document database the progress store is built on.
// Implementations return errors wrapping shared.ErrStoreUnavailable on I/O failure
// and shared.ErrDocumentNotFound from Get when no document exists.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (*Document, error)                           // Get retrieves one document
	Set(ctx context.Context, collection, id string, fields map[string]any, opts SetOptions) error // Set creates or replaces (or merges into) a document
	List(ctx context.Context, collection string) ([]*Document, error)                            // List returns every document in a collection
}

// BatchWriter is implemented by stores that can apply several writes atomically.
type BatchWriter interface {
	SetAll(ctx context.Context, writes []Write) error
}
