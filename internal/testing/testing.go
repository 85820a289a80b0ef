// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/xtrobe/internal/models"
	"github.com/desertthunder/xtrobe/internal/shared"
)

// ErrInjected is returned by [FailingDocumentStore] for every injected failure.
var ErrInjected = fmt.Errorf("%w: injected failure", shared.ErrStoreUnavailable)

// Failures selects which [FailingDocumentStore] operations fail.
type Failures struct {
	Gets              bool
	Sets              bool
	Lists             bool
	SetsBeforeFailure int           // When > 0, this many sets succeed and every later set fails
	Delay             time.Duration // Each call waits this long or until its context is done
}

// FailingDocumentStore wraps a [models.DocumentStore] and injects failures.
//
// It does not implement [models.BatchWriter]; see [FailingBatchStore].
type FailingDocumentStore struct {
	inner    models.DocumentStore
	mu       sync.Mutex
	failures Failures
	sets     int
}

// NewFailingDocumentStore wraps inner.
func NewFailingDocumentStore(inner models.DocumentStore, f Failures) *FailingDocumentStore {
	return &FailingDocumentStore{inner: inner, failures: f}
}

// SetFailures replaces the injected failures and resets the set counter.
func (s *FailingDocumentStore) SetFailures(f Failures) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = f
	s.sets = 0
}

// SetCalls returns how many set calls (including batches) were attempted.
func (s *FailingDocumentStore) SetCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

func (s *FailingDocumentStore) wait(ctx context.Context) error {
	s.mu.Lock()
	delay := s.failures.Delay
	s.mu.Unlock()

	if delay <= 0 {
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *FailingDocumentStore) failSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.failures.Sets {
		return true
	}
	return s.failures.SetsBeforeFailure > 0 && s.sets > s.failures.SetsBeforeFailure
}

func (s *FailingDocumentStore) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	fail := s.failures.Gets
	s.mu.Unlock()
	if fail {
		return nil, ErrInjected
	}
	return s.inner.Get(ctx, collection, id)
}

func (s *FailingDocumentStore) Set(ctx context.Context, collection, id string, fields map[string]any, opts models.SetOptions) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if s.failSet() {
		return ErrInjected
	}
	return s.inner.Set(ctx, collection, id, fields, opts)
}

func (s *FailingDocumentStore) List(ctx context.Context, collection string) ([]*models.Document, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	fail := s.failures.Lists
	s.mu.Unlock()
	if fail {
		return nil, ErrInjected
	}
	return s.inner.List(ctx, collection)
}

// FailingBatchStore is a [FailingDocumentStore] that also batches writes. A batch counts as one set.
type FailingBatchStore struct {
	*FailingDocumentStore
	batch models.BatchWriter
}

// NewFailingBatchStore wraps inner, which must implement [models.BatchWriter].
func NewFailingBatchStore(inner interface {
	models.DocumentStore
	models.BatchWriter
}, f Failures) *FailingBatchStore {
	return &FailingBatchStore{FailingDocumentStore: NewFailingDocumentStore(inner, f), batch: inner}
}

func (s *FailingBatchStore) SetAll(ctx context.Context, writes []models.Write) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if s.failSet() {
		return ErrInjected
	}
	return s.batch.SetAll(ctx, writes)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
