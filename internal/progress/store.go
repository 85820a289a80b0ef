package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/desertthunder/xtrobe/internal/models"
	"github.com/desertthunder/xtrobe/internal/shared"
)

// DefaultTimeout bounds each store call when none is configured.
const DefaultTimeout = 3 * time.Second

const (
	progressRoot  = "userProgress"
	stateDocument = "state"

	fieldCompleted      = "completedSubmodules"
	fieldLastUpdated    = "lastUpdated"
	fieldLastViewed     = "lastViewed"
	fieldModuleID       = "moduleId"
	fieldSubmoduleIndex = "submoduleIndex"
)

func modulesCollection(userID string) string {
	return progressRoot + "/" + userID + "/modules"
}

func metadataCollection(userID string) string {
	return progressRoot + "/" + userID + "/metadata"
}

// Store maps progress records and resume pointers onto documents.
//
// Every call runs under its own timeout; an expired timeout surfaces as [shared.ErrStoreTimeout].
type Store struct {
	docs    models.DocumentStore
	timeout time.Duration
	now     func() time.Time
}

// NewStore creates a [Store]. A non-positive timeout uses [DefaultTimeout].
func NewStore(docs models.DocumentStore, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{docs: docs, timeout: timeout, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) fail(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s", shared.ErrStoreTimeout, op)
	case errors.Is(err, shared.ErrStoreUnavailable), errors.Is(err, shared.ErrInvalidInput):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%w: %s: %w", shared.ErrStoreUnavailable, op, err)
	}
}

// Record returns the user's record for a module. A missing document is a zero record, not an error.
func (s *Store) Record(ctx context.Context, userID string, moduleID int) (models.ProgressRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rec := models.ProgressRecord{UserID: userID, ModuleID: moduleID}
	doc, err := s.docs.Get(ctx, modulesCollection(userID), strconv.Itoa(moduleID))
	if errors.Is(err, shared.ErrDocumentNotFound) {
		return rec, nil
	}
	if err != nil {
		return rec, s.fail("read progress record", err)
	}

	decodeRecord(&rec, doc.Fields)
	return rec, nil
}

// Records returns every stored record of a user keyed by module id.
//
// Documents whose id is not a module id are ignored.
func (s *Store) Records(ctx context.Context, userID string) (map[int]models.ProgressRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	docs, err := s.docs.List(ctx, modulesCollection(userID))
	if err != nil {
		return nil, s.fail("list progress records", err)
	}

	records := make(map[int]models.ProgressRecord, len(docs))
	for _, doc := range docs {
		moduleID, err := strconv.Atoi(doc.ID)
		if err != nil {
			continue
		}
		rec := models.ProgressRecord{UserID: userID, ModuleID: moduleID}
		decodeRecord(&rec, doc.Fields)
		records[moduleID] = rec
	}
	return records, nil
}

// Pointer returns the user's resume pointer, or nil when none is stored or it cannot be decoded.
func (s *Store) Pointer(ctx context.Context, userID string) (*models.ResumePointer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc, err := s.docs.Get(ctx, metadataCollection(userID), stateDocument)
	if errors.Is(err, shared.ErrDocumentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail("read resume pointer", err)
	}

	lastViewed, ok := doc.Fields[fieldLastViewed].(map[string]any)
	if !ok {
		return nil, nil
	}
	moduleID, ok := toInt(lastViewed[fieldModuleID])
	if !ok {
		return nil, nil
	}
	index, ok := toInt(lastViewed[fieldSubmoduleIndex])
	if !ok {
		return nil, nil
	}

	ptr := &models.ResumePointer{UserID: userID, ModuleID: moduleID, SubmoduleIndex: index}
	ptr.UpdatedAt, _ = toTime(doc.Fields[fieldLastUpdated])
	return ptr, nil
}

// SaveRecord merges the completion count into the user's module document.
func (s *Store) SaveRecord(ctx context.Context, rec models.ProgressRecord) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	w := s.recordWrite(rec)
	if err := s.docs.Set(ctx, w.Collection, w.ID, w.Fields, w.Options); err != nil {
		return s.fail("write progress record", err)
	}
	return nil
}

// SavePointer merges the resume pointer into the user's state document.
func (s *Store) SavePointer(ctx context.Context, ptr models.ResumePointer) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	w := s.pointerWrite(ptr)
	if err := s.docs.Set(ctx, w.Collection, w.ID, w.Fields, w.Options); err != nil {
		return s.fail("write resume pointer", err)
	}
	return nil
}

// SaveTransition persists a record and a pointer together.
//
// Backends implementing [models.BatchWriter] apply both atomically. Otherwise the record is
// written first and the pointer second; if the second write fails the record stays written and
// the pointer keeps its previous value.
func (s *Store) SaveTransition(ctx context.Context, rec models.ProgressRecord, ptr models.ResumePointer) error {
	batch, ok := s.docs.(models.BatchWriter)
	if !ok {
		if err := s.SaveRecord(ctx, rec); err != nil {
			return err
		}
		return s.SavePointer(ctx, ptr)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := batch.SetAll(ctx, []models.Write{s.recordWrite(rec), s.pointerWrite(ptr)}); err != nil {
		return s.fail("write progress transition", err)
	}
	return nil
}

func (s *Store) recordWrite(rec models.ProgressRecord) models.Write {
	return models.Write{
		Collection: modulesCollection(rec.UserID),
		ID:         strconv.Itoa(rec.ModuleID),
		Fields: map[string]any{
			fieldCompleted:   rec.CompletedSubmodules,
			fieldLastUpdated: s.now().Format(time.RFC3339Nano),
		},
		Options: models.SetOptions{Merge: true},
	}
}

func (s *Store) pointerWrite(ptr models.ResumePointer) models.Write {
	return models.Write{
		Collection: metadataCollection(ptr.UserID),
		ID:         stateDocument,
		Fields: map[string]any{
			fieldLastViewed: map[string]any{
				fieldModuleID:       ptr.ModuleID,
				fieldSubmoduleIndex: ptr.SubmoduleIndex,
			},
			fieldLastUpdated: s.now().Format(time.RFC3339Nano),
		},
		Options: models.SetOptions{Merge: true},
	}
}

func decodeRecord(rec *models.ProgressRecord, fields map[string]any) {
	if n, ok := toInt(fields[fieldCompleted]); ok && n > 0 {
		rec.CompletedSubmodules = n
	}
	rec.LastUpdated, _ = toTime(fields[fieldLastUpdated])
}

// toInt accepts the integer shapes a document round trip can produce.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	default:
		return time.Time{}, false
	}
}
