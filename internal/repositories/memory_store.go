package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/xtrobe/internal/models"
)

// MemoryDocumentStore implements [models.DocumentStore] and [models.BatchWriter] in process memory.
//
// Fields pass through the same JSON encoding as the persistent stores, so numbers read back as float64.
type MemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]memoryDocument
}

type memoryDocument struct {
	data      []byte
	updatedAt time.Time
}

// NewMemoryDocumentStore creates an empty [MemoryDocumentStore]
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: make(map[string]map[string]memoryDocument)}
}

func (s *MemoryDocumentStore) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("get", err)
	}

	s.mu.RLock()
	stored, ok := s.docs[collection][id]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(collection, id)
	}

	return stored.document(collection, id)
}

func (s *MemoryDocumentStore) Set(ctx context.Context, collection, id string, fields map[string]any, opts models.SetOptions) error {
	return s.SetAll(ctx, []models.Write{{Collection: collection, ID: id, Fields: fields, Options: opts}})
}

// SetAll applies every write under one lock; either all writes land or none do.
func (s *MemoryDocumentStore) SetAll(ctx context.Context, writes []models.Write) error {
	if err := ctx.Err(); err != nil {
		return unavailable("set", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	staged := make(map[string]map[string]memoryDocument)
	lookup := func(collection, id string) (memoryDocument, bool) {
		if d, ok := staged[collection][id]; ok {
			return d, true
		}
		d, ok := s.docs[collection][id]
		return d, ok
	}

	for _, w := range writes {
		fields := w.Fields
		if existing, ok := lookup(w.Collection, w.ID); ok && w.Options.Merge {
			current, err := decodeFields(existing.data)
			if err != nil {
				return err
			}
			fields = mergeFields(current, w.Fields)
		}

		data, err := encodeFields(fields)
		if err != nil {
			return err
		}
		if staged[w.Collection] == nil {
			staged[w.Collection] = make(map[string]memoryDocument)
		}
		staged[w.Collection][w.ID] = memoryDocument{data: data, updatedAt: now}
	}

	for collection, docs := range staged {
		if s.docs[collection] == nil {
			s.docs[collection] = make(map[string]memoryDocument)
		}
		for id, d := range docs {
			s.docs[collection][id] = d
		}
	}
	return nil
}

func (s *MemoryDocumentStore) List(ctx context.Context, collection string) ([]*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("list", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.docs[collection]))
	for id := range s.docs[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]*models.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.docs[collection][id].document(collection, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Close is a no-op.
func (s *MemoryDocumentStore) Close() error { return nil }

func (d memoryDocument) document(collection, id string) (*models.Document, error) {
	fields, err := decodeFields(d.data)
	if err != nil {
		return nil, err
	}
	return &models.Document{Collection: collection, ID: id, Fields: fields, UpdatedAt: d.updatedAt}, nil
}
