package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/xtrobe/internal/models"
	"github.com/desertthunder/xtrobe/internal/shared"
)

// SQLDocumentStore implements [models.DocumentStore] and [models.BatchWriter] on the documents table.
type SQLDocumentStore struct {
	db      *sql.DB
	dialect shared.Dialect
}

// NewSQLDocumentStore creates a new [SQLDocumentStore]. Migrations must already be applied.
func NewSQLDocumentStore(db *sql.DB, dialect shared.Dialect) *SQLDocumentStore {
	return &SQLDocumentStore{db: db, dialect: dialect}
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Get retrieves a document by collection and id
func (s *SQLDocumentStore) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	doc, err := s.get(ctx, s.db, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(collection, id)
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	return doc, nil
}

func (s *SQLDocumentStore) get(ctx context.Context, q rowQuerier, collection, id string) (*models.Document, error) {
	query := s.dialect.Rebind(`
		SELECT fields, updated_at FROM documents WHERE collection = ? AND id = ?
	`)

	var (
		raw       string
		updatedAt time.Time
	)
	if err := q.QueryRowContext(ctx, query, collection, id).Scan(&raw, &updatedAt); err != nil {
		return nil, err
	}

	fields, err := decodeFields([]byte(raw))
	if err != nil {
		return nil, err
	}
	return &models.Document{Collection: collection, ID: id, Fields: fields, UpdatedAt: updatedAt}, nil
}

// Set writes one document inside a transaction
func (s *SQLDocumentStore) Set(ctx context.Context, collection, id string, fields map[string]any, opts models.SetOptions) error {
	return s.SetAll(ctx, []models.Write{{Collection: collection, ID: id, Fields: fields, Options: opts}})
}

// SetAll applies every write in a single transaction.
//
// Merge writes read the current row inside the same transaction before upserting.
func (s *SQLDocumentStore) SetAll(ctx context.Context, writes []models.Write) error {
	if len(writes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin transaction", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, w := range writes {
		if err := s.upsert(ctx, tx, w, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	return nil
}

func (s *SQLDocumentStore) upsert(ctx context.Context, tx rowQuerier, w models.Write, now time.Time) error {
	fields := w.Fields
	if w.Options.Merge {
		existing, err := s.get(ctx, tx, w.Collection, w.ID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return unavailable("read for merge", err)
		default:
			fields = mergeFields(existing.Fields, w.Fields)
		}
	}

	data, err := encodeFields(fields)
	if err != nil {
		return err
	}

	query := s.dialect.Rebind(`
		INSERT INTO documents (collection, id, fields, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET fields = excluded.fields, updated_at = excluded.updated_at
	`)
	if _, err := tx.ExecContext(ctx, query, w.Collection, w.ID, string(data), now, now); err != nil {
		return unavailable(fmt.Sprintf("write %s/%s", w.Collection, w.ID), err)
	}
	return nil
}

// List returns every document in a collection ordered by id
func (s *SQLDocumentStore) List(ctx context.Context, collection string) ([]*models.Document, error) {
	query := s.dialect.Rebind(`
		SELECT id, fields, updated_at FROM documents WHERE collection = ? ORDER BY id
	`)

	rows, err := s.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, unavailable("list", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var (
			id        string
			raw       string
			updatedAt time.Time
		)
		if err := rows.Scan(&id, &raw, &updatedAt); err != nil {
			return nil, unavailable("scan", err)
		}

		fields, err := decodeFields([]byte(raw))
		if err != nil {
			return nil, err
		}
		docs = append(docs, &models.Document{Collection: collection, ID: id, Fields: fields, UpdatedAt: updatedAt})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list", err)
	}

	return docs, nil
}

// Close closes the underlying database.
func (s *SQLDocumentStore) Close() error {
	return s.db.Close()
}
