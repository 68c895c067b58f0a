// Package sqlitedb keeps event documents in a local SQLite file, one JSON
// body per row.
package sqlitedb

import (
	"context"
	"database/sql"
	"datepoll/internal/docstore"
	"datepoll/internal/models"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	body TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (collection, id)
);`

// Open opens the database file at path and prepares the schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := InitDB(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitDB enables WAL mode and creates the documents table.
func InitDB(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Collection is a docstore.Collection backed by the documents table.
type Collection struct {
	db   *sql.DB
	name string
}

// NewCollection returns the collection called name within db.
func NewCollection(db *sql.DB, name string) *Collection {
	return &Collection{db: db, name: name}
}

// Add inserts doc under a new random identifier.
func (c *Collection) Add(ctx context.Context, doc models.Document) (string, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	id := uuid.New().String()
	_, err = c.db.ExecContext(ctx,
		"INSERT INTO documents (collection, id, body, updated_at) VALUES (?, ?, ?, ?)",
		c.name, id, string(body), now())
	if err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}
	return id, nil
}

// Get reads one document.
func (c *Collection) Get(ctx context.Context, id string) (docstore.Snapshot, error) {
	doc, err := c.load(ctx, c.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.Snapshot{ID: id}, nil
	}
	if err != nil {
		return docstore.Snapshot{}, err
	}
	return docstore.Snapshot{ID: id, Exists: true, Data: doc}, nil
}

// Update applies updates to an existing document inside one transaction.
func (c *Collection) Update(ctx context.Context, id string, updates []docstore.Update) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	doc, err := c.load(ctx, tx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", docstore.ErrNoDocument, id)
	}
	if err != nil {
		return err
	}
	if err := docstore.Apply(&doc, updates); err != nil {
		return err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE documents SET body = ?, updated_at = ? WHERE collection = ? AND id = ?",
		string(body), now(), c.name, id)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return tx.Commit()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (c *Collection) load(ctx context.Context, q queryer, id string) (models.Document, error) {
	var body string
	err := q.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE collection = ? AND id = ?", c.name, id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Document{}, err
		}
		return models.Document{}, fmt.Errorf("failed to read document: %w", err)
	}

	var doc models.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return models.Document{}, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return doc, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
