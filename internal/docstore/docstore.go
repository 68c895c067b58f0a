// Package docstore defines the port through which event documents reach a
// remote document collection, plus an in-process implementation.
package docstore

import (
	"context"
	"errors"
	"fmt"

	"datepoll/internal/models"
)

// ErrNoDocument is wrapped by Update when the target document does not exist.
var ErrNoDocument = errors.New("docstore: no document")

// Field paths accepted by Update.
const (
	PathTitle       = "title"
	PathDescription = "description"
	PathDates       = "dates"
	PathVotes       = "votes"
)

// Snapshot is the result of reading one document.
// A missing document has Exists set to false and a zero Data.
type Snapshot struct {
	ID     string
	Exists bool
	Data   models.Document
}

// Update sets one top-level field of a document.
type Update struct {
	Path  string
	Value any
}

// Collection is a remote collection of event documents.
type Collection interface {
	// Add stores a new document and returns the identifier assigned to it.
	Add(ctx context.Context, doc models.Document) (string, error)
	// Get reads a document. A missing document is not an error.
	Get(ctx context.Context, id string) (Snapshot, error)
	// Update changes the given fields of an existing document.
	Update(ctx context.Context, id string, updates []Update) error
}

// Apply performs a partial update on doc. It is used by collections that
// store whole documents rather than individual fields.
func Apply(doc *models.Document, updates []Update) error {
	for _, u := range updates {
		switch u.Path {
		case PathTitle:
			v, ok := u.Value.(string)
			if !ok {
				return fmt.Errorf("docstore: %s must be a string, got %T", u.Path, u.Value)
			}
			doc.Title = v
		case PathDescription:
			v, ok := u.Value.(string)
			if !ok {
				return fmt.Errorf("docstore: %s must be a string, got %T", u.Path, u.Value)
			}
			doc.Description = v
		case PathDates:
			v, ok := u.Value.([]models.StoredDate)
			if !ok {
				return fmt.Errorf("docstore: %s must be []StoredDate, got %T", u.Path, u.Value)
			}
			doc.Dates = v
		case PathVotes:
			v, ok := u.Value.([]models.VoteRecord)
			if !ok {
				return fmt.Errorf("docstore: %s must be []VoteRecord, got %T", u.Path, u.Value)
			}
			doc.Votes = v
		default:
			return fmt.Errorf("docstore: unknown field %q", u.Path)
		}
	}
	return nil
}
