// Package google keeps event documents in Cloud Firestore.
package google

import (
	"context"
	"datepoll/internal/docstore"
	"datepoll/internal/models"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreCollection is a docstore.Collection backed by a Firestore
// collection.
type FirestoreCollection struct {
	client *firestore.Client
	coll   *firestore.CollectionRef
	logger *slog.Logger
}

// NewFirestoreCollection connects to projectID and returns the collection
// called name.
func NewFirestoreCollection(ctx context.Context, logger *slog.Logger, projectID, name string, opts ...option.ClientOption) (*FirestoreCollection, error) {
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	logger.Debug("Connected to Firestore", "project", projectID, "collection", name)
	return &FirestoreCollection{
		client: client,
		coll:   client.Collection(name),
		logger: logger,
	}, nil
}

// Add creates a document with a Firestore-generated identifier.
func (c *FirestoreCollection) Add(ctx context.Context, doc models.Document) (string, error) {
	ref, _, err := c.coll.Add(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to add document: %w", err)
	}
	return ref.ID, nil
}

// Get reads one document. Firestore reports a missing document as a
// NotFound status, which becomes a snapshot with Exists false.
func (c *FirestoreCollection) Get(ctx context.Context, id string) (docstore.Snapshot, error) {
	snap, err := c.coll.Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return docstore.Snapshot{ID: id}, nil
	}
	if err != nil {
		return docstore.Snapshot{}, fmt.Errorf("failed to get document %s: %w", id, err)
	}

	var doc models.Document
	if err := snap.DataTo(&doc); err != nil {
		return docstore.Snapshot{}, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return docstore.Snapshot{ID: snap.Ref.ID, Exists: snap.Exists(), Data: doc}, nil
}

// Update sets the given fields of an existing document. The client refuses
// an update with no paths, so an empty update only checks that the
// document exists.
func (c *FirestoreCollection) Update(ctx context.Context, id string, updates []docstore.Update) error {
	if len(updates) == 0 {
		_, err := c.coll.Doc(id).Get(ctx)
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s", docstore.ErrNoDocument, id)
		}
		if err != nil {
			return fmt.Errorf("failed to get document %s: %w", id, err)
		}
		return nil
	}

	_, err := c.coll.Doc(id).Update(ctx, toFirestoreUpdates(updates))
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s: %w", docstore.ErrNoDocument, id, err)
	}
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", id, err)
	}
	return nil
}

// Close releases the underlying client.
func (c *FirestoreCollection) Close() error {
	return c.client.Close()
}

func toFirestoreUpdates(updates []docstore.Update) []firestore.Update {
	out := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		out = append(out, firestore.Update{Path: u.Path, Value: u.Value})
	}
	return out
}
