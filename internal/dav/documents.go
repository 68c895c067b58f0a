package dav

import (
	"context"
	"datepoll/internal/docstore"
	"datepoll/internal/models"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/emersion/go-webdav"
	"github.com/google/uuid"
)

// Collection is a docstore.Collection kept as <root>/<id>.json files on a
// WebDAV server. root is relative to the endpoint path.
type Collection struct {
	client *webdav.Client
	logger *slog.Logger
	root   string
}

// NewCollection connects to endpoint and makes sure the root directory
// exists.
func NewCollection(ctx context.Context, logger *slog.Logger, httpClient webdav.HTTPClient, endpoint, root string) (*Collection, error) {
	client, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	root = strings.Trim(root, "/")
	if root == "" {
		root = models.CollectionName
	}
	c := &Collection{
		client: client,
		logger: logger,
		root:   root,
	}

	if _, err := client.Stat(ctx, c.root); err != nil {
		logger.Info("Creating WebDAV collection", "root", c.root)
		if err := client.Mkdir(ctx, c.root); err != nil {
			return nil, fmt.Errorf("failed to create collection %s: %w", c.root, err)
		}
	}
	return c, nil
}

// Add writes doc under a new random identifier.
func (c *Collection) Add(ctx context.Context, doc models.Document) (string, error) {
	id := uuid.New().String()
	if err := c.write(ctx, id, doc); err != nil {
		return "", err
	}
	c.logger.Debug("Stored document on WebDAV server", "id", id)
	return id, nil
}

// Get reads one document. When the file cannot be opened the collection is
// listed to tell a missing document from a failed request.
func (c *Collection) Get(ctx context.Context, id string) (docstore.Snapshot, error) {
	if err := checkID(id); err != nil {
		return docstore.Snapshot{}, err
	}
	r, err := c.client.Open(ctx, c.docPath(id))
	if err != nil {
		exists, listErr := c.exists(ctx, id)
		if listErr != nil {
			return docstore.Snapshot{}, fmt.Errorf("failed to open document %s: %w", id, err)
		}
		if !exists {
			return docstore.Snapshot{ID: id}, nil
		}
		return docstore.Snapshot{}, fmt.Errorf("failed to open document %s: %w", id, err)
	}
	defer r.Close()

	var doc models.Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return docstore.Snapshot{}, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return docstore.Snapshot{ID: id, Exists: true, Data: doc}, nil
}

// Update reads the document, applies updates and writes it back. WebDAV
// has no transactions, so concurrent writers race and the last one wins.
func (c *Collection) Update(ctx context.Context, id string, updates []docstore.Update) error {
	if err := checkID(id); err != nil {
		return err
	}
	snap, err := c.Get(ctx, id)
	if err != nil {
		return err
	}
	if !snap.Exists {
		return fmt.Errorf("%w: %s", docstore.ErrNoDocument, id)
	}
	if err := docstore.Apply(&snap.Data, updates); err != nil {
		return err
	}
	return c.write(ctx, id, snap.Data)
}

func (c *Collection) write(ctx context.Context, id string, doc models.Document) error {
	w, err := c.client.Create(ctx, c.docPath(id))
	if err != nil {
		return fmt.Errorf("failed to create document %s: %w", id, err)
	}
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		w.Close()
		return fmt.Errorf("failed to encode document %s: %w", id, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to upload document %s: %w", id, err)
	}
	return nil
}

func (c *Collection) exists(ctx context.Context, id string) (bool, error) {
	files, err := c.client.ReadDir(ctx, c.root, false)
	if err != nil {
		return false, err
	}
	name := id + ".json"
	for _, f := range files {
		if !f.IsDir && path.Base(f.Path) == name {
			return true, nil
		}
	}
	return false, nil
}

// checkID rejects ids that would resolve outside the collection root.
func checkID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid document id %q", id)
	}
	return nil
}

func (c *Collection) docPath(id string) string {
	return path.Join(c.root, id+".json")
}
