// Package store holds the client-side copy of one event and keeps it in
// step with the remote events collection.
package store

import (
	"context"
	"datepoll/internal/docstore"
	"datepoll/internal/models"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// EventStore mirrors one remote event document. Construct one per session
// with New and share it by reference.
//
// Mutators replace fields unconditionally. Operations talk to the
// collection and commit only after the remote call succeeds, so a failed
// call leaves local state as it was. Each commit happens under one lock and
// readers of Event never see it half applied. Overlapping operations are
// not ordered; the last commit wins.
type EventStore struct {
	logger   *slog.Logger
	events   docstore.Collection
	location *time.Location

	mu          sync.RWMutex
	isLoading   bool
	eventID     string
	title       string
	description string
	dates       []models.DateCandidate
	votes       []models.VoteRecord
}

// EventUpdate is the input of SetEvent. A nil field is left out of the
// remote update.
type EventUpdate struct {
	ID          string
	Title       *string
	Description *string
	Dates       []models.DateCandidate
	Votes       []models.VoteRecord
}

// NewEvent is the input of CreateEvent.
type NewEvent struct {
	Title       string
	Description string
	Dates       []models.DateCandidate
}

// New creates an empty EventStore backed by events. Dates read from the
// collection are converted into loc; a nil loc means time.Local.
func New(logger *slog.Logger, events docstore.Collection, loc *time.Location) *EventStore {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &EventStore{
		logger:   logger,
		events:   events,
		location: loc,
		dates:    []models.DateCandidate{},
		votes:    []models.VoteRecord{},
	}
}

// IsLoading reports the loading flag.
func (s *EventStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isLoading
}

// EventID returns the identifier of the loaded event, or "" if none.
func (s *EventStore) EventID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventID
}

func (s *EventStore) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.title
}

func (s *EventStore) Description() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.description
}

// Dates returns the candidate dates. The slice is a copy; its elements
// are the stored values.
func (s *EventStore) Dates() []models.DateCandidate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.dates)
}

// Votes returns the vote records. The slice is a copy; its elements
// are the stored values.
func (s *EventStore) Votes() []models.VoteRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.votes)
}

// Event returns every persisted field at once.
func (s *EventStore) Event() models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Event{
		ID:          s.eventID,
		Title:       s.title,
		Description: s.description,
		Dates:       slices.Clone(s.dates),
		Votes:       slices.Clone(s.votes),
	}
}

// SetLoadingState stores the negation of isLoading, so StartLoading leaves
// the flag false and FinishLoading leaves it true.
func (s *EventStore) SetLoadingState(isLoading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = !isLoading
}

func (s *EventStore) SetEventID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventID = id
}

func (s *EventStore) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = title
}

func (s *EventStore) SetDescription(description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.description = description
}

func (s *EventStore) SetDates(dates []models.DateCandidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dates = dates
}

func (s *EventStore) SetVotes(votes []models.VoteRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes = votes
}

// StartLoading marks the start of a caller-managed operation.
func (s *EventStore) StartLoading() {
	s.SetLoadingState(true)
}

// FinishLoading marks the end of a caller-managed operation.
func (s *EventStore) FinishLoading() {
	s.SetLoadingState(false)
}

// ClearEvent resets every persisted field to its empty value.
func (s *EventStore) ClearEvent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventID = ""
	s.title = ""
	s.description = ""
	s.dates = []models.DateCandidate{}
	s.votes = []models.VoteRecord{}
}

// SetEvent writes the non-nil fields of in to the existing document in.ID.
//
// After the write succeeds the event ID is always committed, but the other
// fields are committed only when non-empty: an empty title or an empty
// dates slice is written remotely yet leaves the local value unchanged.
func (s *EventStore) SetEvent(ctx context.Context, in EventUpdate) error {
	if in.ID == "" {
		return &ValidationError{Field: "id", Message: "empty id"}
	}

	var updates []docstore.Update
	if in.Title != nil {
		updates = append(updates, docstore.Update{Path: docstore.PathTitle, Value: *in.Title})
	}
	if in.Description != nil {
		updates = append(updates, docstore.Update{Path: docstore.PathDescription, Value: *in.Description})
	}
	if in.Dates != nil {
		updates = append(updates, docstore.Update{Path: docstore.PathDates, Value: models.EncodeDates(in.Dates)})
	}
	if in.Votes != nil {
		updates = append(updates, docstore.Update{Path: docstore.PathVotes, Value: in.Votes})
	}

	s.logger.Debug("Updating event", "id", in.ID, "fields", len(updates))
	if err := s.events.Update(ctx, in.ID, updates); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventID = in.ID
	if in.Title != nil && *in.Title != "" {
		s.title = *in.Title
	}
	if in.Description != nil && *in.Description != "" {
		s.description = *in.Description
	}
	if len(in.Dates) > 0 {
		s.dates = in.Dates
	}
	if len(in.Votes) > 0 {
		s.votes = in.Votes
	}
	return nil
}

// CreateEvent adds a new document with no votes and returns its ID.
// Local state is not touched; follow up with FetchEvent to load it.
func (s *EventStore) CreateEvent(ctx context.Context, in NewEvent) (string, error) {
	doc := models.Document{
		Title:       in.Title,
		Description: in.Description,
		Dates:       models.EncodeDates(in.Dates),
		Votes:       []models.VoteRecord{},
	}

	id, err := s.events.Add(ctx, doc)
	if err != nil {
		return "", err
	}
	s.logger.Debug("Created event", "id", id, "dates", len(doc.Dates))
	return id, nil
}

// FetchEvent loads the document eventID into local state.
func (s *EventStore) FetchEvent(ctx context.Context, eventID string) error {
	snap, err := s.events.Get(ctx, eventID)
	if err != nil {
		return err
	}
	if !snap.Exists {
		return &NotFoundError{ID: eventID}
	}

	dates := models.DecodeDates(snap.Data.Dates, s.location)
	s.mu.Lock()
	s.eventID = snap.ID
	s.title = snap.Data.Title
	s.description = snap.Data.Description
	s.dates = dates
	s.votes = snap.Data.Votes
	s.mu.Unlock()

	s.logger.Debug("Fetched event", "id", snap.ID, "dates", len(snap.Data.Dates), "votes", len(snap.Data.Votes))
	return nil
}
