// Package syncer publishes an event's candidate dates to a calendar.
package syncer

import (
	"context"
	"datepoll/internal/ics"
	"datepoll/internal/models"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

// DefaultStateFile is where published candidates are recorded.
const DefaultStateFile = "publish-state.json"

// SyncState keeps track of which candidates have been published.
// The key is "<eventID>/<candidateID>" and the value is the UID used in the calendar.
type SyncState map[string]string

// Publisher stores one calendar object.
type Publisher interface {
	PutEvent(ctx context.Context, uid string, cal *ical.Calendar) error
}

// Syncer publishes candidate dates that have not been published before.
type Syncer struct {
	logger    *slog.Logger
	target    Publisher
	state     SyncState
	stateFile string
	dryRun    bool
}

// NewSyncer creates a new Syncer, loading state from stateFile.
func NewSyncer(logger *slog.Logger, target Publisher, stateFile string, dryRun bool) (*Syncer, error) {
	if stateFile == "" {
		stateFile = DefaultStateFile
	}
	state, err := loadState(stateFile)
	if err != nil {
		// If the file doesn't exist, we can start with an empty state.
		if os.IsNotExist(err) {
			logger.Info("No publish state file found, starting fresh.", "file", stateFile)
			state = make(SyncState)
		} else {
			return nil, fmt.Errorf("failed to load publish state: %w", err)
		}
	}

	return &Syncer{
		logger:    logger,
		target:    target,
		state:     state,
		stateFile: stateFile,
		dryRun:    dryRun,
	}, nil
}

// Sync publishes every candidate of event not yet recorded in the state.
// It returns the number of candidates published.
func (s *Syncer) Sync(ctx context.Context, event models.Event) (int, error) {
	if event.ID == "" {
		return 0, fmt.Errorf("event has no id")
	}
	s.logger.Info("Starting publish.", "event", event.ID, "candidates", len(event.Dates))

	published := 0
	for _, d := range event.Dates {
		ok, err := s.publishCandidate(ctx, event, d)
		if err != nil {
			s.logger.Error("Failed to publish candidate", "event", event.ID, "candidate", d.ID, "error", err)
			// Continue with the next candidate even if one fails.
			continue
		}
		if ok {
			published++
		}
	}

	if !s.dryRun {
		if err := s.saveState(); err != nil {
			return published, fmt.Errorf("failed to save publish state: %w", err)
		}
	}

	s.logger.Info("Publish finished.", "event", event.ID, "published", published)
	return published, nil
}

// Published reports the UID a candidate was published under, if any.
func (s *Syncer) Published(eventID string, candidateID int) (string, bool) {
	uid, ok := s.state[stateKey(eventID, candidateID)]
	return uid, ok
}

func (s *Syncer) publishCandidate(ctx context.Context, event models.Event, d models.DateCandidate) (bool, error) {
	key := stateKey(event.ID, d.ID)
	if _, exists := s.state[key]; exists {
		s.logger.Debug("Candidate already published, skipping.", "key", key)
		return false, nil
	}

	uid := uuid.New().String()
	if s.dryRun {
		s.logger.Info("[DRY RUN] Would publish candidate", "title", event.Title, "from", d.From)
		return true, nil
	}

	if err := s.target.PutEvent(ctx, uid, ics.CandidateCalendar(event, d, uid)); err != nil {
		return false, err
	}
	s.state[key] = uid
	return true, nil
}

func stateKey(eventID string, candidateID int) string {
	return eventID + "/" + strconv.Itoa(candidateID)
}

// loadState loads the publish state from the JSON file.
func loadState(path string) (SyncState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state SyncState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state == nil {
		state = make(SyncState)
	}
	return state, nil
}

// saveState saves the current publish state to the JSON file.
func (s *Syncer) saveState() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal publish state: %w", err)
	}
	return os.WriteFile(s.stateFile, data, 0644)
}
