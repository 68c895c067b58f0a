package models

import "time"

// CollectionName is the remote collection holding event documents.
const CollectionName = "events"

// Event is the in-memory view of one event document.
type Event struct {
	ID          string          // Document identifier assigned by the remote store
	Title       string          // Free text title
	Description string          // Free text description
	Dates       []DateCandidate // Candidate date ranges participants vote on
	Votes       []VoteRecord    // One record per participant
}

// DateCandidate is one proposed date range.
// From is held in the display location; To is kept as the store returned it.
type DateCandidate struct {
	ID   int
	From time.Time
	To   *time.Time
}

// VoteRecord is one participant's ballot.
// Vote maps a DateCandidate ID, formatted as a decimal string, to a score.
type VoteRecord struct {
	ID   int            `firestore:"id" json:"id"`
	Name string         `firestore:"name" json:"name" validate:"required"`
	Vote map[string]int `firestore:"vote" json:"vote" validate:"dive,gte=0,lte=2"`
}

// Document is the body stored in the remote collection.
type Document struct {
	Title       string       `firestore:"title" json:"title"`
	Description string       `firestore:"description" json:"description"`
	Dates       []StoredDate `firestore:"dates" json:"dates"`
	Votes       []VoteRecord `firestore:"votes" json:"votes"`
}

// StoredDate is a DateCandidate in its storage form.
type StoredDate struct {
	ID   int        `firestore:"id" json:"id"`
	From time.Time  `firestore:"from" json:"from"`
	To   *time.Time `firestore:"to,omitempty" json:"to,omitempty"`
}

// Clone returns a copy of d that shares no slices or maps with it.
func (d Document) Clone() Document {
	out := Document{Title: d.Title, Description: d.Description}
	if d.Dates != nil {
		out.Dates = make([]StoredDate, len(d.Dates))
		for i, date := range d.Dates {
			out.Dates[i] = date
			if date.To != nil {
				to := *date.To
				out.Dates[i].To = &to
			}
		}
	}
	if d.Votes != nil {
		out.Votes = CloneVotes(d.Votes)
	}
	return out
}

// CloneVotes deep-copies a vote slice including each score map.
func CloneVotes(votes []VoteRecord) []VoteRecord {
	out := make([]VoteRecord, len(votes))
	for i, v := range votes {
		out[i] = VoteRecord{ID: v.ID, Name: v.Name}
		if v.Vote != nil {
			out[i].Vote = make(map[string]int, len(v.Vote))
			for k, score := range v.Vote {
				out[i].Vote[k] = score
			}
		}
	}
	return out
}
