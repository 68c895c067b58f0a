package models

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Scores a participant can give a candidate.
const (
	ScoreNo    = 0
	ScoreMaybe = 1
	ScoreYes   = 2
)

var validate = validator.New()

// ScoreKey formats a candidate ID as a key of VoteRecord.Vote.
func ScoreKey(candidateID int) string {
	return strconv.Itoa(candidateID)
}

// Score returns the score v gave the candidate, if any.
func (v VoteRecord) Score(candidateID int) (int, bool) {
	score, ok := v.Vote[ScoreKey(candidateID)]
	return score, ok
}

// ValidateBallot checks a new vote before it is sent. Every scored
// candidate must exist in dates.
func ValidateBallot(v VoteRecord, dates []DateCandidate) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid ballot: %w", err)
	}

	known := make(map[string]bool, len(dates))
	for _, d := range dates {
		known[ScoreKey(d.ID)] = true
	}
	keys := make([]string, 0, len(v.Vote))
	for k := range v.Vote {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !known[k] {
			return fmt.Errorf("invalid ballot: unknown candidate %q", k)
		}
	}
	return nil
}

// NextVoteID returns an ID one past the highest in votes.
func NextVoteID(votes []VoteRecord) int {
	next := 1
	for _, v := range votes {
		if v.ID >= next {
			next = v.ID + 1
		}
	}
	return next
}

// CandidateTally summarises the scores given to one candidate.
type CandidateTally struct {
	CandidateID int
	Total       int // Sum of all scores
	Voters      int // Participants who scored this candidate
}

// Tally sums the votes per candidate, in candidate order.
// Scores for unknown candidates are ignored.
func Tally(dates []DateCandidate, votes []VoteRecord) []CandidateTally {
	out := make([]CandidateTally, 0, len(dates))
	for _, d := range dates {
		t := CandidateTally{CandidateID: d.ID}
		for _, v := range votes {
			if score, ok := v.Score(d.ID); ok {
				t.Total += score
				t.Voters++
			}
		}
		out = append(out, t)
	}
	return out
}
