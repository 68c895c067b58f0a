// Package candidates builds candidate date lists from user input.
package candidates

import (
	"datepoll/internal/models"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Layout is the accepted format of a date-time on the command line.
const Layout = "2006-01-02T15:04"

// Expand generates up to limit candidates from an RFC 5545 recurrence rule
// starting at start. Candidates are numbered from 1. When duration is
// positive each candidate gets To = From + duration.
func Expand(rule string, start time.Time, duration time.Duration, limit int) ([]models.DateCandidate, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	opt, err := rrule.StrToROption(strings.TrimPrefix(rule, "RRULE:"))
	if err != nil {
		return nil, fmt.Errorf("invalid recurrence rule: %w", err)
	}
	opt.Dtstart = start
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("invalid recurrence rule: %w", err)
	}

	var out []models.DateCandidate
	next := r.Iterator()
	for len(out) < limit {
		t, ok := next()
		if !ok {
			break
		}
		out = append(out, newCandidate(len(out)+1, t, duration))
	}
	return out, nil
}

// Parse reads candidates written as "from" or "from/to" in Layout,
// interpreted in loc. Candidates are numbered from 1 in input order.
func Parse(values []string, loc *time.Location) ([]models.DateCandidate, error) {
	out := make([]models.DateCandidate, 0, len(values))
	for i, v := range values {
		fromStr, toStr, hasTo := strings.Cut(v, "/")
		from, err := time.ParseInLocation(Layout, strings.TrimSpace(fromStr), loc)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", v, err)
		}
		d := models.DateCandidate{ID: i + 1, From: from}
		if hasTo {
			to, err := time.ParseInLocation(Layout, strings.TrimSpace(toStr), loc)
			if err != nil {
				return nil, fmt.Errorf("invalid date %q: %w", v, err)
			}
			if to.Before(from) {
				return nil, fmt.Errorf("invalid date %q: end is before start", v)
			}
			d.To = &to
		}
		out = append(out, d)
	}
	return out, nil
}

func newCandidate(id int, from time.Time, duration time.Duration) models.DateCandidate {
	d := models.DateCandidate{ID: id, From: from}
	if duration > 0 {
		to := from.Add(duration)
		d.To = &to
	}
	return d
}
