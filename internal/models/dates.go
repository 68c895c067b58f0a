package models

import "time"

// ToStorage converts an in-memory date-time to the form written to the store:
// UTC with microsecond precision, which is what Firestore timestamps keep.
func ToStorage(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// FromStorage converts a stored date-time back into the display location.
func FromStorage(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc)
}

// EncodeDates converts candidates for writing. Only From is converted;
// ID and To are passed through. The result is never nil.
func EncodeDates(dates []DateCandidate) []StoredDate {
	out := make([]StoredDate, 0, len(dates))
	for _, d := range dates {
		out = append(out, StoredDate{ID: d.ID, From: ToStorage(d.From), To: d.To})
	}
	return out
}

// DecodeDates converts stored candidates for reading. Only From is
// converted; To keeps the value the store returned.
func DecodeDates(stored []StoredDate, loc *time.Location) []DateCandidate {
	out := make([]DateCandidate, 0, len(stored))
	for _, d := range stored {
		out = append(out, DateCandidate{ID: d.ID, From: FromStorage(d.From, loc), To: d.To})
	}
	return out
}
