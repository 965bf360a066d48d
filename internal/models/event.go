package models

import "time"

// Event is an externally fixed commitment. Events only ever block time;
// they are never emitted as sessions.
type Event struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// TestDate marks a subject's test. The whole day is excluded from
// scheduling and the subject's topics gain priority in the days before.
type TestDate struct {
	SubjectID string `json:"subject_id"`
	Date      string `json:"date"` // ISO date (2006-01-02)
	Type      string `json:"type"`
}
