package models

// Homework is an assignment that must be completed strictly before its due
// date. Durations are minutes of work, not session lengths.
type Homework struct {
	ID          string `json:"id"`
	SubjectID   string `json:"subject_id"`
	Title       string `json:"title"`
	DueDate     string `json:"due_date"` // ISO date (2006-01-02)
	DurationMin int    `json:"duration_min"`
}
