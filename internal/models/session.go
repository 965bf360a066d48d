package models

import "sort"

// SessionType classifies what a scheduled session is for.
type SessionType string

const (
	SessionStudy         SessionType = "study"
	SessionPractice      SessionType = "practice"
	SessionExamQuestions SessionType = "exam_questions"
	SessionRevision      SessionType = "revision"
	SessionHomework      SessionType = "homework"
	SessionBreak         SessionType = "break"
)

// Session is a single placed block of time. Sessions are addressed by ID,
// never by array position, so reordering a day cannot corrupt move or
// completion operations.
type Session struct {
	ID          string      `json:"id"`
	Date        string      `json:"date"`       // ISO date (2006-01-02)
	StartTime   string      `json:"start_time"` // "15:04"
	DurationMin int         `json:"duration_min"`
	SubjectID   string      `json:"subject_id,omitempty"`
	Subject     string      `json:"subject,omitempty"`
	Topic       string      `json:"topic,omitempty"` // topic name or homework title
	Type        SessionType `json:"type"`
	Completed   bool        `json:"completed"`
	Notes       string      `json:"notes,omitempty"`
	TestDate    string      `json:"test_date,omitempty"`
	DueDate     string      `json:"due_date,omitempty"`
	Mode        Mode        `json:"mode,omitempty"`
}

// ScheduleMap maps ISO dates to time-ordered session lists.
type ScheduleMap map[string][]Session

// SortDay orders a day's sessions by start time in place.
func SortDay(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime < sessions[j].StartTime
	})
}

// FindSession locates a session by id, returning its date and index.
func (s ScheduleMap) FindSession(id string) (string, int, bool) {
	for date, sessions := range s {
		for i, sess := range sessions {
			if sess.ID == id {
				return date, i, true
			}
		}
	}
	return "", 0, false
}
