package dto

import (
	"time"

	"github.com/evan-hart/studyplan-api/internal/models"
	"github.com/evan-hart/studyplan-api/internal/scheduler"
)

// SubjectPayload mirrors one subject in a generation request.
type SubjectPayload struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	ExamBoard string `json:"examBoard"`
	Mode      string `json:"mode" validate:"required,oneof=short-term-exam long-term-exam no-exam"`
}

// TopicPayload binds a topic to a subject.
type TopicPayload struct {
	ID         string `json:"id" validate:"required"`
	SubjectID  string `json:"subjectId" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Confidence int    `json:"confidence" validate:"omitempty,min=1,max=10"`
	Focus      bool   `json:"focus"`
}

// TestDatePayload marks a subject's test day.
type TestDatePayload struct {
	SubjectID string `json:"subjectId" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Type      string `json:"type"`
}

// HomeworkPayload is an assignment with a hard deadline.
type HomeworkPayload struct {
	ID          string `json:"id" validate:"required"`
	SubjectID   string `json:"subjectId" validate:"required"`
	Title       string `json:"title" validate:"required"`
	DueDate     string `json:"dueDate" validate:"required,datetime=2006-01-02"`
	DurationMin int    `json:"durationMin" validate:"required,min=1,max=600"`
}

// EventPayload is a fixed commitment blocking time.
type EventPayload struct {
	ID       string    `json:"id" validate:"required"`
	Title    string    `json:"title" validate:"required"`
	StartsAt time.Time `json:"startsAt" validate:"required"`
	EndsAt   time.Time `json:"endsAt" validate:"required"`
}

// TimeWindowPayload is a daily window in "15:04" form.
type TimeWindowPayload struct {
	Enabled      bool   `json:"enabled"`
	Start        string `json:"start" validate:"omitempty,datetime=15:04"`
	End          string `json:"end" validate:"omitempty,datetime=15:04"`
	HomeworkOnly bool   `json:"homeworkOnly"`
}

// PreferencesPayload carries study-time preferences.
type PreferencesPayload struct {
	Weekdays        map[string]TimeWindowPayload `json:"weekdays" validate:"required,dive"`
	SessionDuration int                          `json:"sessionDurationMin" validate:"required_if=DurationMode fixed,omitempty,min=15,max=180"`
	BreakDuration   int                          `json:"breakDurationMin" validate:"required_if=DurationMode fixed,omitempty,min=5,max=60"`
	DurationMode    string                       `json:"durationMode" validate:"required,oneof=fixed flexible"`
	SchoolHours     *TimeWindowPayload           `json:"schoolHours"`
	BeforeSchool    *TimeWindowPayload           `json:"beforeSchool"`
	Lunch           *TimeWindowPayload           `json:"lunch"`
	FreePeriod      *TimeWindowPayload           `json:"freePeriod"`
}

// GenerationRequest is the full input snapshot for schedule generation.
// Malformed payloads are rejected wholesale before any computation.
type GenerationRequest struct {
	StartDate     string             `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate       string             `json:"endDate" validate:"required,datetime=2006-01-02"`
	TimetableMode string             `json:"timetableMode" validate:"required,oneof=short-term-exam long-term-exam no-exam"`
	Subjects      []SubjectPayload   `json:"subjects" validate:"required,min=1,max=20,dive"`
	Topics        []TopicPayload     `json:"topics" validate:"max=500,dive"`
	TestDates     []TestDatePayload  `json:"testDates" validate:"max=50,dive"`
	Homework      []HomeworkPayload  `json:"homework" validate:"dive"`
	Events        []EventPayload     `json:"events" validate:"dive"`
	Preferences   PreferencesPayload `json:"preferences" validate:"required"`
}

// GenerateScheduleResponse returns the placed schedule with everything the
// window could not absorb; unplaced work is data, not a failure.
type GenerateScheduleResponse struct {
	Schedule models.ScheduleMap          `json:"schedule"`
	Unplaced []scheduler.UnplacedItem    `json:"unplaced,omitempty"`
	Warnings []scheduler.Warning         `json:"warnings,omitempty"`
	Report   scheduler.FeasibilityReport `json:"feasibility"`
	Version  int                         `json:"version"`
}

// TimetableSummary is one listing row; full documents are fetched per
// timetable.
type TimetableSummary struct {
	ID        string      `json:"id"`
	Mode      models.Mode `json:"mode"`
	StartDate string      `json:"startDate"`
	EndDate   string      `json:"endDate"`
	Version   int         `json:"version"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// MoveSessionRequest relocates one session to another day.
type MoveSessionRequest struct {
	SourceDate string `json:"sourceDate" validate:"required,datetime=2006-01-02"`
	SessionID  string `json:"sessionId" validate:"required"`
	TargetDate string `json:"targetDate" validate:"required,datetime=2006-01-02"`
}

// ReplanTopic is one entry of the user-submitted priority list. Confidence
// and focus override catalog defaults for this call only.
type ReplanTopic struct {
	TopicID    string `json:"topicId" validate:"required"`
	Confidence *int   `json:"confidence" validate:"omitempty,min=1,max=10"`
	Focus      *bool  `json:"focus"`
}

// ReplanDayRequest rebuilds a single day from a reordered topic list.
type ReplanDayRequest struct {
	Priorities []ReplanTopic `json:"priorities" validate:"required,min=1,dive"`
	Reflection string        `json:"reflection"`
}

// ReplanDayResponse returns the replaced day.
type ReplanDayResponse struct {
	Date     string                   `json:"date"`
	Sessions []models.Session         `json:"sessions"`
	Unplaced []scheduler.UnplacedItem `json:"unplaced,omitempty"`
	Version  int                      `json:"version"`
}

// MoveSessionResponse returns the updated schedule document.
type MoveSessionResponse struct {
	Schedule models.ScheduleMap `json:"schedule"`
	Version  int                `json:"version"`
}

// CompleteSessionRequest toggles a session's completion flag.
type CompleteSessionRequest struct {
	Completed bool `json:"completed"`
}
