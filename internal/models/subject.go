package models

// Mode describes how intensively a subject (or a whole timetable) is studied.
type Mode string

const (
	ModeShortTermExam Mode = "short-term-exam"
	ModeLongTermExam  Mode = "long-term-exam"
	ModeNoExam        Mode = "no-exam"
)

// Valid reports whether the mode is one of the known values.
func (m Mode) Valid() bool {
	switch m {
	case ModeShortTermExam, ModeLongTermExam, ModeNoExam:
		return true
	}
	return false
}

// Subject is a studied subject. Immutable once topics or tests reference it.
type Subject struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ExamBoard string `json:"exam_board"`
	Mode      Mode   `json:"mode"`
}

// Topic is a unit of subject content to be covered by study sessions.
// Confidence (1-10, 0 = unset) and the focus flag drive repetition counts.
type Topic struct {
	ID         string `json:"id"`
	SubjectID  string `json:"subject_id"`
	Name       string `json:"name"`
	Confidence int    `json:"confidence,omitempty"`
	Focus      bool   `json:"focus,omitempty"`
}
