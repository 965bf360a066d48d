package scheduler

import (
	"time"

	"github.com/evan-hart/studyplan-api/internal/models"
)

// DateLayout is the ISO date format used throughout schedule documents.
const DateLayout = "2006-01-02"

// Snapshot is the immutable input set one generation (or replan) works on.
type Snapshot struct {
	Start     time.Time
	End       time.Time
	Mode      models.Mode
	Subjects  []models.Subject
	Topics    []models.Topic
	TestDates []models.TestDate
	Homework  []models.Homework
	Events    []models.Event
	Prefs     models.StudyPreferences
}

// DateKeys returns every date in the window, inclusive, in order.
func (s Snapshot) DateKeys() []string {
	var keys []string
	for d := s.Start; !d.After(s.End); d = d.AddDate(0, 0, 1) {
		keys = append(keys, d.Format(DateLayout))
	}
	return keys
}

// SubjectByID indexes subjects for catalog lookups.
func (s Snapshot) SubjectByID() map[string]models.Subject {
	m := make(map[string]models.Subject, len(s.Subjects))
	for _, sub := range s.Subjects {
		m[sub.ID] = sub
	}
	return m
}

// testDateSet returns the dates excluded by any subject's test.
func (s Snapshot) testDateSet() map[string]bool {
	set := make(map[string]bool, len(s.TestDates))
	for _, td := range s.TestDates {
		set[td.Date] = true
	}
	return set
}

// nearestTest returns, per subject, the earliest test on or after the window
// start.
func (s Snapshot) nearestTest() map[string]models.TestDate {
	startKey := s.Start.Format(DateLayout)
	m := make(map[string]models.TestDate)
	for _, td := range s.TestDates {
		if td.Date < startKey {
			continue
		}
		if cur, ok := m[td.SubjectID]; !ok || td.Date < cur.Date {
			m[td.SubjectID] = td
		}
	}
	return m
}

// daysBetween counts whole days from a to b (date keys), negative when b < a.
func daysBetween(a, b string) int {
	ta, errA := time.Parse(DateLayout, a)
	tb, errB := time.Parse(DateLayout, b)
	if errA != nil || errB != nil {
		return 0
	}
	return int(tb.Sub(ta).Hours() / 24)
}
