package scheduler

import "github.com/evan-hart/studyplan-api/internal/models"

// FreeGaps subtracts a day's existing sessions from its availability,
// yielding the gaps a moved or replanned session may occupy.
func FreeGaps(avail []Interval, existing []models.Session) []Interval {
	gaps := make([]Interval, len(avail))
	copy(gaps, avail)
	for _, sess := range existing {
		start, err := ParseClock(sess.StartTime)
		if err != nil {
			continue
		}
		gaps = Subtract(gaps, Interval{Start: start, End: start + sess.DurationMin})
	}
	sortIntervals(gaps)
	return gaps
}

// FirstFit returns the start minute of the earliest gap that can hold the
// duration. Homework-only gaps only admit homework sessions.
func FirstFit(gaps []Interval, durationMin int, sessionType models.SessionType) (int, bool) {
	for _, gap := range gaps {
		if gap.HomeworkOnly && sessionType != models.SessionHomework {
			continue
		}
		if gap.Duration() >= durationMin {
			return gap.Start, true
		}
	}
	return 0, false
}
