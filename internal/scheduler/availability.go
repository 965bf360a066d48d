package scheduler

import (
	"time"

	"github.com/evan-hart/studyplan-api/internal/models"
)

const minutesPerDay = 24 * 60

// DailyAvailability derives, for each date in the window, the ordered free
// intervals left after subtracting test days, school hours (minus enabled
// override windows) and events. Intervals shorter than minViable minutes are
// dropped.
func DailyAvailability(snap Snapshot, minViable int) map[string][]Interval {
	avail := make(map[string][]Interval)
	for _, key := range snap.DateKeys() {
		avail[key] = DayAvailability(snap, key, minViable)
	}
	return avail
}

// DayAvailability computes the free intervals for a single date.
func DayAvailability(snap Snapshot, dateKey string, minViable int) []Interval {
	day, err := time.Parse(DateLayout, dateKey)
	if err != nil {
		return nil
	}
	window := snap.Prefs.Window(day.Weekday())
	if !window.Enabled {
		return nil
	}
	start, errS := ParseClock(window.Start)
	end, errE := ParseClock(window.End)
	if errS != nil || errE != nil || start >= end {
		return nil
	}

	free := []Interval{{Start: start, End: end}}
	free = SubtractAll(free, DayBlocks(snap, dateKey))
	free = markHomeworkOnly(free, snap.Prefs)

	kept := free[:0]
	for _, iv := range free {
		if iv.Duration() >= minViable {
			kept = append(kept, iv)
		}
	}
	sortIntervals(kept)
	return kept
}

// DayBlocks returns the blocked intervals for a date: the full day when any
// subject has a test, school hours minus enabled override windows on
// weekdays, and every overlapping event.
func DayBlocks(snap Snapshot, dateKey string) []Interval {
	if snap.testDateSet()[dateKey] {
		return []Interval{{Start: 0, End: minutesPerDay}}
	}

	day, err := time.Parse(DateLayout, dateKey)
	if err != nil {
		return nil
	}

	var blocks []Interval
	if school := snap.Prefs.SchoolHours; school != nil && school.Enabled && isSchoolDay(day.Weekday()) {
		blocks = append(blocks, schoolBlocks(*school, snap.Prefs)...)
	}

	dayStart := day
	dayEnd := day.AddDate(0, 0, 1)
	for _, ev := range snap.Events {
		if !ev.StartsAt.Before(dayEnd) || !ev.EndsAt.After(dayStart) {
			continue
		}
		blocks = append(blocks, Interval{
			Start: clampMinutes(ev.StartsAt.Sub(dayStart)),
			End:   clampMinutes(ev.EndsAt.Sub(dayStart)),
		})
	}
	sortIntervals(blocks)
	return blocks
}

// schoolBlocks carves the enabled before-school/lunch/free-period windows
// back out of the school-hours block.
func schoolBlocks(school models.TimeWindow, prefs models.StudyPreferences) []Interval {
	start, errS := ParseClock(school.Start)
	end, errE := ParseClock(school.End)
	if errS != nil || errE != nil || start >= end {
		return nil
	}
	blocked := []Interval{{Start: start, End: end}}
	for _, override := range []*models.TimeWindow{prefs.BeforeSchool, prefs.Lunch, prefs.FreePeriod} {
		if override == nil || !override.Enabled {
			continue
		}
		os, errS := ParseClock(override.Start)
		oe, errE := ParseClock(override.End)
		if errS != nil || errE != nil || os >= oe {
			continue
		}
		blocked = Subtract(blocked, Interval{Start: os, End: oe})
	}
	return blocked
}

// markHomeworkOnly flags free intervals that sit inside a homework-only
// override window.
func markHomeworkOnly(free []Interval, prefs models.StudyPreferences) []Interval {
	for _, override := range []*models.TimeWindow{prefs.BeforeSchool, prefs.Lunch, prefs.FreePeriod} {
		if override == nil || !override.Enabled || !override.HomeworkOnly {
			continue
		}
		os, errS := ParseClock(override.Start)
		oe, errE := ParseClock(override.End)
		if errS != nil || errE != nil {
			continue
		}
		for i := range free {
			if free[i].Start >= os && free[i].End <= oe {
				free[i].HomeworkOnly = true
			}
		}
	}
	return free
}

func isSchoolDay(d time.Weekday) bool {
	return d >= time.Monday && d <= time.Friday
}

func clampMinutes(d time.Duration) int {
	m := int(d.Minutes())
	if m < 0 {
		return 0
	}
	if m > minutesPerDay {
		return minutesPerDay
	}
	return m
}
