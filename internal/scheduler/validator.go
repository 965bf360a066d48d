package scheduler

import (
	"fmt"

	"github.com/evan-hart/studyplan-api/internal/models"
)

// Warning codes emitted by the sanitizer.
const (
	WarnRemovedUnknown = "REMOVED_UNKNOWN_ITEM"
	WarnRemovedEvent   = "REMOVED_EVENT_SESSION"
	WarnRemovedDueDate = "REMOVED_HOMEWORK_ON_DUE_DATE"
	WarnRemovedTestDay = "REMOVED_TEST_DAY_SESSION"
	WarnBlockedOverlap = "BLOCKED_INTERVAL_OVERLAP"
	WarnSessionOverlap = "SESSION_OVERLAP"
)

// Warning describes a sanitizer finding. Removal warnings accompany filtered
// sessions; overlap warnings are advisory and leave the schedule intact so
// the caller can decide between re-running generation and accepting a
// degraded day.
type Warning struct {
	Code      string `json:"code"`
	Date      string `json:"date"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// Sanitize enforces the hard catalog invariants on an allocated schedule:
// every session must reference a known subject+topic or homework title,
// events are never sessions, homework never lands on its due date and test
// days stay empty. Overlaps with blocked intervals or between sessions are
// reported but not repaired. Sanitize never fabricates sessions.
func Sanitize(schedule models.ScheduleMap, snap Snapshot) (models.ScheduleMap, []Warning) {
	catalog := buildCatalog(snap)
	testDays := snap.testDateSet()
	out := make(models.ScheduleMap, len(schedule))
	var warnings []Warning

	for dateKey, sessions := range schedule {
		kept := make([]models.Session, 0, len(sessions))
		for _, sess := range sessions {
			if warn, drop := vetSession(sess, dateKey, catalog, testDays); drop {
				warnings = append(warnings, warn)
				continue
			}
			kept = append(kept, sess)
		}
		models.SortDay(kept)
		warnings = append(warnings, overlapWarnings(snap, dateKey, kept)...)
		out[dateKey] = kept
	}
	return out, warnings
}

type catalog struct {
	subjects    map[string]bool            // by id
	topics      map[string]map[string]bool // subject id -> topic name
	homework    map[string]models.Homework // by title
	eventTitles map[string]bool
}

func buildCatalog(snap Snapshot) catalog {
	c := catalog{
		subjects:    make(map[string]bool, len(snap.Subjects)),
		topics:      make(map[string]map[string]bool, len(snap.Subjects)),
		homework:    make(map[string]models.Homework, len(snap.Homework)),
		eventTitles: make(map[string]bool, len(snap.Events)),
	}
	for _, s := range snap.Subjects {
		c.subjects[s.ID] = true
		c.topics[s.ID] = make(map[string]bool)
	}
	for _, t := range snap.Topics {
		if names, ok := c.topics[t.SubjectID]; ok {
			names[t.Name] = true
		}
	}
	for _, hw := range snap.Homework {
		c.homework[hw.Title] = hw
	}
	for _, ev := range snap.Events {
		c.eventTitles[ev.Title] = true
	}
	return c
}

// vetSession decides whether one session survives sanitization.
func vetSession(sess models.Session, dateKey string, c catalog, testDays map[string]bool) (Warning, bool) {
	warn := Warning{Date: dateKey, SessionID: sess.ID}

	if string(sess.Type) == "event" || c.eventTitles[sess.Topic] {
		warn.Code = WarnRemovedEvent
		warn.Message = fmt.Sprintf("session %q duplicates an event; events are exclusion data only", sess.Topic)
		return warn, true
	}
	if testDays[dateKey] {
		warn.Code = WarnRemovedTestDay
		warn.Message = fmt.Sprintf("session placed on test day %s", dateKey)
		return warn, true
	}
	switch sess.Type {
	case models.SessionBreak:
		return Warning{}, false
	case models.SessionHomework:
		hw, ok := c.homework[sess.Topic]
		if !ok {
			warn.Code = WarnRemovedUnknown
			warn.Message = fmt.Sprintf("homework %q not in catalog", sess.Topic)
			return warn, true
		}
		if dateKey >= hw.DueDate {
			warn.Code = WarnRemovedDueDate
			warn.Message = fmt.Sprintf("homework %q scheduled on or after due date %s", sess.Topic, hw.DueDate)
			return warn, true
		}
	default:
		if !c.subjects[sess.SubjectID] || !c.topics[sess.SubjectID][sess.Topic] {
			warn.Code = WarnRemovedUnknown
			warn.Message = fmt.Sprintf("topic %q (subject %s) not in catalog", sess.Topic, sess.SubjectID)
			return warn, true
		}
	}
	return Warning{}, false
}

// overlapWarnings reports sessions intersecting blocked intervals and
// pairwise session overlaps on an already time-sorted day.
func overlapWarnings(snap Snapshot, dateKey string, sessions []models.Session) []Warning {
	blocks := DayBlocks(snap, dateKey)
	var warnings []Warning
	prevEnd := -1
	for _, sess := range sessions {
		start, err := ParseClock(sess.StartTime)
		if err != nil {
			continue
		}
		end := start + sess.DurationMin
		for _, b := range blocks {
			if !b.Overlaps(start, end) {
				continue
			}
			if allowedInOverride(snap.Prefs, sess, start, end) {
				continue
			}
			warnings = append(warnings, Warning{
				Code:      WarnBlockedOverlap,
				Date:      dateKey,
				SessionID: sess.ID,
				Message:   fmt.Sprintf("session at %s overlaps blocked interval %s-%s", sess.StartTime, FormatClock(b.Start), FormatClock(b.End)),
			})
			break
		}
		if start < prevEnd {
			warnings = append(warnings, Warning{
				Code:      WarnSessionOverlap,
				Date:      dateKey,
				SessionID: sess.ID,
				Message:   fmt.Sprintf("session at %s overlaps the previous session", sess.StartTime),
			})
		}
		if end > prevEnd {
			prevEnd = end
		}
	}
	return warnings
}

// allowedInOverride permits sessions sitting inside an enabled override
// window (homework-only windows admit homework sessions exclusively).
func allowedInOverride(prefs models.StudyPreferences, sess models.Session, start, end int) bool {
	for _, override := range []*models.TimeWindow{prefs.BeforeSchool, prefs.Lunch, prefs.FreePeriod} {
		if override == nil || !override.Enabled {
			continue
		}
		os, errS := ParseClock(override.Start)
		oe, errE := ParseClock(override.End)
		if errS != nil || errE != nil {
			continue
		}
		if start >= os && end <= oe {
			if override.HomeworkOnly {
				return sess.Type == models.SessionHomework
			}
			return true
		}
	}
	return false
}
