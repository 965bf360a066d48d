package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DurationMode selects between exact configured session lengths and
// mode-dependent flexible ranges.
type DurationMode string

const (
	DurationFixed    DurationMode = "fixed"
	DurationFlexible DurationMode = "flexible"
)

// TimeWindow is a daily [Start,End) window in "15:04" form.
type TimeWindow struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
	// HomeworkOnly restricts sessions placed in this window to homework.
	HomeworkOnly bool `json:"homework_only,omitempty"`
}

// StudyPreferences is the current (v2) preference document shape.
// Legacy day_time_slots payloads are converted by MigratePreferences at the
// load boundary; nothing downstream inspects raw JSON shapes.
type StudyPreferences struct {
	SchemaVersion   int                   `json:"schema_version"`
	Weekdays        map[string]TimeWindow `json:"weekdays"` // keyed "monday".."sunday"
	SessionDuration int                   `json:"session_duration_min"`
	BreakDuration   int                   `json:"break_duration_min"`
	DurationMode    DurationMode          `json:"duration_mode"`
	SchoolHours     *TimeWindow           `json:"school_hours,omitempty"`
	BeforeSchool    *TimeWindow           `json:"before_school,omitempty"`
	Lunch           *TimeWindow           `json:"lunch,omitempty"`
	FreePeriod      *TimeWindow           `json:"free_period,omitempty"`
}

// legacyPreferences is the retired flat slot-list shape.
type legacyPreferences struct {
	DayTimeSlots []struct {
		Day       string `json:"day"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	} `json:"day_time_slots"`
	SessionDuration int    `json:"session_duration"`
	BreakDuration   int    `json:"break_duration"`
	DurationMode    string `json:"duration_mode"`
}

var weekdayNames = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// WeekdayKey returns the Weekdays map key for a time.Weekday.
func WeekdayKey(d time.Weekday) string {
	return weekdayNames[int(d)]
}

// Window returns the configured window for a weekday, disabled when absent.
func (p StudyPreferences) Window(d time.Weekday) TimeWindow {
	if p.Weekdays == nil {
		return TimeWindow{}
	}
	return p.Weekdays[WeekdayKey(d)]
}

// MigratePreferences decodes a raw preference document, upgrading legacy
// day_time_slots payloads to the current shape.
func MigratePreferences(raw []byte) (StudyPreferences, error) {
	var probe struct {
		SchemaVersion int             `json:"schema_version"`
		DayTimeSlots  json.RawMessage `json:"day_time_slots"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return StudyPreferences{}, fmt.Errorf("decode preferences: %w", err)
	}

	if probe.SchemaVersion >= 2 || len(probe.DayTimeSlots) == 0 {
		var prefs StudyPreferences
		if err := json.Unmarshal(raw, &prefs); err != nil {
			return StudyPreferences{}, fmt.Errorf("decode preferences: %w", err)
		}
		if prefs.SchemaVersion == 0 {
			prefs.SchemaVersion = 2
		}
		return prefs, nil
	}

	var legacy legacyPreferences
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return StudyPreferences{}, fmt.Errorf("decode legacy preferences: %w", err)
	}

	prefs := StudyPreferences{
		SchemaVersion:   2,
		Weekdays:        make(map[string]TimeWindow, len(legacy.DayTimeSlots)),
		SessionDuration: legacy.SessionDuration,
		BreakDuration:   legacy.BreakDuration,
		DurationMode:    DurationMode(legacy.DurationMode),
	}
	if prefs.DurationMode == "" {
		prefs.DurationMode = DurationFlexible
	}
	for _, slot := range legacy.DayTimeSlots {
		key := strings.ToLower(strings.TrimSpace(slot.Day))
		if !validWeekday(key) {
			return StudyPreferences{}, fmt.Errorf("legacy preferences: unknown day %q", slot.Day)
		}
		prefs.Weekdays[key] = TimeWindow{Enabled: true, Start: slot.StartTime, End: slot.EndTime}
	}
	return prefs, nil
}

func validWeekday(key string) bool {
	for _, name := range weekdayNames {
		if name == key {
			return true
		}
	}
	return false
}
