package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigratePreferencesUpgradesLegacySlots(t *testing.T) {
	raw := []byte(`{
		"day_time_slots": [
			{"day": "Monday", "start_time": "16:00", "end_time": "19:00"},
			{"day": "saturday", "start_time": "10:00", "end_time": "14:00"}
		],
		"session_duration": 45,
		"break_duration": 10,
		"duration_mode": "fixed"
	}`)

	prefs, err := MigratePreferences(raw)
	require.NoError(t, err)

	assert.Equal(t, 2, prefs.SchemaVersion)
	assert.Equal(t, DurationFixed, prefs.DurationMode)
	assert.Equal(t, 45, prefs.SessionDuration)
	assert.Equal(t, 10, prefs.BreakDuration)

	monday := prefs.Window(time.Monday)
	assert.True(t, monday.Enabled)
	assert.Equal(t, "16:00", monday.Start)
	assert.Equal(t, "19:00", monday.End)

	assert.False(t, prefs.Window(time.Tuesday).Enabled)
	assert.True(t, prefs.Window(time.Saturday).Enabled)
}

func TestMigratePreferencesLegacyDefaultsToFlexible(t *testing.T) {
	raw := []byte(`{"day_time_slots": [{"day": "monday", "start_time": "16:00", "end_time": "19:00"}]}`)

	prefs, err := MigratePreferences(raw)
	require.NoError(t, err)
	assert.Equal(t, DurationFlexible, prefs.DurationMode)
}

func TestMigratePreferencesRejectsUnknownLegacyDay(t *testing.T) {
	raw := []byte(`{"day_time_slots": [{"day": "someday", "start_time": "16:00", "end_time": "19:00"}]}`)

	_, err := MigratePreferences(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "someday")
}

func TestMigratePreferencesPassesCurrentShapeThrough(t *testing.T) {
	raw := []byte(`{
		"schema_version": 2,
		"weekdays": {"monday": {"enabled": true, "start": "17:00", "end": "20:00"}},
		"session_duration_min": 50,
		"break_duration_min": 5,
		"duration_mode": "fixed",
		"school_hours": {"enabled": true, "start": "08:30", "end": "15:30"}
	}`)

	prefs, err := MigratePreferences(raw)
	require.NoError(t, err)

	assert.Equal(t, 2, prefs.SchemaVersion)
	assert.Equal(t, 50, prefs.SessionDuration)
	require.NotNil(t, prefs.SchoolHours)
	assert.True(t, prefs.SchoolHours.Enabled)
	assert.True(t, prefs.Window(time.Monday).Enabled)
}

func TestMigratePreferencesDefaultsMissingSchemaVersion(t *testing.T) {
	raw := []byte(`{"weekdays": {"sunday": {"enabled": true, "start": "10:00", "end": "12:00"}}}`)

	prefs, err := MigratePreferences(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, prefs.SchemaVersion)
}

func TestMigratePreferencesRejectsMalformedJSON(t *testing.T) {
	_, err := MigratePreferences([]byte(`{`))
	require.Error(t, err)
}

func TestScheduleMapFindSession(t *testing.T) {
	schedule := ScheduleMap{
		"2025-03-03": {{ID: "a"}, {ID: "b"}},
		"2025-03-04": {{ID: "c"}},
	}

	date, idx, ok := schedule.FindSession("b")
	require.True(t, ok)
	assert.Equal(t, "2025-03-03", date)
	assert.Equal(t, 1, idx)

	_, _, ok = schedule.FindSession("missing")
	assert.False(t, ok)
}

func TestSortDayOrdersByStartTime(t *testing.T) {
	day := []Session{
		{ID: "late", StartTime: "18:00"},
		{ID: "early", StartTime: "09:00"},
		{ID: "mid", StartTime: "12:30"},
	}

	SortDay(day)
	assert.Equal(t, []string{"early", "mid", "late"}, []string{day[0].ID, day[1].ID, day[2].ID})
}
