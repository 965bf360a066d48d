package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evan-hart/studyplan-api/internal/models"
)

func TestAllocateFillsEveryDayForSingleTopic(t *testing.T) {
	snap := testSnapshot("2025-03-03", "2025-03-05")
	snap.Subjects = []models.Subject{{ID: "s1", Name: "Maths", Mode: models.ModeLongTermExam}}
	snap.Topics = []models.Topic{{ID: "t1", SubjectID: "s1", Name: "Algebra", Confidence: 7}}

	result, err := Allocate(snap, DailyAvailability(snap, 15), BuildWorkItems(snap), Config{})
	require.NoError(t, err)
	require.Empty(t, result.Unplaced)

	for _, key := range snap.DateKeys() {
		assert.NotEmpty(t, result.Schedule[key], "day %s should not be empty", key)
	}
	// Repetitions cover the first two days; the third is a relaxed fill
	// revisit because the day would otherwise stay empty.
	day3 := result.Schedule["2025-03-05"]
	require.Len(t, day3, 1)
	assert.Equal(t, models.SessionRevision, day3[0].Type)
}

func TestAllocateSplitsHomeworkAcrossDistinctDaysBeforeDue(t *testing.T) {
	snap := testSnapshot("2025-03-03", "2025-03-05")
	snap.Subjects = []models.Subject{{ID: "s1", Name: "English", Mode: models.ModeNoExam}}
	snap.Homework = []models.Homework{{ID: "h1", SubjectID: "s1", Title: "Essay", DueDate: "2025-03-06", DurationMin: 180}}

	result, err := Allocate(snap, DailyAvailability(snap, 15), BuildWorkItems(snap), Config{})
	require.NoError(t, err)
	require.Empty(t, result.Unplaced)

	var dates []string
	for key, sessions := range result.Schedule {
		for _, sess := range sessions {
			require.Equal(t, models.SessionHomework, sess.Type)
			assert.Equal(t, 90, sess.DurationMin)
			assert.Less(t, key, "2025-03-06")
			dates = append(dates, key)
		}
	}
	require.Len(t, dates, 2)
	assert.NotEqual(t, dates[0], dates[1], "homework pieces must land on distinct days")
}

func TestAllocateNeverRepeatsAnItemWithinADay(t *testing.T) {
	snap := testSnapshot("2025-03-03", "2025-03-03")
	snap.Subjects = []models.Subject{{ID: "s1", Name: "Maths", Mode: models.ModeLongTermExam}}
	snap.Topics = []models.Topic{
		{ID: "t1", SubjectID: "s1", Name: "Algebra", Confidence: 7},
		{ID: "t2", SubjectID: "s1", Name: "Geometry", Confidence: 7},
	}

	result, err := Allocate(snap, DailyAvailability(snap, 15), BuildWorkItems(snap), Config{})
	require.NoError(t, err)

	day := result.Schedule["2025-03-03"]
	require.Len(t, day, 3)
	assert.Equal(t, models.SessionRevision, day[0].Type)
	assert.Equal(t, models.SessionBreak, day[1].Type)
	assert.Equal(t, 10, day[1].DurationMin)
	assert.Equal(t, models.SessionPractice, day[2].Type)
	assert.NotEqual(t, day[0].Topic, day[2].Topic)

	// Each topic still owes one repetition the single-day window cannot hold.
	require.Len(t, result.Unplaced, 2)
	for _, item := range result.Unplaced {
		assert.Equal(t, 1, item.Placed)
		assert.Equal(t, 1, item.Remaining)
		assert.Equal(t, "insufficient availability in window", item.Reason)
	}
}

func TestAllocatePlacesSessionsAroundEvents(t *testing.T) {
	snap := testSnapshot("2025-03-03", "2025-03-03")
	snap.Subjects = []models.Subject{{ID: "s1", Name: "Maths", Mode: models.ModeLongTermExam}}
	snap.Topics = []models.Topic{{ID: "t1", SubjectID: "s1", Name: "Algebra", Confidence: 7}}
	snap.Events = []models.Event{{
		ID:       "e1",
		Title:    "Football",
		StartsAt: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC),
	}}

	result, err := Allocate(snap, DailyAvailability(snap, 15), BuildWorkItems(snap), Config{})
	require.NoError(t, err)

	day := result.Schedule["2025-03-03"]
	require.Len(t, day, 1)
	assert.Equal(t, "17:00", day[0].StartTime)
}

func TestAllocatePlacesSessionsOnBothSidesOfAnEvent(t *testing.T) {
	snap := testSnapshot("2025-03-03", "2025-03-03")
	snap.Subjects = []models.Subject{{ID: "s1", Name: "Maths", Mode: models.ModeLongTermExam}}
	snap.Topics = []models.Topic{
		{ID: "t1", SubjectID: "s1", Name: "Algebra", Confidence: 7},
		{ID: "t2", SubjectID: "s1", Name: "Geometry", Confidence: 7},
	}
	// Leaves an hour of the study window on each side of the event.
	snap.Events = []models.Event{{
		ID:       "e1",
		Title:    "Football",
		StartsAt: time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC),
	}}

	result, err := Allocate(snap, DailyAvailability(snap, 15), BuildWorkItems(snap), Config{})
	require.NoError(t, err)

	day := result.Schedule["2025-03-03"]
	require.Len(t, day, 2)
	assert.Equal(t, "09:00", day[0].StartTime, "first topic lands before the event")
	assert.Equal(t, "17:00", day[1].StartTime, "second topic lands after the event")
	assert.NotEqual(t, day[0].Topic, day[1].Topic)
}

func TestAllocateLeavesTestDaysEmpty(t *testing.T) {
	snap := testSnapshot("2025-03-03", "2025-03-05")
	snap.Subjects = []models.Subject{{ID: "s1", Name: "Maths", Mode: models.ModeLongTermExam}}
	snap.Topics = []models.Topic{{ID: "t1", SubjectID: "s1", Name: "Algebra"}}
	snap.TestDates = []models.TestDate{{SubjectID: "s1", Date: "2025-03-04", Type: "mock"}}

	result, err := Allocate(snap, DailyAvailability(snap, 15), BuildWorkItems(snap), Config{})
	require.NoError(t, err)

	assert.Empty(t, result.Schedule["2025-03-04"])
	assert.Len(t, result.Schedule["2025-03-03"], 1)
	assert.Len(t, result.Schedule["2025-03-05"], 1)

	// Test-linked topics want three repetitions; the blocked day costs one.
	require.Len(t, result.Unplaced, 1)
	assert.Equal(t, 2, result.Unplaced[0].Placed)
	assert.Equal(t, 1, result.Unplaced[0].Remaining)
}

func TestAllocateHomeworkOnlyIntervalRejectsStudySessions(t *testing.T) {
	snap := testSnapshot("2025-03-03", "2025-03-03")
	snap.Subjects = []models.Subject{{ID: "s1", Name: "Maths", Mode: models.ModeLongTermExam}}
	snap.Topics = []models.Topic{{ID: "t1", SubjectID: "s1", Name: "Algebra", Confidence: 7}}
	snap.Homework = []models.Homework{{ID: "h1", SubjectID: "s1", Title: "Worksheet", DueDate: "2025-03-05", DurationMin: 30}}

	avail := map[string][]Interval{
		"2025-03-03": {{Start: 540, End: 720, HomeworkOnly: true}},
	}
	result, err := Allocate(snap, avail, BuildWorkItems(snap), Config{})
	require.NoError(t, err)

	day := result.Schedule["2025-03-03"]
	require.Len(t, day, 1)
	assert.Equal(t, models.SessionHomework, day[0].Type)

	require.Len(t, result.Unplaced, 1)
	assert.Equal(t, KindTopic, result.Unplaced[0].Kind)
	assert.Equal(t, 0, result.Unplaced[0].Placed)
}

func TestAllocateFixedDurationsFollowPreferences(t *testing.T) {
	snap := testSnapshot("2025-03-03", "2025-03-03")
	snap.Prefs.DurationMode = models.DurationFixed
	snap.Prefs.SessionDuration = 50
	snap.Prefs.BreakDuration = 5
	snap.Subjects = []models.Subject{{ID: "s1", Name: "Maths", Mode: models.ModeLongTermExam}}
	snap.Topics = []models.Topic{
		{ID: "t1", SubjectID: "s1", Name: "Algebra", Confidence: 7},
		{ID: "t2", SubjectID: "s1", Name: "Geometry", Confidence: 7},
	}

	result, err := Allocate(snap, DailyAvailability(snap, 15), BuildWorkItems(snap), Config{})
	require.NoError(t, err)

	day := result.Schedule["2025-03-03"]
	require.Len(t, day, 3)
	assert.Equal(t, 50, day[0].DurationMin)
	assert.Equal(t, 5, day[1].DurationMin)
	assert.Equal(t, "09:55", day[2].StartTime)
}

func TestAllocateReportsHomeworkDueBeforePlacementPossible(t *testing.T) {
	snap := testSnapshot("2025-03-03", "2025-03-10")
	snap.Prefs.Weekdays = map[string]models.TimeWindow{
		"friday": {Enabled: true, Start: "09:00", End: "18:00"},
	}
	snap.Subjects = []models.Subject{{ID: "s1", Name: "English", Mode: models.ModeNoExam}}
	snap.Homework = []models.Homework{{ID: "h1", SubjectID: "s1", Title: "Essay", DueDate: "2025-03-04", DurationMin: 60}}

	result, err := Allocate(snap, DailyAvailability(snap, 15), BuildWorkItems(snap), Config{})
	require.NoError(t, err)

	require.Len(t, result.Unplaced, 1)
	assert.Equal(t, "no free interval before due date 2025-03-04", result.Unplaced[0].Reason)
}

func TestAllocatePlacementBudgetExceeded(t *testing.T) {
	snap := testSnapshot("2025-03-03", "2025-03-03")
	snap.Subjects = []models.Subject{{ID: "s1", Name: "Maths", Mode: models.ModeLongTermExam}}
	snap.Topics = []models.Topic{
		{ID: "t1", SubjectID: "s1", Name: "Algebra", Confidence: 7},
		{ID: "t2", SubjectID: "s1", Name: "Geometry", Confidence: 7},
		{ID: "t3", SubjectID: "s1", Name: "Calculus", Confidence: 7},
	}

	_, err := Allocate(snap, DailyAvailability(snap, 15), BuildWorkItems(snap), Config{MaxPlacementsPerDay: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPlacementBudget))
}

func TestAllocateDayPlacesIntoProvidedGaps(t *testing.T) {
	snap := testSnapshot("2025-03-03", "2025-03-03")
	snap.Subjects = []models.Subject{{ID: "s1", Name: "Maths", Mode: models.ModeLongTermExam}}
	snap.Topics = []models.Topic{{ID: "t1", SubjectID: "s1", Name: "Algebra", Confidence: 7}}

	gaps := []Interval{{Start: 600, End: 700}}
	sessions, unplaced, err := AllocateDay(snap, "2025-03-03", gaps, BuildWorkItems(snap), Config{})
	require.NoError(t, err)

	require.Len(t, sessions, 1)
	assert.Equal(t, "10:00", sessions[0].StartTime)
	assert.Equal(t, 45, sessions[0].DurationMin)

	require.Len(t, unplaced, 1)
	assert.Equal(t, 1, unplaced[0].Remaining)
}

// --- Fixtures ---

// testSnapshot builds a flexible-mode snapshot with a 09:00-18:00 window on
// every weekday of the given range.
func testSnapshot(start, end string) Snapshot {
	s, _ := time.Parse(DateLayout, start)
	e, _ := time.Parse(DateLayout, end)
	return Snapshot{
		Start: s,
		End:   e,
		Mode:  models.ModeLongTermExam,
		Prefs: models.StudyPreferences{
			SchemaVersion: 2,
			DurationMode:  models.DurationFlexible,
			Weekdays:      allWeekdays("09:00", "18:00"),
		},
	}
}

func allWeekdays(start, end string) map[string]models.TimeWindow {
	days := map[string]models.TimeWindow{}
	for _, name := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
		days[name] = models.TimeWindow{Enabled: true, Start: start, End: end}
	}
	return days
}
