package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evan-hart/studyplan-api/internal/models"
)

func TestBuildWorkItemsRepetitionPolicy(t *testing.T) {
	cases := []struct {
		name     string
		topic    models.Topic
		testDate string
		reps     int
	}{
		{name: "baseline", topic: models.Topic{ID: "t1", SubjectID: "s1", Name: "A", Confidence: 7}, reps: 2},
		{name: "test linked", topic: models.Topic{ID: "t1", SubjectID: "s1", Name: "A", Confidence: 7}, testDate: "2025-03-10", reps: 3},
		{name: "low confidence", topic: models.Topic{ID: "t1", SubjectID: "s1", Name: "A", Confidence: 4}, reps: 5},
		{name: "focus flag", topic: models.Topic{ID: "t1", SubjectID: "s1", Name: "A", Confidence: 9, Focus: true}, reps: 5},
		{name: "low confidence with test", topic: models.Topic{ID: "t1", SubjectID: "s1", Name: "A", Confidence: 3}, testDate: "2025-03-10", reps: 6},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := testSnapshot("2025-03-03", "2025-03-09")
			snap.Subjects = []models.Subject{{ID: "s1", Name: "Maths", Mode: models.ModeLongTermExam}}
			snap.Topics = []models.Topic{tc.topic}
			if tc.testDate != "" {
				snap.TestDates = []models.TestDate{{SubjectID: "s1", Date: tc.testDate}}
			}

			items := BuildWorkItems(snap)
			require.Len(t, items, 1)
			assert.Equal(t, tc.reps, items[0].Reps)
		})
	}
}

func TestBuildWorkItemsSessionTypeCycles(t *testing.T) {
	snap := testSnapshot("2025-03-03", "2025-03-09")
	snap.Subjects = []models.Subject{{ID: "s1", Name: "Maths", Mode: models.ModeLongTermExam}}
	snap.Topics = []models.Topic{
		{ID: "t1", SubjectID: "s1", Name: "Algebra", Confidence: 7},
		{ID: "t2", SubjectID: "s1", Name: "Geometry", Confidence: 7},
	}

	items := BuildWorkItems(snap)
	require.Len(t, items, 2)
	assert.Equal(t, []models.SessionType{models.SessionRevision, models.SessionExamQuestions}, items[0].Types)
	assert.Equal(t, []models.SessionType{models.SessionPractice, models.SessionExamQuestions}, items[1].Types)
}

func TestBuildWorkItemsPriorityOrdering(t *testing.T) {
	snap := testSnapshot("2025-03-03", "2025-03-09")
	snap.Subjects = []models.Subject{
		{ID: "s1", Name: "Maths", Mode: models.ModeLongTermExam},
		{ID: "s2", Name: "English", Mode: models.ModeLongTermExam},
	}
	snap.Topics = []models.Topic{
		{ID: "t1", SubjectID: "s2", Name: "Poetry"},
		{ID: "t2", SubjectID: "s1", Name: "Algebra"},
	}
	snap.TestDates = []models.TestDate{{SubjectID: "s1", Date: "2025-03-10"}}
	snap.Homework = []models.Homework{{ID: "h1", SubjectID: "s2", Title: "Essay", DueDate: "2025-03-05", DurationMin: 60}}

	items := BuildWorkItems(snap)
	require.Len(t, items, 3)
	assert.Equal(t, KindHomework, items[0].Kind)
	assert.Equal(t, "Algebra", items[1].Name, "test-linked topic outranks plain topic")
	assert.Equal(t, "Poetry", items[2].Name)
}

func TestBuildWorkItemsStableOrderOnEqualPriority(t *testing.T) {
	snap := testSnapshot("2025-03-03", "2025-03-09")
	snap.Subjects = []models.Subject{{ID: "s1", Name: "Maths", Mode: models.ModeLongTermExam}}
	snap.Topics = []models.Topic{
		{ID: "t1", SubjectID: "s1", Name: "Algebra", Confidence: 7},
		{ID: "t2", SubjectID: "s1", Name: "Geometry", Confidence: 7},
		{ID: "t3", SubjectID: "s1", Name: "Calculus", Confidence: 7},
	}

	items := BuildWorkItems(snap)
	require.Len(t, items, 3)
	// Same priority except the first-topic inclusion has no weight effect;
	// input order must be preserved.
	assert.Equal(t, "Algebra", items[0].Name)
	assert.Equal(t, "Geometry", items[1].Name)
	assert.Equal(t, "Calculus", items[2].Name)
}

func TestBuildWorkItemsSkipsTopicsWithUnknownSubject(t *testing.T) {
	snap := testSnapshot("2025-03-03", "2025-03-09")
	snap.Subjects = []models.Subject{{ID: "s1", Name: "Maths", Mode: models.ModeLongTermExam}}
	snap.Topics = []models.Topic{
		{ID: "t1", SubjectID: "s1", Name: "Algebra"},
		{ID: "t2", SubjectID: "ghost", Name: "Orphan"},
	}

	items := BuildWorkItems(snap)
	require.Len(t, items, 1)
	assert.Equal(t, "Algebra", items[0].Name)
}

func TestSplitHomework(t *testing.T) {
	assert.Nil(t, splitHomework(0))
	assert.Equal(t, []int{45}, splitHomework(45))
	assert.Equal(t, []int{120}, splitHomework(120))
	assert.Equal(t, []int{61, 60}, splitHomework(121))
	assert.Equal(t, []int{100, 100, 100}, splitHomework(300))
	assert.Equal(t, []int{84, 83, 83}, splitHomework(250))
}

func TestTopicPriorityWeighting(t *testing.T) {
	// Base intensity for long-term-exam mode is 2.
	plain := WorkItem{Confidence: 7}
	assert.InDelta(t, 23, topicPriority(plain, models.ModeLongTermExam, "2025-03-03"), 0.001)

	focused := WorkItem{Confidence: 7, Focus: true}
	assert.InDelta(t, 35, topicPriority(focused, models.ModeLongTermExam, "2025-03-03"), 0.001)

	tested := WorkItem{Confidence: 7, TestLinked: true, TestDate: "2025-03-10"}
	assert.InDelta(t, 44, topicPriority(tested, models.ModeLongTermExam, "2025-03-03"), 0.001)

	farTest := WorkItem{Confidence: 7, TestLinked: true, TestDate: "2025-04-20"}
	assert.InDelta(t, 23, topicPriority(farTest, models.ModeLongTermExam, "2025-03-03"), 0.001,
		"tests beyond the priority window add no weight")
}
