package scheduler

import (
	"sort"

	"github.com/evan-hart/studyplan-api/internal/models"
)

// WorkItemKind distinguishes topic session sets from homework.
type WorkItemKind string

const (
	KindTopic    WorkItemKind = "topic"
	KindHomework WorkItemKind = "homework"
)

// WorkItem is one normalized unit of demand: a topic's repetition set or a
// homework assignment (possibly pre-split into pieces).
type WorkItem struct {
	Kind       WorkItemKind
	SubjectID  string
	Subject    string
	TopicID    string
	Name       string
	Due        string // homework hard deadline (date key); empty for topics
	Pieces     []int  // homework piece durations in minutes
	Reps       int
	Priority   float64
	Focus      bool
	Confidence int
	TestLinked bool
	TestDate   string
	Types      []models.SessionType // session type cycle across repetitions
	Seq        int                  // input order, breaks priority ties
}

// BuildWorkItems normalizes the snapshot's topics and homework into a
// priority-sorted flat work list.
func BuildWorkItems(snap Snapshot) []WorkItem {
	subjects := snap.SubjectByID()
	tests := snap.nearestTest()
	startKey := snap.Start.Format(DateLayout)

	items := make([]WorkItem, 0, len(snap.Topics)+len(snap.Homework))
	firstTopicSeen := make(map[string]bool, len(snap.Subjects))

	for _, topic := range snap.Topics {
		subject, ok := subjects[topic.SubjectID]
		if !ok {
			continue
		}
		item := WorkItem{
			Kind:       KindTopic,
			SubjectID:  subject.ID,
			Subject:    subject.Name,
			TopicID:    topic.ID,
			Name:       topic.Name,
			Focus:      topic.Focus,
			Confidence: topic.Confidence,
			Seq:        len(items),
		}
		if test, ok := tests[subject.ID]; ok {
			item.TestLinked = true
			item.TestDate = test.Date
		}
		item.Reps = topicRepetitions(item)
		if firstTopicSeen[subject.ID] {
			item.Types = []models.SessionType{models.SessionPractice, models.SessionExamQuestions}
		} else {
			item.Types = []models.SessionType{models.SessionRevision, models.SessionExamQuestions}
			firstTopicSeen[subject.ID] = true
		}
		item.Priority = topicPriority(item, subject.Mode, startKey)
		items = append(items, item)
	}

	for _, hw := range snap.Homework {
		subject := subjects[hw.SubjectID]
		pieces := splitHomework(hw.DurationMin)
		items = append(items, WorkItem{
			Kind:      KindHomework,
			SubjectID: hw.SubjectID,
			Subject:   subject.Name,
			Name:      hw.Title,
			Due:       hw.DueDate,
			Pieces:    pieces,
			Reps:      len(pieces),
			Priority:  homeworkPriority(hw, startKey),
			Types:     []models.SessionType{models.SessionHomework},
			Seq:       len(items),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority == items[j].Priority {
			return items[i].Seq < items[j].Seq
		}
		return items[i].Priority > items[j].Priority
	})
	return items
}

// topicRepetitions applies the repetition count policy.
func topicRepetitions(item WorkItem) int {
	lowConf := item.Focus || (item.Confidence > 0 && item.Confidence <= lowConfidenceCeiling)
	switch {
	case lowConf && item.TestLinked:
		return repsLowConfTest
	case lowConf:
		return repsLowConf
	case item.TestLinked:
		return repsTestLinked
	default:
		return repsBaseline
	}
}

// topicPriority is a weighted sum of test closeness, focus, confidence gap
// and subject mode intensity.
func topicPriority(item WorkItem, subjectMode models.Mode, startKey string) float64 {
	p := PolicyFor(subjectMode).Intensity * 10
	if item.TestLinked {
		days := daysBetween(startKey, item.TestDate)
		if days < 0 {
			days = 0
		}
		if remaining := testPriorityWindowDays - days; remaining > 0 {
			p += float64(remaining) * 3
		}
	}
	if item.Focus {
		p += 12
	}
	if item.Confidence > 0 {
		p += float64(10 - item.Confidence)
	}
	return p
}

// homeworkPriority weights due-date closeness; homework generally outranks
// topic coverage.
func homeworkPriority(hw models.Homework, startKey string) float64 {
	p := 40.0
	days := daysBetween(startKey, hw.DueDate)
	if days < 0 {
		days = 0
	}
	if remaining := 21 - days; remaining > 0 {
		p += float64(remaining) * 2
	}
	return p
}

// splitHomework breaks long assignments into near-even pieces no longer than
// homeworkSplitMin, each to be scheduled on its own earlier date.
func splitHomework(durationMin int) []int {
	if durationMin <= 0 {
		return nil
	}
	if durationMin <= homeworkSplitMin {
		return []int{durationMin}
	}
	n := (durationMin + homeworkSplitMin - 1) / homeworkSplitMin
	base := durationMin / n
	rem := durationMin % n
	pieces := make([]int, n)
	for i := range pieces {
		pieces[i] = base
		if i < rem {
			pieces[i]++
		}
	}
	return pieces
}
