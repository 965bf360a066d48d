package scheduler

import "github.com/evan-hart/studyplan-api/internal/models"

// ModePolicy is the typed scheduling policy table keyed by Mode. Durations
// apply in flexible duration mode only; fixed mode always uses the
// preference's configured lengths.
type ModePolicy struct {
	StudyMinMin int // shortest flexible study session
	StudyMaxMin int // longest flexible study session, used for focus and test-linked topics
	BreakMin    int
	BreakMax    int
	RevisitDays int     // minimum gap before a topic is re-queued by the fill pass
	Intensity   float64 // priority weight contribution
}

var modePolicies = map[models.Mode]ModePolicy{
	models.ModeShortTermExam: {StudyMinMin: 60, StudyMaxMin: 90, BreakMin: 5, BreakMax: 10, RevisitDays: 2, Intensity: 3},
	models.ModeLongTermExam:  {StudyMinMin: 45, StudyMaxMin: 60, BreakMin: 10, BreakMax: 15, RevisitDays: 5, Intensity: 2},
	models.ModeNoExam:        {StudyMinMin: 30, StudyMaxMin: 45, BreakMin: 15, BreakMax: 20, RevisitDays: 7, Intensity: 1},
}

// PolicyFor returns the policy for a mode, defaulting to long-term-exam.
func PolicyFor(mode models.Mode) ModePolicy {
	if p, ok := modePolicies[mode]; ok {
		return p
	}
	return modePolicies[models.ModeLongTermExam]
}

// Repetition policy constants.
const (
	repsBaseline    = 2 // every topic is visited at least twice
	repsTestLinked  = 3 // subject has an upcoming test
	repsLowConf     = 5 // focus flag or confidence <= 4
	repsLowConfTest = 6 // low confidence and test-linked

	lowConfidenceCeiling = 4

	// testPriorityWindowDays is how close a test must be before its
	// subject's topics gain extra weight.
	testPriorityWindowDays = 14

	// homeworkSplitMin is the largest single homework piece; longer items
	// are split across multiple earlier dates.
	homeworkSplitMin = 120

	// testPrepUplift inflates needed minutes for test-linked topics in the
	// feasibility estimate.
	testPrepUplift = 1.5
)
