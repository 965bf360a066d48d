package scheduler

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/evan-hart/studyplan-api/internal/models"
)

// ErrPlacementBudget is returned when a single day exceeds the configured
// placement bound; it guarantees termination on pathological inputs.
var ErrPlacementBudget = errors.New("scheduler: placement budget exceeded")

// Config bounds one allocation run.
type Config struct {
	MinViableSessionMin int
	MaxPlacementsPerDay int
}

func (c Config) withDefaults() Config {
	if c.MinViableSessionMin <= 0 {
		c.MinViableSessionMin = 15
	}
	if c.MaxPlacementsPerDay <= 0 {
		c.MaxPlacementsPerDay = 96
	}
	return c
}

// UnplacedItem reports demand the window could not absorb.
type UnplacedItem struct {
	Kind      WorkItemKind `json:"kind"`
	SubjectID string       `json:"subject_id"`
	Name      string       `json:"name"`
	Placed    int          `json:"placed"`
	Remaining int          `json:"remaining"`
	Reason    string       `json:"reason"`
}

// Result is an allocation outcome: a full schedule plus everything that
// could not be placed. Unplaced work is reported, never silently dropped.
type Result struct {
	Schedule models.ScheduleMap `json:"schedule"`
	Unplaced []UnplacedItem     `json:"unplaced,omitempty"`
}

type itemState struct {
	WorkItem
	remaining  int
	typeIdx    int
	pieceIdx   int
	lastPlaced string
}

// Allocate walks the window chronologically, placing work items into free
// intervals in priority order. Every date in the window gets a (possibly
// empty) schedule entry.
func Allocate(snap Snapshot, avail map[string][]Interval, items []WorkItem, cfg Config) (Result, error) {
	cfg = cfg.withDefaults()
	states := newStates(items)
	schedule := make(models.ScheduleMap)

	for _, dateKey := range snap.DateKeys() {
		schedule[dateKey] = []models.Session{}
		if err := allocateInto(snap, dateKey, avail[dateKey], states, schedule, cfg); err != nil {
			return Result{}, err
		}
	}

	return Result{Schedule: schedule, Unplaced: collectUnplaced(states, snap)}, nil
}

// AllocateDay runs the same placement pass restricted to a single date,
// used by day replanning.
func AllocateDay(snap Snapshot, dateKey string, gaps []Interval, items []WorkItem, cfg Config) ([]models.Session, []UnplacedItem, error) {
	cfg = cfg.withDefaults()
	states := newStates(items)
	schedule := models.ScheduleMap{dateKey: {}}
	if err := allocateInto(snap, dateKey, gaps, states, schedule, cfg); err != nil {
		return nil, nil, err
	}
	return schedule[dateKey], collectUnplaced(states, snap), nil
}

func newStates(items []WorkItem) []*itemState {
	states := make([]*itemState, len(items))
	for i, item := range items {
		states[i] = &itemState{WorkItem: item, remaining: item.Reps}
	}
	return states
}

// allocateInto fills one day's intervals. Placement order per interval:
// highest-priority eligible item at the cursor, a break between placements,
// then the fill pass once mandatory repetitions run dry.
func allocateInto(snap Snapshot, dateKey string, intervals []Interval, states []*itemState, schedule models.ScheduleMap, cfg Config) error {
	placements := 0
	breakMin := breakDuration(snap)

	for _, iv := range intervals {
		cursor := iv.Start
		placedInInterval := 0
		for {
			if placements >= cfg.MaxPlacementsPerDay {
				return ErrPlacementBudget
			}
			lead := 0
			if placedInInterval > 0 {
				lead = breakMin
			}
			space := iv.End - cursor - lead
			if space < cfg.MinViableSessionMin {
				break
			}

			fill := false
			st, dur := pickMandatory(states, snap, dateKey, iv, space)
			if st == nil {
				st, dur = pickFill(states, snap, dateKey, iv, space, len(schedule[dateKey]) == 0)
				fill = true
			}
			if st == nil {
				break
			}

			if lead > 0 {
				schedule[dateKey] = append(schedule[dateKey], models.Session{
					ID:          uuid.NewString(),
					Date:        dateKey,
					StartTime:   FormatClock(cursor),
					DurationMin: lead,
					Type:        models.SessionBreak,
					Mode:        snap.Mode,
				})
				cursor += lead
			}

			schedule[dateKey] = append(schedule[dateKey], buildSession(st, snap, dateKey, cursor, dur, fill))
			cursor += dur
			st.lastPlaced = dateKey
			if !fill {
				st.remaining--
				if st.Kind == KindHomework {
					st.pieceIdx++
				} else {
					st.typeIdx++
				}
			}
			placedInInterval++
			placements++
		}
	}
	return nil
}

// pickMandatory selects the highest-priority item with repetitions left that
// is eligible for this date and fits the remaining space. Homework is only
// eligible strictly before its due date; nothing repeats on the same day.
func pickMandatory(states []*itemState, snap Snapshot, dateKey string, iv Interval, space int) (*itemState, int) {
	for _, st := range states {
		if st.remaining <= 0 {
			continue
		}
		if st.lastPlaced == dateKey {
			continue
		}
		if iv.HomeworkOnly && st.Kind != KindHomework {
			continue
		}
		if st.Kind == KindHomework && dateKey >= st.Due {
			continue
		}
		dur := sessionDuration(st, snap)
		if dur <= 0 || dur > space {
			continue
		}
		return st, dur
	}
	return nil, 0
}

// pickFill re-queues fully-placed topics for extra review, honoring the
// mode's minimum revisit interval. When a day would otherwise stay empty the
// interval is relaxed to the least-recently-visited topic; same-day repeats
// are never allowed.
func pickFill(states []*itemState, snap Snapshot, dateKey string, iv Interval, space int, dayEmpty bool) (*itemState, int) {
	if iv.HomeworkOnly {
		return nil, 0
	}
	revisit := PolicyFor(snap.Mode).RevisitDays

	var fallback *itemState
	fallbackAge := 0
	fallbackDur := 0
	for _, st := range states {
		if st.Kind != KindTopic || st.remaining > 0 {
			continue
		}
		if st.lastPlaced == dateKey {
			continue
		}
		dur := sessionDuration(st, snap)
		if dur <= 0 || dur > space {
			continue
		}
		age := daysBetween(st.lastPlaced, dateKey)
		if st.lastPlaced == "" || age >= revisit {
			return st, dur
		}
		if dayEmpty && age >= 1 && age > fallbackAge {
			fallback, fallbackAge, fallbackDur = st, age, dur
		}
	}
	return fallback, fallbackDur
}

// sessionDuration resolves the duration policy for the item's next session.
func sessionDuration(st *itemState, snap Snapshot) int {
	if st.Kind == KindHomework {
		if st.pieceIdx >= len(st.Pieces) {
			return 0
		}
		return st.Pieces[st.pieceIdx]
	}
	if snap.Prefs.DurationMode == models.DurationFixed {
		return snap.Prefs.SessionDuration
	}
	pol := PolicyFor(snap.Mode)
	if st.Focus || st.TestLinked {
		return pol.StudyMaxMin
	}
	return pol.StudyMinMin
}

func breakDuration(snap Snapshot) int {
	if snap.Prefs.DurationMode == models.DurationFixed {
		return snap.Prefs.BreakDuration
	}
	return PolicyFor(snap.Mode).BreakMin
}

func buildSession(st *itemState, snap Snapshot, dateKey string, start, dur int, fill bool) models.Session {
	sess := models.Session{
		ID:          uuid.NewString(),
		Date:        dateKey,
		StartTime:   FormatClock(start),
		DurationMin: dur,
		SubjectID:   st.SubjectID,
		Subject:     st.Subject,
		Topic:       st.Name,
		TestDate:    st.TestDate,
		DueDate:     st.Due,
		Mode:        snap.Mode,
	}
	switch {
	case st.Kind == KindHomework:
		sess.Type = models.SessionHomework
	case fill:
		sess.Type = models.SessionRevision
	default:
		sess.Type = st.Types[st.typeIdx%len(st.Types)]
	}
	return sess
}

// collectUnplaced turns leftover repetitions into the infeasibility report.
func collectUnplaced(states []*itemState, snap Snapshot) []UnplacedItem {
	endKey := snap.End.Format(DateLayout)
	var unplaced []UnplacedItem
	for _, st := range states {
		if st.remaining <= 0 {
			continue
		}
		reason := "insufficient availability in window"
		if st.Kind == KindHomework {
			if st.Due <= endKey {
				reason = fmt.Sprintf("no free interval before due date %s", st.Due)
			} else {
				reason = "window ends before due date work could be placed"
			}
		}
		unplaced = append(unplaced, UnplacedItem{
			Kind:      st.Kind,
			SubjectID: st.SubjectID,
			Name:      st.Name,
			Placed:    st.Reps - st.remaining,
			Remaining: st.remaining,
			Reason:    reason,
		})
	}
	return unplaced
}
