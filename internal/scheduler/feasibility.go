package scheduler

import "fmt"

// Load classifications by utilization (needed/available).
const (
	LoadManageable   = "manageable"
	LoadBusy         = "busy"
	LoadOverwhelming = "overwhelming"

	busyThreshold         = 0.85
	overwhelmingThreshold = 1.10
)

// WeekLoad is one week's slice of the feasibility breakdown.
type WeekLoad struct {
	StartDate      string  `json:"start_date"`
	NeededMin      int     `json:"needed_min"`
	AvailableMin   int     `json:"available_min"`
	Utilization    float64 `json:"utilization"`
	Classification string  `json:"classification"`
}

// FeasibilityReport compares required against available study time for a
// window without running the allocator.
type FeasibilityReport struct {
	NeededMin      int        `json:"needed_min"`
	AvailableMin   int        `json:"available_min"`
	Utilization    float64    `json:"utilization"`
	Classification string     `json:"classification"`
	Weeks          []WeekLoad `json:"weeks"`
	Recommendation string     `json:"recommendation"`
}

// EstimateFeasibility is a pure function of the snapshot: needed minutes
// (topic baseline x repetitions with the test-prep uplift, plus homework)
// against the window's free minutes, bucketed per week.
func EstimateFeasibility(snap Snapshot, minViable int) FeasibilityReport {
	items := BuildWorkItems(snap)
	needed := 0
	for _, item := range items {
		switch item.Kind {
		case KindHomework:
			for _, piece := range item.Pieces {
				needed += piece
			}
		default:
			st := itemState{WorkItem: item}
			minutes := sessionDuration(&st, snap) * item.Reps
			if item.TestLinked {
				minutes = int(float64(minutes) * testPrepUplift)
			}
			needed += minutes
		}
	}

	avail := DailyAvailability(snap, minViable)
	available := 0
	for _, intervals := range avail {
		for _, iv := range intervals {
			available += iv.Duration()
		}
	}

	report := FeasibilityReport{
		NeededMin:    needed,
		AvailableMin: available,
		Utilization:  utilization(needed, available),
		Weeks:        weekLoads(snap, avail, needed),
	}
	report.Classification = classify(report.Utilization)
	report.Recommendation = recommend(report)
	return report
}

// weekLoads buckets the window into 7-day chunks from the start date,
// spreading needed minutes proportionally to each chunk's share of days.
func weekLoads(snap Snapshot, avail map[string][]Interval, needed int) []WeekLoad {
	keys := snap.DateKeys()
	if len(keys) == 0 {
		return nil
	}
	var weeks []WeekLoad
	for i := 0; i < len(keys); i += 7 {
		end := i + 7
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[i:end]
		weekAvail := 0
		for _, key := range chunk {
			for _, iv := range avail[key] {
				weekAvail += iv.Duration()
			}
		}
		weekNeeded := needed * len(chunk) / len(keys)
		util := utilization(weekNeeded, weekAvail)
		weeks = append(weeks, WeekLoad{
			StartDate:      chunk[0],
			NeededMin:      weekNeeded,
			AvailableMin:   weekAvail,
			Utilization:    util,
			Classification: classify(util),
		})
	}
	return weeks
}

func utilization(needed, available int) float64 {
	if available <= 0 {
		if needed == 0 {
			return 0
		}
		return 9.99
	}
	return float64(needed) / float64(available)
}

func classify(util float64) string {
	switch {
	case util < busyThreshold:
		return LoadManageable
	case util <= overwhelmingThreshold:
		return LoadBusy
	default:
		return LoadOverwhelming
	}
}

func recommend(r FeasibilityReport) string {
	switch r.Classification {
	case LoadManageable:
		return fmt.Sprintf("plan fits comfortably: %s needed of %s available", formatHours(r.NeededMin), formatHours(r.AvailableMin))
	case LoadBusy:
		return fmt.Sprintf("plan is tight at %.0f%% utilization; protect your study windows", r.Utilization*100)
	default:
		return fmt.Sprintf("plan needs %s but only %s is available; extend the window or trim topics", formatHours(r.NeededMin), formatHours(r.AvailableMin))
	}
}

func formatHours(minutes int) string {
	return fmt.Sprintf("%.1fh", float64(minutes)/60)
}
