package scheduler

import (
	"fmt"
	"sort"
)

// Interval is a half-open [Start,End) range of minutes since midnight.
// HomeworkOnly intervals come from preference override windows that permit
// homework but not study sessions.
type Interval struct {
	Start        int
	End          int
	HomeworkOnly bool
}

// Duration returns the interval length in minutes.
func (iv Interval) Duration() int {
	return iv.End - iv.Start
}

// Contains reports whether [start,end) sits fully inside the interval.
func (iv Interval) Contains(start, end int) bool {
	return start >= iv.Start && end <= iv.End
}

// Overlaps reports whether [start,end) intersects the interval.
func (iv Interval) Overlaps(start, end int) bool {
	return start < iv.End && end > iv.Start
}

// Subtract removes the block from each interval, yielding zero or more
// remainders. Flags on the source intervals are preserved.
func Subtract(ivs []Interval, block Interval) []Interval {
	var out []Interval
	for _, iv := range ivs {
		if !iv.Overlaps(block.Start, block.End) {
			out = append(out, iv)
			continue
		}
		if block.Start > iv.Start {
			out = append(out, Interval{Start: iv.Start, End: block.Start, HomeworkOnly: iv.HomeworkOnly})
		}
		if block.End < iv.End {
			out = append(out, Interval{Start: block.End, End: iv.End, HomeworkOnly: iv.HomeworkOnly})
		}
	}
	return out
}

// SubtractAll removes every block in turn.
func SubtractAll(ivs []Interval, blocks []Interval) []Interval {
	for _, b := range blocks {
		ivs = Subtract(ivs, b)
	}
	return ivs
}

// Intersect clips the interval to [start,end), returning false when empty.
func (iv Interval) Intersect(start, end int) (Interval, bool) {
	s, e := iv.Start, iv.End
	if s < start {
		s = start
	}
	if e > end {
		e = end
	}
	if s >= e {
		return Interval{}, false
	}
	return Interval{Start: s, End: e, HomeworkOnly: iv.HomeworkOnly}, true
}

// sortIntervals orders intervals by start time in place.
func sortIntervals(ivs []Interval) {
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].Start < ivs[j].Start })
}

// ParseClock converts "15:04" to minutes since midnight.
func ParseClock(clock string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(clock, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q", clock)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || h*60+m > 24*60 {
		return 0, fmt.Errorf("clock value %q out of range", clock)
	}
	return h*60 + m, nil
}

// FormatClock converts minutes since midnight to "15:04".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
