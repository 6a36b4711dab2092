/**
 * @description
 * Closed date intervals at day granularity and the partitioning used to
 * honor per-source maximum query spans.
 */

package pricefeed

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Interval is a closed date range [Start, End]. Both bounds are dates at
// midnight UTC; the interval includes both.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds an interval from two timestamps, truncated to their
// UTC calendar dates.
func NewInterval(start, end time.Time) Interval {
	return Interval{Start: DateOf(start), End: DateOf(end)}
}

// DateOf truncates a timestamp to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Days returns the inclusive day count; 0 when Start is after End.
func (i Interval) Days() int {
	if i.Start.After(i.End) {
		return 0
	}
	return int(i.End.Sub(i.Start).Hours()/24) + 1
}

func (i Interval) String() string {
	return fmt.Sprintf("%s..%s", i.Start.Format(dateLayout), i.End.Format(dateLayout))
}

// Partition splits ivl into a chronological, non-overlapping, gap-free
// sequence of closed sub-intervals of at most maxDays days each. The
// concatenation reconstructs ivl exactly. maxDays <= 0 means the source has
// no span limit and the result is the input itself. Start after End yields
// an empty sequence.
func Partition(ivl Interval, maxDays int) []Interval {
	if ivl.Start.After(ivl.End) {
		return nil
	}
	if maxDays <= 0 {
		return []Interval{ivl}
	}

	var parts []Interval
	start := ivl.Start
	for !start.After(ivl.End) {
		end := start.AddDate(0, 0, maxDays-1)
		if end.After(ivl.End) {
			end = ivl.End
		}
		parts = append(parts, Interval{Start: start, End: end})
		start = end.AddDate(0, 0, 1)
	}
	return parts
}
