package pricefeed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPartitionThirtyDaySpan(t *testing.T) {
	ivl := Interval{Start: day(2023, 1, 1), End: day(2023, 3, 5)}

	parts := Partition(ivl, 30)

	require.Len(t, parts, 3)
	assert.Equal(t, Interval{Start: day(2023, 1, 1), End: day(2023, 1, 30)}, parts[0])
	assert.Equal(t, Interval{Start: day(2023, 1, 31), End: day(2023, 3, 1)}, parts[1])
	assert.Equal(t, Interval{Start: day(2023, 3, 2), End: day(2023, 3, 5)}, parts[2])
}

func TestPartitionLeapFebruary(t *testing.T) {
	ivl := Interval{Start: day(2024, 1, 1), End: day(2024, 3, 5)}

	parts := Partition(ivl, 30)

	require.Len(t, parts, 3)
	assert.Equal(t, Interval{Start: day(2024, 1, 1), End: day(2024, 1, 30)}, parts[0])
	assert.Equal(t, Interval{Start: day(2024, 1, 31), End: day(2024, 2, 29)}, parts[1])
	assert.Equal(t, Interval{Start: day(2024, 3, 1), End: day(2024, 3, 5)}, parts[2])
}

func TestPartitionReconstructsInterval(t *testing.T) {
	cases := []struct {
		name    string
		ivl     Interval
		maxDays int
	}{
		{"even split", Interval{day(2024, 1, 1), day(2024, 2, 29)}, 10},
		{"ragged tail", Interval{day(2023, 6, 15), day(2023, 9, 2)}, 7},
		{"span of one", Interval{day(2024, 5, 1), day(2024, 5, 9)}, 1},
		{"span wider than range", Interval{day(2024, 5, 1), day(2024, 5, 3)}, 365},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parts := Partition(tc.ivl, tc.maxDays)
			require.NotEmpty(t, parts)

			// ceil(length / span)
			want := (tc.ivl.Days() + tc.maxDays - 1) / tc.maxDays
			assert.Len(t, parts, want)

			assert.Equal(t, tc.ivl.Start, parts[0].Start)
			assert.Equal(t, tc.ivl.End, parts[len(parts)-1].End)
			for i, p := range parts {
				assert.False(t, p.Start.After(p.End), "part %d inverted", i)
				assert.LessOrEqual(t, p.Days(), tc.maxDays, "part %d too wide", i)
				if i > 0 {
					// gap-free, non-overlapping: each part starts the day after the previous ends
					assert.Equal(t, parts[i-1].End.AddDate(0, 0, 1), p.Start, "part %d not contiguous", i)
				}
			}
		})
	}
}

func TestPartitionUnbounded(t *testing.T) {
	ivl := Interval{Start: day(2020, 1, 1), End: day(2024, 12, 31)}

	parts := Partition(ivl, 0)

	require.Len(t, parts, 1)
	assert.Equal(t, ivl, parts[0])
}

func TestPartitionStartAfterEnd(t *testing.T) {
	ivl := Interval{Start: day(2024, 3, 5), End: day(2024, 1, 1)}

	assert.Empty(t, Partition(ivl, 30))
	assert.Empty(t, Partition(ivl, 0))
}

func TestPartitionSingleDay(t *testing.T) {
	ivl := Interval{Start: day(2024, 7, 4), End: day(2024, 7, 4)}

	parts := Partition(ivl, 30)

	require.Len(t, parts, 1)
	assert.Equal(t, ivl, parts[0])
}

func TestIntervalDays(t *testing.T) {
	assert.Equal(t, 1, Interval{day(2024, 1, 1), day(2024, 1, 1)}.Days())
	assert.Equal(t, 31, Interval{day(2024, 1, 1), day(2024, 1, 31)}.Days())
	assert.Equal(t, 60, Interval{day(2024, 1, 1), day(2024, 2, 29)}.Days())
	assert.Equal(t, 0, Interval{day(2024, 1, 2), day(2024, 1, 1)}.Days())
}

func TestNewIntervalTruncatesToDate(t *testing.T) {
	start := time.Date(2024, 1, 1, 13, 45, 12, 0, time.UTC)
	end := time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC)

	ivl := NewInterval(start, end)

	assert.Equal(t, day(2024, 1, 1), ivl.Start)
	assert.Equal(t, day(2024, 1, 2), ivl.End)
	assert.Equal(t, "2024-01-01..2024-01-02", ivl.String())
}
