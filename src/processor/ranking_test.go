package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(bs []Bucket) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Key
	}
	return out
}

func TestRank_ThresholdExcludesSmallGroups(t *testing.T) {
	r := Rank([]Bucket{
		{Key: "A", Total: 2, Delayed: 1},
		{Key: "B", Total: 50, Delayed: 10},
	}, 10)

	leader, ok := r.Leader()
	require.True(t, ok)
	assert.Equal(t, "B", leader.Key)
	assert.Equal(t, MetricRate, r.Metric)
	assert.Equal(t, []string{"B"}, keys(r.Buckets))
	assert.Equal(t, []string{"A", "B"}, keys(r.All))
	assert.InDelta(t, 0.2, r.Value(leader), 1e-9)
}

func TestRank_FallbackToCount(t *testing.T) {
	r := Rank([]Bucket{
		{Key: "A", Total: 3, Delayed: 1},
		{Key: "B", Total: 4, Delayed: 3},
		{Key: "C", Total: 2, Delayed: 1},
	}, 20)

	assert.Equal(t, MetricCount, r.Metric)
	assert.Equal(t, 20, r.Threshold)
	assert.Equal(t, []string{"B", "A", "C"}, keys(r.Buckets))
	assert.Equal(t, 3.0, r.Value(r.Buckets[0]))
}

func TestRank_TieBreaks(t *testing.T) {
	r := Rank([]Bucket{
		{Key: "Z", Total: 10, Delayed: 5},
		{Key: "Y", Total: 20, Delayed: 10},
		{Key: "X", Total: 20, Delayed: 10},
		{Key: "W", Total: 0},
	}, 1)

	assert.Equal(t, []string{"X", "Y", "Z"}, keys(r.Buckets))
	assert.Len(t, r.All, 3)
}

func TestRank_Empty(t *testing.T) {
	r := Rank(nil, 20)
	assert.True(t, r.Empty())
	_, ok := r.Leader()
	assert.False(t, ok)
	assert.Empty(t, r.Top(5))
}

func TestRanking_TopAndInOrder(t *testing.T) {
	r := RankByCount([]Bucket{
		{Key: "Seg", Total: 5, Delayed: 1},
		{Key: "Sex", Total: 5, Delayed: 4},
		{Key: "Dom", Total: 5, Delayed: 2},
	})
	assert.Equal(t, []string{"Sex", "Dom"}, keys(r.Top(2)))
	assert.Len(t, r.Top(0), 3)
	assert.Len(t, r.Top(10), 3)

	ordered := r.InOrder(WeekdayLabels)
	require.Len(t, ordered, 7)
	assert.Equal(t, "Seg", ordered[0].Key)
	assert.Equal(t, 1, ordered[0].Delayed)
	assert.Equal(t, Bucket{Key: "Ter"}, ordered[1])
	assert.Equal(t, 2, ordered[6].Delayed)
}

func TestBucketRate(t *testing.T) {
	assert.Equal(t, 0.0, Bucket{}.Rate())
	assert.Equal(t, 0.25, Bucket{Total: 4, Delayed: 1}.Rate())
}
