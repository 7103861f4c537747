package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
)

func rankerWorker(id int64, reliability float64) *domain.Worker {
	return &domain.Worker{
		ID:                  id,
		ReliabilityScore:    &reliability,
		PreferredCategories: []string{"餐饮服务"},
	}
}

func TestRanker_OrdersByScoreDescending(t *testing.T) {
	sc := &ShiftContext{Shift: testShift()}
	candidates := []*Candidate{
		{Worker: rankerWorker(1, 40), DistanceMiles: 3},
		{Worker: rankerWorker(2, 90), DistanceMiles: 3},
		{Worker: rankerWorker(3, 70), DistanceMiles: 3},
	}

	ranker := NewRanker(sc, candidates)
	ranked := ranker.Ranked()

	require.Len(t, ranked, 3)
	assert.Equal(t, int64(2), ranked[0].Worker.ID)
	assert.Equal(t, int64(3), ranked[1].Worker.ID)
	assert.Equal(t, int64(1), ranked[2].Worker.ID)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
}

// 评分相同时按工人 ID 升序打破平局，保证排序结果确定
func TestRanker_TieBreakByWorkerID(t *testing.T) {
	sc := &ShiftContext{Shift: testShift()}
	candidates := []*Candidate{
		{Worker: rankerWorker(7, 80), DistanceMiles: 3},
		{Worker: rankerWorker(2, 80), DistanceMiles: 3},
		{Worker: rankerWorker(5, 80), DistanceMiles: 3},
	}

	ranker := NewRanker(sc, candidates)
	ranked := ranker.Ranked()

	require.Len(t, ranked, 3)
	assert.Equal(t, int64(2), ranked[0].Worker.ID)
	assert.Equal(t, int64(5), ranked[1].Worker.ID)
	assert.Equal(t, int64(7), ranked[2].Worker.ID)
}

func TestRanker_NextBestSkipsExcluded(t *testing.T) {
	sc := &ShiftContext{Shift: testShift()}
	candidates := []*Candidate{
		{Worker: rankerWorker(1, 90), DistanceMiles: 3},
		{Worker: rankerWorker(2, 70), DistanceMiles: 3},
	}

	ranker := NewRanker(sc, candidates)

	best, rank := ranker.NextBest(nil)
	require.NotNil(t, best)
	assert.Equal(t, int64(1), best.Worker.ID)
	assert.Equal(t, int32(1), rank)

	next, rank := ranker.NextBest(map[int64]bool{1: true})
	require.NotNil(t, next)
	assert.Equal(t, int64(2), next.Worker.ID)
	assert.Equal(t, int32(2), rank)
}

// 候选人耗尽是正常的"招募暂停"条件，返回 nil 而不是错误
func TestRanker_NextBestExhausted(t *testing.T) {
	sc := &ShiftContext{Shift: testShift()}
	ranker := NewRanker(sc, []*Candidate{
		{Worker: rankerWorker(1, 90), DistanceMiles: 3},
	})

	best, rank := ranker.NextBest(map[int64]bool{1: true})
	assert.Nil(t, best)
	assert.Equal(t, int32(0), rank)
}
