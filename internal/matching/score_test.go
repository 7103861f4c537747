package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
)

func floatPtr(v float64) *float64 {
	return &v
}

func testShift() *domain.Shift {
	return &domain.Shift{
		ID:          1,
		JobCategory: "餐饮服务",
	}
}

// 各分项都拿满分的工人应该恰好得到 110 分
func TestScore_PerfectWorkerHitsCeiling(t *testing.T) {
	worker := &domain.Worker{
		ID:                     1,
		ReliabilityScore:       floatPtr(100),
		AverageRating:          floatPtr(5),
		AverageResponseMinutes: floatPtr(1),
		CompletedShiftsCount:   40,
		PreferredCategories:    []string{"餐饮服务"},
		WorkedCategories:       []string{"餐饮服务"},
	}

	total, breakdown := Score(worker, testShift(), 3)

	assert.Equal(t, float64(110), total)
	assert.Equal(t, float64(30), breakdown.Distance)
	assert.Equal(t, float64(25), breakdown.Reliability)
	assert.Equal(t, float64(20), breakdown.Affinity)
	assert.Equal(t, float64(15), breakdown.Rating)
	assert.Equal(t, float64(10), breakdown.ResponseTime)
	assert.Equal(t, float64(10), breakdown.Experience)
}

// 评分是输入的纯函数，同样的输入必须得到同样的结果
func TestScore_Deterministic(t *testing.T) {
	worker := &domain.Worker{
		ID:                     2,
		ReliabilityScore:       floatPtr(80),
		AverageRating:          floatPtr(4.2),
		AverageResponseMinutes: floatPtr(12),
		CompletedShiftsCount:   7,
		PreferredCategories:    []string{"餐饮服务"},
	}

	total1, breakdown1 := Score(worker, testShift(), 8.5)
	total2, breakdown2 := Score(worker, testShift(), 8.5)

	assert.Equal(t, total1, total2)
	assert.Equal(t, breakdown1, breakdown2)
}

// 距离档位以 5 英里为一档递减
func TestScore_DistanceTiers(t *testing.T) {
	tests := []struct {
		miles    float64
		expected float64
	}{
		{3, 30},
		{5, 30},
		{7, 25},
		{10, 25},
		{12, 20},
		{18, 15},
		{24, 10},
	}

	worker := &domain.Worker{ID: 3, PreferredCategories: []string{"餐饮服务"}}
	for _, tt := range tests {
		_, breakdown := Score(worker, testShift(), tt.miles)
		assert.Equal(t, tt.expected, breakdown.Distance, "距离 %.1f 英里", tt.miles)
	}
}

// 没有历史数据的新工人：可靠度和响应速度不得分，评价给中性的 10 分
func TestScore_NewWorkerDefaults(t *testing.T) {
	worker := &domain.Worker{
		ID:                  4,
		PreferredCategories: []string{"餐饮服务"},
	}

	total, breakdown := Score(worker, testShift(), 3)

	assert.Equal(t, float64(0), breakdown.Reliability)
	assert.Equal(t, float64(10), breakdown.Rating)
	assert.Equal(t, float64(0), breakdown.ResponseTime)
	assert.Equal(t, float64(0), breakdown.Experience)
	assert.Equal(t, float64(10), breakdown.Affinity) // 仅倾向，没有完成记录
	assert.Equal(t, float64(50), total)
}

// 响应速度按历史平均响应时长分档
func TestScore_ResponseTimeTiers(t *testing.T) {
	tests := []struct {
		minutes  float64
		expected float64
	}{
		{4, 10},
		{5, 8},
		{15, 8},
		{16, 5},
		{30, 5},
		{31, 2},
	}

	for _, tt := range tests {
		worker := &domain.Worker{
			ID:                     5,
			AverageResponseMinutes: floatPtr(tt.minutes),
			PreferredCategories:    []string{"餐饮服务"},
		}
		_, breakdown := Score(worker, testShift(), 3)
		assert.Equal(t, tt.expected, breakdown.ResponseTime, "平均响应 %.0f 分钟", tt.minutes)
	}
}

// 经验分每完成一单 0.5 分，封顶 10 分
func TestScore_ExperienceCap(t *testing.T) {
	worker := &domain.Worker{ID: 6, PreferredCategories: []string{"餐饮服务"}}

	worker.CompletedShiftsCount = 7
	_, breakdown := Score(worker, testShift(), 3)
	assert.Equal(t, 3.5, breakdown.Experience)

	worker.CompletedShiftsCount = 30
	_, breakdown = Score(worker, testShift(), 3)
	assert.Equal(t, float64(10), breakdown.Experience)
}
