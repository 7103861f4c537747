package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
)

const (
	filterShiftLatitude  = 31.0
	filterShiftLongitude = 121.0
)

// 2026-08-31 是周一，ISO 星期值为 1
var mondayMorning = time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

func filterShift() *domain.Shift {
	return &domain.Shift{
		ID:             1,
		OrganizationID: 1,
		JobCategory:    "餐饮服务",
		Latitude:       filterShiftLatitude,
		Longitude:      filterShiftLongitude,
		StartTime:      mondayMorning,
		EndTime:        mondayMorning.Add(4 * time.Hour),
		Status:         domain.ShiftStatusRecruiting,
		SlotsTotal:     1,
	}
}

func eligibleWorker(id int64) *domain.Worker {
	lat := filterShiftLatitude
	lon := filterShiftLongitude
	return &domain.Worker{
		ID:                  id,
		IsActive:            true,
		Onboarded:           true,
		Latitude:            &lat,
		Longitude:           &lon,
		PreferredCategories: []string{"餐饮服务"},
		AvailabilityWindows: []domain.AvailabilityWindow{
			{DayOfWeek: 1, StartTime: "08:00:00", EndTime: "18:00:00"},
		},
	}
}

func runFilter(workers []*domain.Worker, blocked, assigned map[int64]bool) []*Candidate {
	sc := &ShiftContext{
		Shift:             filterShift(),
		Workers:           workers,
		BlockedWorkerIDs:  blocked,
		AssignedWorkerIDs: assigned,
	}
	return NewFilter(25).EligibleCandidates(sc)
}

func TestEligibleCandidates_PassesQualifiedWorker(t *testing.T) {
	candidates := runFilter([]*domain.Worker{eligibleWorker(1)}, nil, nil)

	require.Len(t, candidates, 1)
	assert.Equal(t, int64(1), candidates[0].Worker.ID)
	assert.InDelta(t, 0, candidates[0].DistanceMiles, 0.01)
}

// 每个硬性条件不满足时工人都会被直接排除
func TestEligibleCandidates_ExclusionRules(t *testing.T) {
	inactive := eligibleWorker(2)
	inactive.IsActive = false

	notOnboarded := eligibleWorker(3)
	notOnboarded.Onboarded = false

	noLocation := eligibleWorker(4)
	noLocation.Latitude = nil
	noLocation.Longitude = nil

	wrongCategory := eligibleWorker(5)
	wrongCategory.PreferredCategories = []string{"仓储分拣"}

	wrongDay := eligibleWorker(6)
	wrongDay.AvailabilityWindows = []domain.AvailabilityWindow{
		{DayOfWeek: 2, StartTime: "08:00:00", EndTime: "18:00:00"},
	}

	windowTooLate := eligibleWorker(7)
	windowTooLate.AvailabilityWindows = []domain.AvailabilityWindow{
		{DayOfWeek: 1, StartTime: "12:00:00", EndTime: "18:00:00"},
	}

	blocked := eligibleWorker(8)
	assigned := eligibleWorker(9)

	workers := []*domain.Worker{
		eligibleWorker(1),
		inactive, notOnboarded, noLocation,
		wrongCategory, wrongDay, windowTooLate,
		blocked, assigned,
	}

	candidates := runFilter(workers,
		map[int64]bool{8: true},
		map[int64]bool{9: true},
	)

	require.Len(t, candidates, 1)
	assert.Equal(t, int64(1), candidates[0].Worker.ID)
}

// 25 英里是硬性边界：边界内保留，边界外排除
func TestEligibleCandidates_RadiusBoundary(t *testing.T) {
	// 纬度一度约 69.09 英里
	within := eligibleWorker(10)
	lat := filterShiftLatitude + 0.3600 // 约 24.9 英里
	within.Latitude = &lat

	beyond := eligibleWorker(11)
	farLat := filterShiftLatitude + 0.3650 // 约 25.2 英里
	beyond.Latitude = &farLat

	candidates := runFilter([]*domain.Worker{within, beyond}, nil, nil)

	require.Len(t, candidates, 1)
	assert.Equal(t, int64(10), candidates[0].Worker.ID)
	assert.Less(t, candidates[0].DistanceMiles, 25.0)
}

// 时间段只需要覆盖班次的开始时刻，不要求覆盖整个班次时长
func TestEligibleCandidates_WindowCoversStartOnly(t *testing.T) {
	worker := eligibleWorker(12)
	worker.AvailabilityWindows = []domain.AvailabilityWindow{
		{DayOfWeek: 1, StartTime: "09:00:00", EndTime: "11:00:00"}, // 班次 10 点开始 14 点结束
	}

	candidates := runFilter([]*domain.Worker{worker}, nil, nil)

	require.Len(t, candidates, 1)
}
