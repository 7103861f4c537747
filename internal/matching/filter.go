package matching

import (
	"time"

	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
	"github.com/linggong-dev/shift-dispatch/backend/internal/utils"
)

// Filter: 资格过滤器，负责从全量工人中筛出可以接受某个班次邀约的候选人。
// 所有条件都是硬性的，不满足任意一条就直接排除，不参与评分。
type Filter struct {
	RadiusMiles float64
}

func NewFilter(radiusMiles float64) *Filter {
	return &Filter{RadiusMiles: radiusMiles}
}

// EligibleCandidates 依次应用全部排除条件，返回带距离快照的候选人列表
func (f *Filter) EligibleCandidates(sc *ShiftContext) []*Candidate {
	candidates := []*Candidate{}

	for _, worker := range sc.Workers {
		// 在职、完成入驻且有定位信息
		if !worker.IsMatchable() {
			continue
		}

		// 工人必须倾向于接受该班次的工种
		if !worker.PrefersCategory(sc.Shift.JobCategory) {
			continue
		}

		// 可工作时间段必须覆盖班次的开始时刻
		if !coversShiftStart(worker.AvailabilityWindows, sc.Shift.StartTime) {
			continue
		}

		// 任意方向的拉黑关系都会排除匹配
		if sc.BlockedWorkerIDs[worker.ID] {
			continue
		}

		// 对同一个班次只会选中一个工人一次，
		// 已有 Assignment 记录的工人无论最终状态如何都不再重选
		if sc.AssignedWorkerIDs[worker.ID] {
			continue
		}

		distance := utils.HaversineMiles(*worker.Latitude, *worker.Longitude, sc.Shift.Latitude, sc.Shift.Longitude)
		if distance > f.RadiusMiles {
			continue
		}

		candidates = append(candidates, &Candidate{
			Worker:        worker,
			DistanceMiles: distance,
		})
	}

	return candidates
}

// coversShiftStart 检查可工作时间段是否覆盖班次开始时刻。
// 只检查开始时刻：星期几匹配且开始时间落在时间段内，不要求覆盖整个班次时长。
func coversShiftStart(windows []domain.AvailabilityWindow, shiftStart time.Time) bool {
	day := isoDayOfWeek(shiftStart)
	startOfDay := time.Date(shiftStart.Year(), shiftStart.Month(), shiftStart.Day(), 0, 0, 0, 0, shiftStart.Location())
	sinceMidnight := shiftStart.Sub(startOfDay)

	for _, window := range windows {
		if window.DayOfWeek != day {
			continue
		}

		windowStart, err := parseClock(window.StartTime)
		if err != nil {
			continue
		}
		windowEnd, err := parseClock(window.EndTime)
		if err != nil {
			continue
		}

		if sinceMidnight >= windowStart && sinceMidnight <= windowEnd {
			return true
		}
	}

	return false
}

// isoDayOfWeek 把 time.Weekday 转换为 1~7（周一为 1）
func isoDayOfWeek(t time.Time) int32 {
	day := int32(t.Weekday())
	if day == 0 {
		return 7
	}
	return day
}

func parseClock(clock string) (time.Duration, error) {
	t, err := time.Parse("15:04:05", clock)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}
