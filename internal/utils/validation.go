package utils

import (
	"fmt"
	"time"

	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
)

// 检查班次的时间与名额设置是否合理
func ValidateShiftTime(shift *domain.Shift) error {
	if !shift.EndTime.After(shift.StartTime) {
		return fmt.Errorf("班次的结束时间必须晚于开始时间")
	}

	if shift.SlotsTotal <= 0 {
		return fmt.Errorf("班次的名额数必须大于 0")
	}

	if shift.PayRate <= 0 {
		return fmt.Errorf("班次的时薪必须大于 0")
	}

	return nil
}

// 检查工人提交的可工作时间段是否合理
func ValidateAvailabilityWindows(windows []domain.AvailabilityWindow) error {
	for i, window := range windows {
		if window.DayOfWeek < 1 || window.DayOfWeek > 7 {
			return fmt.Errorf("时间段 %d 的星期取值必须在 1~7 之间", i)
		}

		startTime, err := time.Parse("15:04:05", window.StartTime)
		if err != nil {
			return fmt.Errorf("时间段 %d 的开始时间格式错误", i)
		}
		endTime, err := time.Parse("15:04:05", window.EndTime)
		if err != nil {
			return fmt.Errorf("时间段 %d 的结束时间格式错误", i)
		}
		if !endTime.After(startTime) {
			return fmt.Errorf("时间段 %d 的结束时间必须晚于开始时间", i)
		}
	}

	// 检查同一天内的时间段是否互相重叠
	for i := 0; i < len(windows); i++ {
		iStart, _ := time.Parse("15:04:05", windows[i].StartTime)
		iEnd, _ := time.Parse("15:04:05", windows[i].EndTime)

		for j := i + 1; j < len(windows); j++ {
			if windows[i].DayOfWeek != windows[j].DayOfWeek {
				continue
			}

			jStart, _ := time.Parse("15:04:05", windows[j].StartTime)
			jEnd, _ := time.Parse("15:04:05", windows[j].EndTime)

			if !(jStart.After(iEnd) || jStart.Equal(iEnd) || iStart.After(jEnd) || iStart.Equal(jEnd)) {
				return fmt.Errorf("时间段 %d 和时间段 %d 之间存在重叠", i, j)
			}
		}
	}

	return nil
}
