package domain

import "time"

// AvailabilityWindow: 工人在某个星期几的可工作时间段
// DayOfWeek 的取值范围为 1~7（周一为 1）
type AvailabilityWindow struct {
	DayOfWeek int32  `json:"dayOfWeek"`
	StartTime string `json:"startTime"` // 格式为 15:04:05
	EndTime   string `json:"endTime"`
}

type Worker struct {
	ID        int64    `json:"id"`
	FullName  string   `json:"fullName"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	IsActive  bool     `json:"isActive"`
	Onboarded bool     `json:"onboarded"`
	Latitude  *float64 `json:"latitude"` // 没有定位信息的工人不参与匹配
	Longitude *float64 `json:"longitude"`

	// 匹配算法所依赖的统计数据
	ReliabilityScore       *float64 `json:"reliabilityScore"`       // 0~100，新工人为 null
	AverageRating          *float64 `json:"averageRating"`          // 1~5，新工人为 null
	AverageResponseMinutes *float64 `json:"averageResponseMinutes"` // 新工人为 null
	CompletedShiftsCount   int32    `json:"completedShiftsCount"`
	NoShowCount            int32    `json:"noShowCount"`
	AssignedShiftsCount    int32    `json:"assignedShiftsCount"`

	PreferredCategories []string             `json:"preferredCategories"`
	WorkedCategories    []string             `json:"workedCategories"`
	AvailabilityWindows []AvailabilityWindow `json:"availabilityWindows"`

	CreatedAt time.Time `json:"createdAt"`
	Version   int32     `json:"-"`
}

// 判断工人是否倾向于接受某个工种
func (w *Worker) PrefersCategory(category string) bool {
	for _, c := range w.PreferredCategories {
		if c == category {
			return true
		}
	}
	return false
}

// 判断工人是否有某个工种的完成记录
func (w *Worker) HasWorkedCategory(category string) bool {
	for _, c := range w.WorkedCategories {
		if c == category {
			return true
		}
	}
	return false
}

// 判断工人是否具备参与匹配的基本条件（在职、完成入驻且有定位信息）
func (w *Worker) IsMatchable() bool {
	return w.IsActive && w.Onboarded && w.Latitude != nil && w.Longitude != nil
}
