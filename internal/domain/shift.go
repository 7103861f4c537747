package domain

import "time"

type ShiftStatus string

const (
	ShiftStatusDraft      ShiftStatus = "draft"
	ShiftStatusPosted     ShiftStatus = "posted"
	ShiftStatusRecruiting ShiftStatus = "recruiting"
	ShiftStatusFilled     ShiftStatus = "filled"
	ShiftStatusInProgress ShiftStatus = "in_progress"
	ShiftStatusCompleted  ShiftStatus = "completed"
	ShiftStatusCancelled  ShiftStatus = "cancelled"
)

type Shift struct {
	ID             int64       `json:"id"`
	OrganizationID int64       `json:"organizationID"`
	Title          string      `json:"title"`
	JobCategory    string      `json:"jobCategory"`
	Latitude       float64     `json:"latitude"`
	Longitude      float64     `json:"longitude"`
	StartTime      time.Time   `json:"startTime"`
	EndTime        time.Time   `json:"endTime"`
	PayRate        float64     `json:"payRate"` // 每小时薪资
	SlotsTotal     int32       `json:"slotsTotal"`
	SlotsFilled    int32       `json:"slotsFilled"`
	Status         ShiftStatus `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
	Version        int32       `json:"-"`
}

// 判断班次是否还有空缺名额
func (s *Shift) HasOpenSlots() bool {
	return s.SlotsFilled < s.SlotsTotal
}

// 判断班次是否处于可发出邀约的状态
func (s *Shift) IsRecruiting() bool {
	return s.Status == ShiftStatusRecruiting
}
