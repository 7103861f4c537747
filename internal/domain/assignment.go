package domain

import "time"

type AssignmentStatus string

const (
	AssignmentStatusOffered           AssignmentStatus = "offered"
	AssignmentStatusAccepted          AssignmentStatus = "accepted"
	AssignmentStatusDeclined          AssignmentStatus = "declined"
	AssignmentStatusNoResponse        AssignmentStatus = "no_response"
	AssignmentStatusConfirmed         AssignmentStatus = "confirmed"
	AssignmentStatusCheckedIn         AssignmentStatus = "checked_in"
	AssignmentStatusCheckedOut        AssignmentStatus = "checked_out"
	AssignmentStatusTimesheetApproved AssignmentStatus = "timesheet_approved"
	AssignmentStatusNoShow            AssignmentStatus = "no_show"
	AssignmentStatusCompleted         AssignmentStatus = "completed"
	AssignmentStatusCancelled         AssignmentStatus = "cancelled"
)

// 取消操作的发起方
type CancelActor string

const (
	CancelActorWorker   CancelActor = "worker"
	CancelActorEmployer CancelActor = "employer"
	CancelActorAdmin    CancelActor = "admin"
	CancelActorSystem   CancelActor = "system"
)

// ScoreBreakdown: 邀约发出时算法评分的各个分项
type ScoreBreakdown struct {
	Distance     float64 `json:"distance"`     // 最高 30
	Reliability  float64 `json:"reliability"`  // 最高 25
	Affinity     float64 `json:"affinity"`     // 最高 20
	Rating       float64 `json:"rating"`       // 最高 15
	ResponseTime float64 `json:"responseTime"` // 最高 10
	Experience   float64 `json:"experience"`   // 最高 10
}

func (b ScoreBreakdown) Total() float64 {
	return b.Distance + b.Reliability + b.Affinity + b.Rating + b.ResponseTime + b.Experience
}

type Assignment struct {
	ID       int64            `json:"id"`
	ShiftID  int64            `json:"shiftID"`
	WorkerID int64            `json:"workerID"`
	Status   AssignmentStatus `json:"status"`

	// 邀约发出时的快照
	Score          float64        `json:"score"`
	ScoreBreakdown ScoreBreakdown `json:"scoreBreakdown"`
	DistanceMiles  float64        `json:"distanceMiles"`
	Rank           int32          `json:"rank"` // 在候选队列中的名次，从 1 开始

	OfferSentAt    time.Time  `json:"offerSentAt"`
	RespondedAt    *time.Time `json:"respondedAt"`
	ResponseMethod *string    `json:"responseMethod"` // email / app / admin
	DeclineReason  *string    `json:"declineReason"`

	CancelledBy  *CancelActor `json:"cancelledBy"`
	CancelReason *string      `json:"cancelReason"`

	ActualStartTime   *time.Time `json:"actualStartTime"`
	ActualEndTime     *time.Time `json:"actualEndTime"`
	HoursWorked       *float64   `json:"hoursWorked"`
	TimesheetApprover *string    `json:"timesheetApprover"`

	CreatedAt time.Time `json:"createdAt"`
	Version   int32     `json:"-"`
}

// 计算完工报酬，报酬 = 实际工时 * 班次时薪，按需计算而不冗余存储
func (a *Assignment) PayDue(payRate float64) float64 {
	if a.HoursWorked == nil {
		return 0
	}
	return *a.HoursWorked * payRate
}
