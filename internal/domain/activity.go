package domain

import "time"

type ActivityAction string

const (
	ActivityRecruitingStarted   ActivityAction = "recruiting_started"
	ActivityWorkerScored        ActivityAction = "worker_scored"
	ActivityOfferSent           ActivityAction = "offer_sent"
	ActivityOfferAccepted       ActivityAction = "offer_accepted"
	ActivityOfferDeclined       ActivityAction = "offer_declined"
	ActivityOfferTimeout        ActivityAction = "offer_timeout"
	ActivityRecruitingCompleted ActivityAction = "recruiting_completed"
	ActivityRecruitingExhausted ActivityAction = "recruiting_exhausted"
	ActivityAssignmentConfirmed ActivityAction = "assignment_confirmed"
	ActivityShiftCheckedIn      ActivityAction = "shift_checked_in"
	ActivityShiftCheckedOut     ActivityAction = "shift_checked_out"
	ActivityTimesheetApproved   ActivityAction = "timesheet_approved"
	ActivityAssignmentCompleted ActivityAction = "assignment_completed"
	ActivityNoShowRecorded      ActivityAction = "no_show_recorded"
	ActivityAssignmentCancelled ActivityAction = "assignment_cancelled"
	ActivityShiftCancelled      ActivityAction = "shift_cancelled"
)

// ActivityRecord: 算法决策与状态流转的审计记录，只追加不修改
// WorkerID 和 AssignmentID 是可选的关联对象
type ActivityRecord struct {
	ID           int64          `json:"id"`
	Action       ActivityAction `json:"action"`
	ShiftID      int64          `json:"shiftID"`
	WorkerID     *int64         `json:"workerID"`
	AssignmentID *int64         `json:"assignmentID"`
	Detail       map[string]any `json:"detail"`
	CreatedAt    time.Time      `json:"createdAt"`
}
