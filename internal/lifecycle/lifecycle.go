// lifecycle 包用显式的转移表描述单个 Assignment 的状态机，
// 每个 (当前状态, 事件) 组合唯一对应一个目标状态与名额增减效果。
// 守卫不满足属于正常的业务结果，通过布尔值返回，绝不作为 error 抛出。
package lifecycle

import (
	"time"

	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
)

type Event string

const (
	EventAccept           Event = "accept"
	EventDecline          Event = "decline"
	EventTimeout          Event = "timeout"
	EventConfirm          Event = "confirm"
	EventCheckIn          Event = "check_in"
	EventCheckOut         Event = "check_out"
	EventApproveTimesheet Event = "approve_timesheet"
	EventComplete         Event = "complete"
	EventNoShow           Event = "no_show"
	EventCancel           Event = "cancel"
)

// 名额增减效果
type SlotEffect int

const (
	SlotNone      SlotEffect = 0
	SlotIncrement SlotEffect = 1
	SlotDecrement SlotEffect = -1
)

// slotHoldingStatuses: 处于这些状态的 Assignment 占用着班次的一个名额
var slotHoldingStatuses = map[domain.AssignmentStatus]bool{
	domain.AssignmentStatusAccepted:          true,
	domain.AssignmentStatusConfirmed:         true,
	domain.AssignmentStatusCheckedIn:         true,
	domain.AssignmentStatusCheckedOut:        true,
	domain.AssignmentStatusTimesheetApproved: true,
}

// HoldsSlot 判断某个状态是否占用名额
func HoldsSlot(status domain.AssignmentStatus) bool {
	return slotHoldingStatuses[status]
}

type transition struct {
	from map[domain.AssignmentStatus]bool
	to   domain.AssignmentStatus
	// slot 根据转移前的状态计算名额变化，
	// 取消和缺勤只有在原状态占用名额时才需要释放
	slot func(from domain.AssignmentStatus) SlotEffect
}

func fixedEffect(effect SlotEffect) func(domain.AssignmentStatus) SlotEffect {
	return func(domain.AssignmentStatus) SlotEffect { return effect }
}

func releaseIfHolding(from domain.AssignmentStatus) SlotEffect {
	if HoldsSlot(from) {
		return SlotDecrement
	}
	return SlotNone
}

func statusSet(statuses ...domain.AssignmentStatus) map[domain.AssignmentStatus]bool {
	set := make(map[domain.AssignmentStatus]bool, len(statuses))
	for _, s := range statuses {
		set[s] = true
	}
	return set
}

var transitions = map[Event]transition{
	EventAccept: {
		from: statusSet(domain.AssignmentStatusOffered),
		to:   domain.AssignmentStatusAccepted,
		slot: fixedEffect(SlotIncrement),
	},
	EventDecline: {
		from: statusSet(domain.AssignmentStatusOffered),
		to:   domain.AssignmentStatusDeclined,
		slot: fixedEffect(SlotNone),
	},
	EventTimeout: {
		from: statusSet(domain.AssignmentStatusOffered),
		to:   domain.AssignmentStatusNoResponse,
		slot: fixedEffect(SlotNone),
	},
	EventConfirm: {
		from: statusSet(domain.AssignmentStatusAccepted),
		to:   domain.AssignmentStatusConfirmed,
		slot: fixedEffect(SlotNone),
	},
	EventCheckIn: {
		// 时间守卫（班次开始时间 <= 当前时间）由 CanCheckIn 单独检查
		from: statusSet(domain.AssignmentStatusAccepted, domain.AssignmentStatusConfirmed),
		to:   domain.AssignmentStatusCheckedIn,
		slot: fixedEffect(SlotNone),
	},
	EventCheckOut: {
		from: statusSet(domain.AssignmentStatusCheckedIn),
		to:   domain.AssignmentStatusCheckedOut,
		slot: fixedEffect(SlotNone),
	},
	EventApproveTimesheet: {
		from: statusSet(domain.AssignmentStatusCheckedOut),
		to:   domain.AssignmentStatusTimesheetApproved,
		slot: fixedEffect(SlotNone),
	},
	EventComplete: {
		from: statusSet(domain.AssignmentStatusTimesheetApproved),
		to:   domain.AssignmentStatusCompleted,
		slot: fixedEffect(SlotNone),
	},
	EventNoShow: {
		// 已签到的工人不能再被标记为缺勤
		from: statusSet(
			domain.AssignmentStatusOffered,
			domain.AssignmentStatusAccepted,
			domain.AssignmentStatusConfirmed,
		),
		to:   domain.AssignmentStatusNoShow,
		slot: releaseIfHolding,
	},
	EventCancel: {
		// 已完成或已取消的 Assignment 不能再取消
		from: statusSet(
			domain.AssignmentStatusOffered,
			domain.AssignmentStatusAccepted,
			domain.AssignmentStatusConfirmed,
			domain.AssignmentStatusCheckedIn,
			domain.AssignmentStatusCheckedOut,
			domain.AssignmentStatusTimesheetApproved,
		),
		to:   domain.AssignmentStatusCancelled,
		slot: releaseIfHolding,
	},
}

// Next 查询转移表：返回目标状态、名额效果，以及守卫是否满足
func Next(current domain.AssignmentStatus, event Event) (domain.AssignmentStatus, SlotEffect, bool) {
	t, exists := transitions[event]
	if !exists || !t.from[current] {
		return current, SlotNone, false
	}
	return t.to, t.slot(current), true
}

// FromStatuses 返回某个事件允许的来源状态列表（顺序稳定，供 SQL 的状态守卫使用）
func FromStatuses(event Event) []domain.AssignmentStatus {
	order := []domain.AssignmentStatus{
		domain.AssignmentStatusOffered,
		domain.AssignmentStatusAccepted,
		domain.AssignmentStatusConfirmed,
		domain.AssignmentStatusCheckedIn,
		domain.AssignmentStatusCheckedOut,
		domain.AssignmentStatusTimesheetApproved,
	}

	t, exists := transitions[event]
	if !exists {
		return nil
	}

	statuses := []domain.AssignmentStatus{}
	for _, s := range order {
		if t.from[s] {
			statuses = append(statuses, s)
		}
	}
	return statuses
}

// CanCheckIn 检查签到的时间守卫：班次开始后才允许签到
func CanCheckIn(shift *domain.Shift, now time.Time) bool {
	return !now.Before(shift.StartTime)
}
