package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
)

func TestNext_LegalTransitions(t *testing.T) {
	tests := []struct {
		from  domain.AssignmentStatus
		event Event
		to    domain.AssignmentStatus
	}{
		{domain.AssignmentStatusOffered, EventAccept, domain.AssignmentStatusAccepted},
		{domain.AssignmentStatusOffered, EventDecline, domain.AssignmentStatusDeclined},
		{domain.AssignmentStatusOffered, EventTimeout, domain.AssignmentStatusNoResponse},
		{domain.AssignmentStatusAccepted, EventConfirm, domain.AssignmentStatusConfirmed},
		{domain.AssignmentStatusAccepted, EventCheckIn, domain.AssignmentStatusCheckedIn},
		{domain.AssignmentStatusConfirmed, EventCheckIn, domain.AssignmentStatusCheckedIn},
		{domain.AssignmentStatusCheckedIn, EventCheckOut, domain.AssignmentStatusCheckedOut},
		{domain.AssignmentStatusCheckedOut, EventApproveTimesheet, domain.AssignmentStatusTimesheetApproved},
		{domain.AssignmentStatusTimesheetApproved, EventComplete, domain.AssignmentStatusCompleted},
		{domain.AssignmentStatusOffered, EventNoShow, domain.AssignmentStatusNoShow},
		{domain.AssignmentStatusConfirmed, EventNoShow, domain.AssignmentStatusNoShow},
		{domain.AssignmentStatusCheckedIn, EventCancel, domain.AssignmentStatusCancelled},
	}

	for _, tt := range tests {
		next, _, ok := Next(tt.from, tt.event)
		assert.True(t, ok, "%s + %s 应该是合法流转", tt.from, tt.event)
		assert.Equal(t, tt.to, next)
	}
}

// 守卫不满足时返回 false，状态保持不变
func TestNext_GuardFailures(t *testing.T) {
	tests := []struct {
		from  domain.AssignmentStatus
		event Event
	}{
		{domain.AssignmentStatusAccepted, EventAccept},   // 重复接受
		{domain.AssignmentStatusAccepted, EventTimeout},  // 响应先到，到期事件退化为空操作
		{domain.AssignmentStatusDeclined, EventAccept},   // 已拒绝后不能再接受
		{domain.AssignmentStatusOffered, EventConfirm},   // 未接受不能确认
		{domain.AssignmentStatusOffered, EventCheckIn},   // 未接受不能签到
		{domain.AssignmentStatusCheckedIn, EventNoShow},  // 已签到不能标记缺勤
		{domain.AssignmentStatusCompleted, EventCancel},  // 已完成不能取消
		{domain.AssignmentStatusCancelled, EventCancel},  // 已取消不能再取消
		{domain.AssignmentStatusAccepted, EventCheckOut}, // 未签到不能签退
		{domain.AssignmentStatusCheckedIn, EventComplete},
	}

	for _, tt := range tests {
		next, effect, ok := Next(tt.from, tt.event)
		assert.False(t, ok, "%s + %s 应该被守卫拦截", tt.from, tt.event)
		assert.Equal(t, tt.from, next)
		assert.Equal(t, SlotNone, effect)
	}
}

// 名额效果：接受加一，取消/缺勤只在原状态占用名额时释放
func TestNext_SlotEffects(t *testing.T) {
	tests := []struct {
		from   domain.AssignmentStatus
		event  Event
		effect SlotEffect
	}{
		{domain.AssignmentStatusOffered, EventAccept, SlotIncrement},
		{domain.AssignmentStatusOffered, EventDecline, SlotNone},
		{domain.AssignmentStatusOffered, EventTimeout, SlotNone},
		{domain.AssignmentStatusOffered, EventCancel, SlotNone},   // 未接受的取消不影响名额
		{domain.AssignmentStatusOffered, EventNoShow, SlotNone},   // 未接受的缺勤不影响名额
		{domain.AssignmentStatusAccepted, EventCancel, SlotDecrement},
		{domain.AssignmentStatusConfirmed, EventCancel, SlotDecrement},
		{domain.AssignmentStatusCheckedIn, EventCancel, SlotDecrement},
		{domain.AssignmentStatusAccepted, EventNoShow, SlotDecrement},
		{domain.AssignmentStatusConfirmed, EventNoShow, SlotDecrement},
		{domain.AssignmentStatusAccepted, EventConfirm, SlotNone},
	}

	for _, tt := range tests {
		_, effect, ok := Next(tt.from, tt.event)
		assert.True(t, ok)
		assert.Equal(t, tt.effect, effect, "%s + %s 的名额效果", tt.from, tt.event)
	}
}

func TestHoldsSlot(t *testing.T) {
	holding := []domain.AssignmentStatus{
		domain.AssignmentStatusAccepted,
		domain.AssignmentStatusConfirmed,
		domain.AssignmentStatusCheckedIn,
		domain.AssignmentStatusCheckedOut,
		domain.AssignmentStatusTimesheetApproved,
	}
	for _, s := range holding {
		assert.True(t, HoldsSlot(s), "%s 应该占用名额", s)
	}

	notHolding := []domain.AssignmentStatus{
		domain.AssignmentStatusOffered,
		domain.AssignmentStatusDeclined,
		domain.AssignmentStatusNoResponse,
		domain.AssignmentStatusNoShow,
		domain.AssignmentStatusCompleted,
		domain.AssignmentStatusCancelled,
	}
	for _, s := range notHolding {
		assert.False(t, HoldsSlot(s), "%s 不应该占用名额", s)
	}
}

func TestFromStatuses(t *testing.T) {
	assert.Equal(t,
		[]domain.AssignmentStatus{domain.AssignmentStatusOffered},
		FromStatuses(EventAccept),
	)
	assert.Equal(t,
		[]domain.AssignmentStatus{domain.AssignmentStatusAccepted, domain.AssignmentStatusConfirmed},
		FromStatuses(EventCheckIn),
	)
	assert.Equal(t,
		[]domain.AssignmentStatus{
			domain.AssignmentStatusOffered,
			domain.AssignmentStatusAccepted,
			domain.AssignmentStatusConfirmed,
			domain.AssignmentStatusCheckedIn,
			domain.AssignmentStatusCheckedOut,
			domain.AssignmentStatusTimesheetApproved,
		},
		FromStatuses(EventCancel),
	)
}

func TestCanCheckIn(t *testing.T) {
	start := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	shift := &domain.Shift{StartTime: start}

	assert.False(t, CanCheckIn(shift, start.Add(-time.Minute)))
	assert.True(t, CanCheckIn(shift, start))
	assert.True(t, CanCheckIn(shift, start.Add(time.Hour)))
}
