package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
	"github.com/linggong-dev/shift-dispatch/backend/internal/sequencer"
)

func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	h.successResponse(w, r, "获取邀约成功", assignment)
}

// AcceptOffer 管理端/应用端代工人接受邀约
func (h *Handler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	var req struct {
		Method string `json:"method" validate:"required,oneof=email app admin"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	var ok bool
	err := h.shiftLock.WithLock(assignment.ShiftID, func() error {
		var err error
		ok, err = h.sequencer.HandleAcceptance(assignment.ID, req.Method)
		return err
	})
	if err != nil {
		h.handleLockError(w, r, err)
		return
	}
	if !ok {
		h.errorResponse(w, r, "邀约已不处于待响应状态")
		return
	}

	h.successResponse(w, r, "接受邀约成功", nil)
}

// DeclineOffer 管理端/应用端代工人拒绝邀约
func (h *Handler) DeclineOffer(w http.ResponseWriter, r *http.Request) {
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	var req struct {
		Reason string `json:"reason"`
		Method string `json:"method" validate:"required,oneof=email app admin"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	var ok bool
	err := h.shiftLock.WithLock(assignment.ShiftID, func() error {
		var err error
		ok, err = h.sequencer.HandleDecline(assignment.ID, req.Reason, req.Method)
		return err
	})
	if err != nil {
		h.handleLockError(w, r, err)
		return
	}
	if !ok {
		h.errorResponse(w, r, "邀约已不处于待响应状态")
		return
	}

	h.successResponse(w, r, "拒绝邀约成功", nil)
}

func (h *Handler) ConfirmAssignment(w http.ResponseWriter, r *http.Request) {
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	ok, result, err := h.repository.ConfirmAssignment(assignment.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !ok {
		h.errorResponse(w, r, "只有已接受的邀约才能确认")
		return
	}

	if err := h.recordTransition(domain.ActivityAssignmentConfirmed, result.Assignment, nil); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "确认上工成功", result.Assignment)
}

func (h *Handler) CheckInAssignment(w http.ResponseWriter, r *http.Request) {
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	ok, result, err := h.repository.CheckInAssignment(assignment.ID, time.Now())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !ok {
		h.errorResponse(w, r, "班次尚未开始或邀约状态不允许签到")
		return
	}

	if err := h.recordTransition(domain.ActivityShiftCheckedIn, result.Assignment, nil); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "签到成功", result.Assignment)
}

func (h *Handler) CheckOutAssignment(w http.ResponseWriter, r *http.Request) {
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	ok, result, err := h.repository.CheckOutAssignment(assignment.ID, time.Now())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !ok {
		h.errorResponse(w, r, "只有已签到的邀约才能签退")
		return
	}

	detail := map[string]any{}
	if result.Assignment.HoursWorked != nil {
		detail["hours_worked"] = *result.Assignment.HoursWorked
	}
	if err := h.recordTransition(domain.ActivityShiftCheckedOut, result.Assignment, detail); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "签退成功", result.Assignment)
}

func (h *Handler) ApproveTimesheet(w http.ResponseWriter, r *http.Request) {
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	var req struct {
		Approver string `json:"approver" validate:"required"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	ok, result, err := h.repository.ApproveTimesheet(assignment.ID, req.Approver)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !ok {
		h.errorResponse(w, r, "只有已签退的邀约才能审批工时")
		return
	}

	detail := map[string]any{
		"approver": req.Approver,
	}
	if err := h.recordTransition(domain.ActivityTimesheetApproved, result.Assignment, detail); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "审批工时成功", result.Assignment)
}

func (h *Handler) CompleteAssignment(w http.ResponseWriter, r *http.Request) {
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	ok, result, err := h.repository.CompleteAssignment(assignment.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !ok {
		h.errorResponse(w, r, "只有已审批工时的邀约才能完工")
		return
	}

	shift, err := h.repository.GetShiftByID(assignment.ShiftID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	detail := map[string]any{
		"pay_due": assignment.PayDue(shift.PayRate),
	}
	if assignment.HoursWorked != nil {
		detail["hours_worked"] = *assignment.HoursWorked
	}
	if err := h.recordTransition(domain.ActivityAssignmentCompleted, result.Assignment, detail); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "完工成功", result.Assignment)
}

func (h *Handler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	var ok bool
	err := h.shiftLock.WithLock(assignment.ShiftID, func() error {
		transition, result, err := h.repository.MarkNoShow(assignment.ID)
		if err != nil {
			return err
		}
		ok = transition
		if !transition {
			return nil
		}

		detail := map[string]any{
			"slot_released": result.SlotReleased,
		}
		if err := h.recordTransition(domain.ActivityNoShowRecorded, result.Assignment, detail); err != nil {
			return err
		}

		// 名额释放使满员班次重新回到招募状态时，立即开始下一轮邀约
		if result.ShiftReopened {
			return h.publisher.PublishCycle(assignment.ShiftID)
		}
		return nil
	})
	if err != nil {
		h.handleLockError(w, r, err)
		return
	}
	if !ok {
		h.errorResponse(w, r, "邀约状态不允许标记缺勤")
		return
	}

	h.successResponse(w, r, "标记缺勤成功", nil)
}

func (h *Handler) CancelAssignment(w http.ResponseWriter, r *http.Request) {
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	var req struct {
		CancelledBy string `json:"cancelledBy" validate:"required,oneof=worker employer admin system"`
		Reason      string `json:"reason"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	var ok bool
	err := h.shiftLock.WithLock(assignment.ShiftID, func() error {
		transition, result, err := h.repository.CancelAssignment(assignment.ID, domain.CancelActor(req.CancelledBy), req.Reason)
		if err != nil {
			return err
		}
		ok = transition
		if !transition {
			return nil
		}

		detail := map[string]any{
			"cancelled_by":  req.CancelledBy,
			"reason":        req.Reason,
			"slot_released": result.SlotReleased,
		}
		if err := h.recordTransition(domain.ActivityAssignmentCancelled, result.Assignment, detail); err != nil {
			return err
		}

		if result.ShiftReopened {
			return h.publisher.PublishCycle(assignment.ShiftID)
		}
		return nil
	})
	if err != nil {
		h.handleLockError(w, r, err)
		return
	}
	if !ok {
		h.errorResponse(w, r, "邀约已到终态，无法取消")
		return
	}

	h.successResponse(w, r, "取消邀约成功", nil)
}

// recordTransition 为一次状态流转写入活动记录
func (h *Handler) recordTransition(action domain.ActivityAction, a *domain.Assignment, detail map[string]any) error {
	record := &domain.ActivityRecord{
		Action:       action,
		ShiftID:      a.ShiftID,
		WorkerID:     &a.WorkerID,
		AssignmentID: &a.ID,
		Detail:       detail,
	}
	return h.repository.InsertActivity(record)
}

func (h *Handler) handleLockError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sequencer.ErrShiftBusy):
		h.errorResponse(w, r, "班次正在处理其他事件，请稍后重试")
	default:
		h.internalServerError(w, r, err)
	}
}
