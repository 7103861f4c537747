package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
	"github.com/linggong-dev/shift-dispatch/backend/internal/lifecycle"
	"github.com/linggong-dev/shift-dispatch/backend/internal/sequencer"
	"github.com/linggong-dev/shift-dispatch/backend/internal/utils"
)

func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrganizationID int64     `json:"organizationID" validate:"required"`
		Title          string    `json:"title" validate:"required"`
		JobCategory    string    `json:"jobCategory" validate:"required"`
		Latitude       float64   `json:"latitude" validate:"latitude"`
		Longitude      float64   `json:"longitude" validate:"longitude"`
		StartTime      time.Time `json:"startTime" validate:"required"`
		EndTime        time.Time `json:"endTime" validate:"required"`
		PayRate        float64   `json:"payRate" validate:"required"`
		SlotsTotal     int32     `json:"slotsTotal" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	shift := &domain.Shift{
		OrganizationID: req.OrganizationID,
		Title:          req.Title,
		JobCategory:    req.JobCategory,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		PayRate:        req.PayRate,
		SlotsTotal:     req.SlotsTotal,
		Status:         domain.ShiftStatusDraft,
	}

	if err := utils.ValidateShiftTime(shift); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.CreateShift(shift); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "shifts_organization_id_fkey":
				h.errorResponse(w, r, "用人方不存在")
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "创建班次成功", shift)
}

func (h *Handler) GetAllShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := h.repository.GetAllShifts()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次列表成功", shifts)
}

func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)

	h.successResponse(w, r, "获取班次成功", shift)
}

func (h *Handler) PublishShift(w http.ResponseWriter, r *http.Request) {
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)

	ok, err := h.repository.UpdateShiftStatus(shift.ID, []domain.ShiftStatus{domain.ShiftStatusDraft}, domain.ShiftStatusPosted)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !ok {
		h.errorResponse(w, r, "只有草稿状态的班次才能发布")
		return
	}

	shift.Status = domain.ShiftStatusPosted
	h.successResponse(w, r, "发布班次成功", shift)
}

// StartRecruiting 开始招募：班次进入 recruiting 状态并触发第一轮邀约。
// 邀约轮次由 dispatch 进程异步执行，这里只负责入队。
func (h *Handler) StartRecruiting(w http.ResponseWriter, r *http.Request) {
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)

	ok, err := h.repository.UpdateShiftStatus(shift.ID, []domain.ShiftStatus{domain.ShiftStatusPosted}, domain.ShiftStatusRecruiting)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !ok {
		h.errorResponse(w, r, "只有已发布的班次才能开始招募")
		return
	}
	shift.Status = domain.ShiftStatusRecruiting

	record := &domain.ActivityRecord{
		Action:  domain.ActivityRecruitingStarted,
		ShiftID: shift.ID,
		Detail: map[string]any{
			"slots_total": shift.SlotsTotal,
		},
	}
	if err := h.repository.InsertActivity(record); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.publisher.PublishCycle(shift.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "开始招募成功", shift)
}

// CancelShift 取消班次：终止招募并取消所有未到终态的 Assignment。
// 未决邀约的到期定时器不需要显式取消，
// Assignment 离开 offered 状态后到期事件会因守卫失败而退化为空操作。
func (h *Handler) CancelShift(w http.ResponseWriter, r *http.Request) {
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)

	var req struct {
		Reason string `json:"reason"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	err := h.shiftLock.WithLock(shift.ID, func() error {
		from := []domain.ShiftStatus{
			domain.ShiftStatusDraft,
			domain.ShiftStatusPosted,
			domain.ShiftStatusRecruiting,
			domain.ShiftStatusFilled,
			domain.ShiftStatusInProgress,
		}
		ok, err := h.repository.UpdateShiftStatus(shift.ID, from, domain.ShiftStatusCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return errShiftNotCancellable
		}
		shift.Status = domain.ShiftStatusCancelled

		record := &domain.ActivityRecord{
			Action:  domain.ActivityShiftCancelled,
			ShiftID: shift.ID,
			Detail: map[string]any{
				"reason": req.Reason,
			},
		}
		if err := h.repository.InsertActivity(record); err != nil {
			return err
		}

		return h.cancelShiftAssignments(shift, req.Reason)
	})
	if err != nil {
		switch {
		case errors.Is(err, errShiftNotCancellable):
			h.errorResponse(w, r, "班次已结束或已取消")
		case errors.Is(err, sequencer.ErrShiftBusy):
			h.errorResponse(w, r, "班次正在处理其他事件，请稍后重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "取消班次成功", shift)
}

var errShiftNotCancellable = errors.New("班次已结束或已取消")

// cancelShiftAssignments 取消班次下所有未到终态的 Assignment，
// 并向已接受的工人发送班次取消通知
func (h *Handler) cancelShiftAssignments(shift *domain.Shift, reason string) error {
	assignments, err := h.repository.ListAssignmentsByShift(shift.ID)
	if err != nil {
		return err
	}

	for _, assignment := range assignments {
		notify := lifecycle.HoldsSlot(assignment.Status)

		ok, result, err := h.repository.CancelAssignment(assignment.ID, domain.CancelActorSystem, reason)
		if err != nil {
			return err
		}
		if !ok {
			// 已到终态的 Assignment 不需要处理
			continue
		}

		record := &domain.ActivityRecord{
			Action:       domain.ActivityAssignmentCancelled,
			ShiftID:      shift.ID,
			WorkerID:     &assignment.WorkerID,
			AssignmentID: &assignment.ID,
			Detail: map[string]any{
				"cancelled_by": domain.CancelActorSystem,
				"reason":       reason,
			},
		}
		if err := h.repository.InsertActivity(record); err != nil {
			return err
		}

		if notify && result != nil {
			worker, err := h.repository.GetWorkerByID(assignment.WorkerID)
			if err != nil {
				return err
			}
			notification := &domain.NotificationMessage{
				Type:    "shift_cancelled",
				To:      worker.Email,
				Channel: "email",
				Data: &domain.ShiftCancelledMailData{
					FullName:   worker.FullName,
					ShiftTitle: shift.Title,
					StartTime:  shift.StartTime.Format("2006-01-02 15:04"),
				},
			}
			if err := h.publisher.PublishNotification(notification); err != nil {
				return err
			}
		}
	}

	return nil
}

func (h *Handler) GetShiftAssignments(w http.ResponseWriter, r *http.Request) {
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)

	assignments, err := h.repository.ListAssignmentsByShift(shift.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次邀约列表成功", assignments)
}

func (h *Handler) GetShiftActivities(w http.ResponseWriter, r *http.Request) {
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)

	records, err := h.repository.ListActivitiesByShift(shift.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次活动记录成功", records)
}
