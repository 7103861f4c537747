package handler

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
	"github.com/linggong-dev/shift-dispatch/backend/internal/utils"
)

func (h *Handler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName            string                      `json:"fullName" validate:"required"`
		Username            string                      `json:"username" validate:"required"`
		Email               string                      `json:"email" validate:"required,email"`
		Phone               string                      `json:"phone" validate:"required"`
		Latitude            *float64                    `json:"latitude" validate:"omitempty,latitude"`
		Longitude           *float64                    `json:"longitude" validate:"omitempty,longitude"`
		PreferredCategories []string                    `json:"preferredCategories"`
		AvailabilityWindows []domain.AvailabilityWindow `json:"availabilityWindows"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateAvailabilityWindows(req.AvailabilityWindows); err != nil {
		h.badRequest(w, r, err)
		return
	}

	worker := &domain.Worker{
		FullName:            req.FullName,
		Username:            req.Username,
		Email:               req.Email,
		Phone:               req.Phone,
		IsActive:            true,
		Onboarded:           false, // 入驻流程完成后通过 PATCH 置位
		Latitude:            req.Latitude,
		Longitude:           req.Longitude,
		PreferredCategories: req.PreferredCategories,
		AvailabilityWindows: req.AvailabilityWindows,
	}

	if err := h.repository.CreateWorker(worker); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "workers_username_key":
				h.errorResponse(w, r, "用户名已存在")
			case "workers_email_key":
				h.errorResponse(w, r, "邮箱已被使用")
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "创建工人成功", worker)
}

func (h *Handler) GetAllWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.repository.GetAllWorkers()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取工人列表成功", workers)
}

func (h *Handler) GetWorker(w http.ResponseWriter, r *http.Request) {
	worker := r.Context().Value(WorkerCtx).(*domain.Worker)

	h.successResponse(w, r, "获取工人成功", worker)
}

func (h *Handler) UpdateWorker(w http.ResponseWriter, r *http.Request) {
	worker := r.Context().Value(WorkerCtx).(*domain.Worker)

	var req struct {
		FullName  *string  `json:"fullName"`
		Email     *string  `json:"email" validate:"omitempty,email"`
		Phone     *string  `json:"phone"`
		IsActive  *bool    `json:"isActive"`
		Onboarded *bool    `json:"onboarded"`
		Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
		Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.FullName != nil {
		worker.FullName = *req.FullName
	}
	if req.Email != nil {
		worker.Email = *req.Email
	}
	if req.Phone != nil {
		worker.Phone = *req.Phone
	}
	if req.IsActive != nil {
		worker.IsActive = *req.IsActive
	}
	if req.Onboarded != nil {
		worker.Onboarded = *req.Onboarded
	}
	if req.Latitude != nil {
		worker.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		worker.Longitude = req.Longitude
	}

	if err := h.repository.UpdateWorker(worker); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新工人成功", worker)
}

func (h *Handler) ReplaceAvailability(w http.ResponseWriter, r *http.Request) {
	worker := r.Context().Value(WorkerCtx).(*domain.Worker)

	var req struct {
		Windows []domain.AvailabilityWindow `json:"windows" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateAvailabilityWindows(req.Windows); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.ReplaceAvailabilityWindows(worker.ID, req.Windows); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	worker.AvailabilityWindows = req.Windows
	h.successResponse(w, r, "更新可工作时间段成功", worker)
}
