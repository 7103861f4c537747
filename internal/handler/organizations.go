package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
)

func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name" validate:"required"`
		ContactEmail string `json:"contactEmail" validate:"required,email"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	org := &domain.Organization{
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
	}

	if err := h.repository.CreateOrganization(org); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "organizations_name_key":
				h.errorResponse(w, r, "用人方名称已存在")
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "创建用人方成功", org)
}

func (h *Handler) GetAllOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.repository.GetAllOrganizations()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取用人方列表成功", orgs)
}

func (h *Handler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	org := r.Context().Value(OrganizationCtx).(*domain.Organization)

	h.successResponse(w, r, "获取用人方成功", org)
}

func (h *Handler) UpsertBlock(w http.ResponseWriter, r *http.Request) {
	org := r.Context().Value(OrganizationCtx).(*domain.Organization)

	workerIDParam := chi.URLParam(r, "workerID")
	workerID, err := strconv.ParseInt(workerIDParam, 10, 64)
	if err != nil {
		h.errorResponse(w, r, "工人ID无效")
		return
	}

	var req struct {
		Direction string `json:"direction" validate:"required,oneof=organization_blocks_worker worker_blocks_organization"`
		Reason    string `json:"reason"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	block := &domain.OrganizationBlock{
		OrganizationID: org.ID,
		WorkerID:       workerID,
		Direction:      domain.BlockDirection(req.Direction),
		Reason:         req.Reason,
	}

	if err := h.repository.UpsertBlock(block); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "organization_blocks_worker_id_fkey":
				h.errorResponse(w, r, "工人不存在")
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "设置拉黑关系成功", block)
}

func (h *Handler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	org := r.Context().Value(OrganizationCtx).(*domain.Organization)

	workerIDParam := chi.URLParam(r, "workerID")
	workerID, err := strconv.ParseInt(workerIDParam, 10, 64)
	if err != nil {
		h.errorResponse(w, r, "工人ID无效")
		return
	}

	var req struct {
		Direction string `json:"direction" validate:"required,oneof=organization_blocks_worker worker_blocks_organization"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.DeleteBlock(org.ID, workerID, domain.BlockDirection(req.Direction)); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "解除拉黑关系成功", nil)
}
