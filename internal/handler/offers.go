package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/linggong-dev/shift-dispatch/backend/internal/sequencer"
)

// RespondOffer 处理邮件中的接受/拒绝链接。
// 链接凭签名令牌响应，令牌的有效期与响应窗口一致，
// 过期链接会在签名校验阶段被拒绝。
func (h *Handler) RespondOffer(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		h.errorResponse(w, r, "缺少响应令牌")
		return
	}

	assignmentID, claims, err := sequencer.ParseOfferToken(h.config.Offer.TokenSecret, tokenString)
	if err != nil {
		h.errorResponse(w, r, "响应链接无效或已过期")
		return
	}

	assignment, err := h.repository.GetAssignmentByID(assignmentID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "邀约不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 令牌与邀约的工人必须一致，防止令牌被挪用到其他邀约
	if assignment.WorkerID != claims.WorkerID {
		h.errorResponse(w, r, "响应链接无效或已过期")
		return
	}

	var ok bool
	err = h.shiftLock.WithLock(assignment.ShiftID, func() error {
		var err error
		switch claims.Action {
		case sequencer.TokenActionAccept:
			ok, err = h.sequencer.HandleAcceptance(assignment.ID, "email")
		case sequencer.TokenActionDecline:
			ok, err = h.sequencer.HandleDecline(assignment.ID, "", "email")
		default:
			return errors.New("不支持的响应动作")
		}
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

	switch claims.Action {
	case sequencer.TokenActionAccept:
		h.successResponse(w, r, "接受邀约成功", nil)
	default:
		h.successResponse(w, r, "拒绝邀约成功", nil)
	}
}
