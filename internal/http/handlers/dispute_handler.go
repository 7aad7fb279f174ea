package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/prolink-backend/internal/dto"
	"github.com/ignatzorin/prolink-backend/internal/http/handlers/common"
	"github.com/ignatzorin/prolink-backend/internal/models"
	"github.com/ignatzorin/prolink-backend/internal/service"
)

// DisputeHandler действия над спорами.
type DisputeHandler struct {
	svc *service.DisputeService
}

// NewDisputeHandler создаёт хэндлер споров.
func NewDisputeHandler(svc *service.DisputeService) *DisputeHandler {
	return &DisputeHandler{svc: svc}
}

// GetDispute GET /disputes/:id
func (h *DisputeHandler) GetDispute(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	d, err := h.svc.GetDispute(c.Request.Context(), userID, role, disputeID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ListDisputes GET /admin/disputes?status=...
func (h *DisputeHandler) ListDisputes(c *gin.Context) {
	_, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	limit, offset := common.GetPagination(c)
	disputes, err := h.svc.ListDisputes(c.Request.Context(), role, models.DisputeStatus(c.Query("status")), limit, offset)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disputes": disputes, "limit": limit, "offset": offset})
}

// SubmitEvidence POST /disputes/:id/evidence
func (h *DisputeHandler) SubmitEvidence(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.SubmitEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	d, _, err := h.svc.SubmitEvidence(c.Request.Context(), userID, disputeID, req.Evidence, req.Files)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ResolveDispute POST /disputes/:id/resolve
func (h *DisputeHandler) ResolveDispute(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	in := service.ResolveInput{
		Outcome:      models.DisputeOutcome(req.Outcome),
		Notes:        req.Notes,
		RefundAmount: decimal.Zero,
	}
	if req.RefundAmount != nil {
		refund, err := decimal.NewFromString(*req.RefundAmount)
		if err != nil {
			common.RespondBadRequest(c, "неверный формат суммы возврата")
			return
		}
		in.RefundAmount = refund
	}

	agg, _, err := h.svc.ResolveDispute(c.Request.Context(), userID, role, disputeID, in)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAggregateResponse(agg))
}
