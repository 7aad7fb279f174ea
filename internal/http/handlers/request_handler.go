package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/prolink-backend/internal/dto"
	"github.com/ignatzorin/prolink-backend/internal/http/handlers/common"
	"github.com/ignatzorin/prolink-backend/internal/models"
	"github.com/ignatzorin/prolink-backend/internal/repository"
	"github.com/ignatzorin/prolink-backend/internal/service"
)

// RequestHandler обслуживает жизненный цикл заявки.
type RequestHandler struct {
	svc *service.EngagementService
}

// NewRequestHandler создаёт хэндлер заявок.
func NewRequestHandler(svc *service.EngagementService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

// CreateRequest POST /requests
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	in := service.CreateRequestInput{
		Title:         req.Title,
		Description:   req.Description,
		TimelineDays:  req.TimelineDays,
		AttachedFiles: req.AttachedFiles,
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil {
			common.RespondBadRequest(c, "неверный формат цены")
			return
		}
		in.Price = &price
	}

	created, err := h.svc.CreateRequest(c.Request.Context(), userID, in)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetRequest GET /requests/:id
func (h *RequestHandler) GetRequest(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	agg, err := h.svc.GetAggregate(c.Request.Context(), userID, role, requestID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAggregateResponse(agg))
}

// ListRequests GET /requests?role=client|professional&status=...
func (h *RequestHandler) ListRequests(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	params := repository.ListParams{
		UserID: userID,
		Role:   c.DefaultQuery("role", "client"),
		Status: models.RequestStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}

	result, err := h.svc.ListRequests(c.Request.Context(), params)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.RequestListResponse{
		Requests: result.Requests,
		Total:    result.Total,
		Limit:    result.Limit,
		Offset:   result.Offset,
		HasMore:  result.HasMore,
	})
}

// UpdateRequest PATCH /requests/:id
func (h *RequestHandler) UpdateRequest(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.UpdateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	in := service.UpdateRequestInput{
		Title:        req.Title,
		Description:  req.Description,
		TimelineDays: req.TimelineDays,
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil {
			common.RespondBadRequest(c, "неверный формат цены")
			return
		}
		in.Price = &price
	}

	updated, err := h.svc.UpdateRequest(c.Request.Context(), userID, requestID, in)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// AcceptRequest POST /requests/:id/accept
func (h *RequestHandler) AcceptRequest(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.AcceptRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		common.RespondBadRequest(c, "неверный формат цены")
		return
	}

	agg, _, err := h.svc.AcceptRequest(c.Request.Context(), userID, requestID, price)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAggregateResponse(agg))
}

// SubmitWork POST /requests/:id/submit
func (h *RequestHandler) SubmitWork(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.SubmitWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	agg, _, err := h.svc.SubmitWork(c.Request.Context(), userID, requestID, req.Files, req.Notes)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAggregateResponse(agg))
}

// ApproveWork POST /requests/:id/approve
func (h *RequestHandler) ApproveWork(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	agg, _, err := h.svc.ApproveWork(c.Request.Context(), userID, requestID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAggregateResponse(agg))
}

// RequestRevision POST /requests/:id/revision
func (h *RequestHandler) RequestRevision(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.RequestRevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	updated, _, err := h.svc.RequestRevision(c.Request.Context(), userID, requestID, req.Notes)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// OpenDispute POST /requests/:id/dispute
func (h *RequestHandler) OpenDispute(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.OpenDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	disputeCreated, _, err := h.svc.OpenDispute(c.Request.Context(), userID, requestID, req.Reason, req.Files)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, disputeCreated)
}

// Decline POST /requests/:id/decline
func (h *RequestHandler) Decline(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	updated, _, err := h.svc.DeclineRequest(c.Request.Context(), userID, requestID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Cancel POST /requests/:id/cancel
func (h *RequestHandler) Cancel(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	updated, _, err := h.svc.CancelRequest(c.Request.Context(), userID, requestID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
