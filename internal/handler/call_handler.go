package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"echolink/internal/domain/call"
	"echolink/internal/services"
	"echolink/internal/transport/httpdto"
	echolink_errors "echolink/pkg/errors"
)

type CallHandler struct {
	service *services.CallService
}

func NewCallHandler(service *services.CallService) *CallHandler {
	return &CallHandler{service: service}
}

func (h *CallHandler) Initiate(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	var req httpdto.InitiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid receiver_id", "INVALID_REQUEST"))
		return
	}

	item, err := h.service.Initiate(c.Request.Context(), userID, receiverID, req.CallType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromCall(item)))
}

func (h *CallHandler) Answer(c *gin.Context) {
	h.transition(c, h.service.Answer)
}

func (h *CallHandler) Reject(c *gin.Context) {
	h.transition(c, h.service.Reject)
}

func (h *CallHandler) End(c *gin.Context) {
	h.transition(c, h.service.End)
}

func (h *CallHandler) GetByID(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid call id", "INVALID_REQUEST"))
		return
	}

	item, err := h.service.GetByID(c.Request.Context(), callID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !item.IsParty(userID) {
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("not a call party", "FORBIDDEN"))
		return
	}

	participants, err := h.service.GetCallParticipants(c.Request.Context(), callID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.CallDetailResponse{
		Call:         httpdto.FromCall(item),
		Participants: httpdto.FromCallParticipantSlice(participants),
	}))
}

func (h *CallHandler) Participants(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid call id", "INVALID_REQUEST"))
		return
	}

	participants, err := h.service.GetCallParticipants(c.Request.Context(), callID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.CallParticipantsResponse{
		Participants: httpdto.FromCallParticipantSlice(participants),
	}))
}

// ListMine returns the acting user's call history, newest first.
func (h *CallHandler) ListMine(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	items, total, err := h.service.GetUserCalls(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListCallsResponse{
		Calls: httpdto.FromCallSlice(items),
		Total: total,
	}))
}

func (h *CallHandler) transition(c *gin.Context, op func(ctx context.Context, callID, userID uuid.UUID) (call.Call, error)) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid call id", "INVALID_REQUEST"))
		return
	}

	item, err := op(c.Request.Context(), callID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromCall(item)))
}

func respondError(c *gin.Context, err error) {
	c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), codeFor(err)))
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, echolink_errors.ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, echolink_errors.ErrReceiverBusy):
		return "RECEIVER_BUSY"
	case errors.Is(err, echolink_errors.ErrInvalidInput):
		return "INVALID_REQUEST"
	case errors.Is(err, echolink_errors.ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, echolink_errors.ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, echolink_errors.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, echolink_errors.ErrRateLimited):
		return "RATE_LIMITED"
	default:
		return "REQUEST_FAILED"
	}
}
