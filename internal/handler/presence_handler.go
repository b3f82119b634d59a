package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"echolink/internal/redis"
	"echolink/internal/transport/httpdto"
)

type PresenceHandler struct {
	store *redis.PresenceStore
}

func NewPresenceHandler(store *redis.PresenceStore) *PresenceHandler {
	return &PresenceHandler{store: store}
}

func (h *PresenceHandler) Get(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid user_id", "INVALID_REQUEST"))
		return
	}
	status, err := h.store.Get(c.Request.Context(), userID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(status))
}

func (h *PresenceHandler) Online(c *gin.Context) {
	ids, err := h.store.OnlineUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"online": ids}))
}
