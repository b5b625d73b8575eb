package message

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"waweb/internal/logger"
	"waweb/pkg/errors"
)

type Handler struct {
	service Service
	logger  logger.Logger
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/conversations", h.Conversations)
	router.PUT("/conversations/:conversation_id/read", h.MarkConversationRead)
	router.GET("/messages/search", h.Search)
	router.GET("/messages/:conversation_id", h.ListMessages)
	router.POST("/messages", h.SendMessage)
	router.PUT("/messages/:id/status", h.UpdateStatus)
	router.GET("/stats", h.Stats)
}

type sendMessageRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	Body           string `json:"body" binding:"required"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, errors.ErrValidation.WithMessage("invalid request body").WithCause(err))
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), req.ConversationID, req.Body)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

type updateStatusRequest struct {
	Status Status `json:"status" binding:"required"`
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, errors.ErrValidation.WithMessage("invalid request body").WithCause(err))
		return
	}

	msg, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *Handler) ListMessages(c *gin.Context) {
	page, limit := pageParams(c)

	messages, pagination, err := h.service.ListMessages(c.Request.Context(), c.Param("conversation_id"), page, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if messages == nil {
		messages = []Message{}
	}
	c.JSON(http.StatusOK, gin.H{
		"messages":   messages,
		"pagination": pagination,
	})
}

func (h *Handler) Conversations(c *gin.Context) {
	summaries, err := h.service.Conversations(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	if summaries == nil {
		summaries = []ConversationSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

func (h *Handler) MarkConversationRead(c *gin.Context) {
	updated, err := h.service.MarkConversationRead(c.Request.Context(), c.Param("conversation_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *Handler) Search(c *gin.Context) {
	page, limit := pageParams(c)

	messages, pagination, err := h.service.Search(
		c.Request.Context(),
		c.Query("q"),
		c.Query("conversation_id"),
		page, limit,
	)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if messages == nil {
		messages = []Message{}
	}
	c.JSON(http.StatusOK, gin.H{
		"messages":   messages,
		"pagination": pagination,
	})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "request failed",
		"path", c.FullPath(),
		"error", err,
	)
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	return page, limit
}
