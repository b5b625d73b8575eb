package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"waweb/internal/config"
	"waweb/internal/logger"
	"waweb/pkg/errors"
)

type Handler struct {
	service *Service
	cfg     config.WebhookConfig
	logger  logger.Logger
}

func NewHandler(service *Service, cfg config.WebhookConfig, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		cfg:     cfg,
		logger:  log,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/webhook", h.Verify)
	router.POST("/webhook", h.Receive)
	router.POST("/webhook/batch", h.ReceiveBatch)
	router.POST("/webhook/test", h.ReceiveTest)
}

// Verify answers the provider's subscription handshake: echo hub.challenge
// when the mode and token match, 403 otherwise.
func (h *Handler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.cfg.VerifyToken {
		h.logger.InfowCtx(c.Request.Context(), "webhook subscription verified")
		c.String(http.StatusOK, challenge)
		return
	}
	c.Status(http.StatusForbidden)
}

// Receive handles one webhook delivery. Per-item failures still return 200
// with the structured result; only a malformed envelope or a storage outage
// fails the request.
func (h *Handler) Receive(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.handleError(c, errors.ErrInvalidPayload.WithMessage("failed to read request body").WithCause(err))
		return
	}

	result, err := h.service.ProcessRaw(c.Request.Context(), raw)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type batchRequest struct {
	Payloads []json.RawMessage `json:"payloads"`
}

// ReceiveBatch reprocesses a list of payloads with keep-going semantics:
// always 200, failures reported per index.
func (h *Handler) ReceiveBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, errors.ErrValidation.WithMessage("invalid request body").WithCause(err))
		return
	}
	if req.Payloads == nil {
		h.handleError(c, errors.ErrValidation.WithMessage("payloads is required"))
		return
	}

	result := h.service.ProcessPayloads(c.Request.Context(), req.Payloads)
	c.JSON(http.StatusOK, result)
}

type testRequest struct {
	From string `json:"from"`
	Body string `json:"body"`
	Name string `json:"name"`
}

// ReceiveTest synthesizes a provider-shaped payload and runs it through the
// ordinary pipeline; handy for local development without a real subscription.
func (h *Handler) ReceiveTest(c *gin.Context) {
	var req testRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.handleError(c, errors.ErrValidation.WithMessage("invalid request body").WithCause(err))
			return
		}
	}

	payload := GenerateTestPayload(req.From, req.Body, req.Name)
	result, err := h.service.ProcessPayload(c.Request.Context(), payload)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payload": payload,
		"result":  result,
	})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "webhook request failed",
		"path", c.FullPath(),
		"error", err,
	)
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}
