package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"telesignal/internal/core/domain"
	"telesignal/internal/core/ports"
	"telesignal/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CallHandler exposes the call-lifecycle triggers the socket layer
// consumes: the state machine moves here, never inside the relay.
type CallHandler struct {
	calls  ports.CallService
	chat   ports.ChatService
	logger *zap.SugaredLogger
}

func NewCallHandler(calls ports.CallService, chat ports.ChatService, logger *zap.SugaredLogger) *CallHandler {
	return &CallHandler{calls: calls, chat: chat, logger: logger}
}

// RegisterRoutes mounts the lifecycle endpoints under the authenticated
// API group.
func (h *CallHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/appointments/:id/call/start", h.StartCall)
	group.POST("/appointments/:id/call/join", h.JoinCall)
	group.POST("/appointments/:id/call/end", h.EndCall)
	group.GET("/appointments/:id/call/status", h.CallStatus)
	group.GET("/appointments/:id/messages", h.ChatHistory)
}

func (h *CallHandler) StartCall(c *gin.Context) {
	appointmentID, userID, ok := h.params(c)
	if !ok {
		return
	}

	appointment, err := h.calls.StartCall(c.Request.Context(), appointmentID, userID, middleware.DisplayName(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, callStatusResponse(appointment))
}

func (h *CallHandler) JoinCall(c *gin.Context) {
	appointmentID, userID, ok := h.params(c)
	if !ok {
		return
	}

	appointment, err := h.calls.JoinCall(c.Request.Context(), appointmentID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, callStatusResponse(appointment))
}

func (h *CallHandler) EndCall(c *gin.Context) {
	appointmentID, userID, ok := h.params(c)
	if !ok {
		return
	}

	appointment, err := h.calls.EndCall(c.Request.Context(), appointmentID, userID, middleware.DisplayName(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, callStatusResponse(appointment))
}

func (h *CallHandler) CallStatus(c *gin.Context) {
	appointmentID, userID, ok := h.params(c)
	if !ok {
		return
	}

	appointment, err := h.calls.CallStatus(c.Request.Context(), appointmentID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, callStatusResponse(appointment))
}

func (h *CallHandler) ChatHistory(c *gin.Context) {
	appointmentID, userID, ok := h.params(c)
	if !ok {
		return
	}

	// Reuse the status path's authorization; history is party-only.
	if _, err := h.calls.CallStatus(c.Request.Context(), appointmentID, userID); err != nil {
		h.respondError(c, err)
		return
	}

	payloads, err := h.chat.History(c.Request.Context(), appointmentID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	for i := range payloads {
		payloads[i] = payloads[i].ForReceiver(userID)
	}

	c.JSON(http.StatusOK, gin.H{"messages": payloads})
}

func (h *CallHandler) params(c *gin.Context) (appointmentID, userID int64, ok bool) {
	appointmentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid appointment id"})
		return 0, 0, false
	}

	userID, ok = middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return 0, 0, false
	}
	return appointmentID, userID, true
}

func (h *CallHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrAppointmentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "appointment not found"})
	case errors.Is(err, domain.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "video call is not available"})
	default:
		h.logger.Errorw("call handler error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func callStatusResponse(appointment *domain.Appointment) gin.H {
	var startedAt interface{}
	if appointment.VideoCallStartedAt != nil {
		startedAt = appointment.VideoCallStartedAt.Format(time.RFC3339)
	}
	return gin.H{
		"status":     appointment.VideoCallStatus,
		"room_id":    appointment.VideoCallRoomID,
		"started_at": startedAt,
		"duration":   appointment.CallDuration,
	}
}
