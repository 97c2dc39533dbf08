package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/flowingduskpro/shuangxiangapp/internal/domain"
	"github.com/flowingduskpro/shuangxiangapp/internal/repository"
	"github.com/flowingduskpro/shuangxiangapp/internal/service"
	"github.com/flowingduskpro/shuangxiangapp/pkg/log"
	"github.com/flowingduskpro/shuangxiangapp/pkg/response"
)

// HTTPHandler serves the session provisioning REST endpoints and the
// out-of-band reconciliation trigger.
type HTTPHandler struct {
	sessions   repository.ClassSessionRepository
	reconciler *service.Reconciler
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(sessions repository.ClassSessionRepository, reconciler *service.Reconciler) *HTTPHandler {
	return &HTTPHandler{
		sessions:   sessions,
		reconciler: reconciler,
	}
}

// RegisterRoutes registers all REST routes.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.POST("/class-sessions", h.CreateClassSession)
	r.GET("/class-sessions/:id", h.GetClassSession)
	r.POST("/class-sessions/:id/reconcile", h.ReconcileClassSession)
	r.GET("/health", h.Health)
}

// CreateSessionRequest is the body for POST /class-sessions.
type CreateSessionRequest struct {
	ClassID string `json:"class_id" binding:"required"`
}

// ClassSessionResponse is the representation returned by the REST layer.
type ClassSessionResponse struct {
	ClassSessionID string `json:"class_session_id"`
	ClassID        string `json:"class_id"`
}

// CreateClassSession mints a new class session id for a class.
func (h *HTTPHandler) CreateClassSession(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create session request")
		response.BadRequest(c, err.Error())
		return
	}

	session := &domain.ClassSession{ClassID: req.ClassID}
	if err := h.sessions.Create(ctx, session); err != nil {
		l.Error().Err(err).Msg("failed to create class session")
		response.InternalError(c, "failed to create class session")
		return
	}

	response.Created(c, ClassSessionResponse{
		ClassSessionID: session.ID,
		ClassID:        session.ClassID,
	})
}

// GetClassSession returns a class session by id.
func (h *HTTPHandler) GetClassSession(c *gin.Context) {
	ctx := c.Request.Context()

	session, err := h.sessions.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			response.NotFound(c, "class session not found")
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to get class session")
		response.InternalError(c, "failed to get class session")
		return
	}

	response.Success(c, ClassSessionResponse{
		ClassSessionID: session.ID,
		ClassID:        session.ClassID,
	})
}

// ReconcileResponse carries the reconciled counter values.
type ReconcileResponse struct {
	ClassSessionID  string `json:"class_session_id"`
	JoinedCount     int64  `json:"joined_count"`
	EnterEventCount int64  `json:"enter_event_count"`
}

// ReconcileClassSession recomputes a session's counters from the event log
// plus live membership and overwrites the counter store.
func (h *HTTPHandler) ReconcileClassSession(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := h.sessions.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			response.NotFound(c, "class session not found")
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to get class session")
		response.InternalError(c, "failed to get class session")
		return
	}

	counts, err := h.reconciler.Reconcile(ctx, id)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldClassSessionID, id).Msg("reconciliation failed")
		response.InternalError(c, "reconciliation failed")
		return
	}

	response.Success(c, ReconcileResponse{
		ClassSessionID:  id,
		JoinedCount:     counts.Joined,
		EnterEventCount: counts.EnterEvents,
	})
}

// Health reports liveness.
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
