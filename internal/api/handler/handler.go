// Package handler exposes the approval service over HTTP with gin.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/viridial-group/realestate-sub003/internal/api/dto"
	"github.com/viridial-group/realestate-sub003/internal/apperr"
	"github.com/viridial-group/realestate-sub003/internal/core/ports"
	"github.com/viridial-group/realestate-sub003/internal/service"
)

type WorkflowHandler struct {
	service     *service.WorkflowService
	permissions ports.PermissionProvider
	logger      *zap.Logger
	now         func() time.Time
}

func NewWorkflowHandler(svc *service.WorkflowService, permissions ports.PermissionProvider, logger *zap.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		service:     svc,
		permissions: permissions,
		logger:      logger.Named("http"),
		now:         time.Now,
	}
}

// Router builds the engine with every route mounted.
func (h *WorkflowHandler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.accessLog(), countRequests())

	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1", h.identify())
	{
		api.GET("/workflows/resolve", h.ResolveWorkflow)
		api.POST("/workflows/start", h.StartWorkflow)

		api.GET("/definitions", h.ListDefinitions)
		api.POST("/definitions", h.CreateDefinition)
		api.GET("/definitions/:id", h.GetDefinition)
		api.PUT("/definitions/:id", h.UpdateDefinition)
		api.DELETE("/definitions/:id", h.DeleteDefinition)
		api.POST("/definitions/:id/activate", h.ActivateDefinition)
		api.POST("/definitions/:id/archive", h.ArchiveDefinition)
		api.POST("/definitions/:id/deactivate", h.DeactivateDefinition)
		api.POST("/definitions/:id/reactivate", h.ReactivateDefinition)
		api.POST("/definitions/:id/default", h.SetDefaultDefinition)
		api.POST("/definitions/:id/duplicate", h.DuplicateDefinition)

		api.GET("/instances", h.ListInstances)
		api.GET("/instances/:id", h.GetInstance)

		api.GET("/tasks", h.ListTasks)
		api.GET("/tasks/:id", h.GetTask)
		api.POST("/tasks/:id/complete", h.CompleteTask)
		api.POST("/tasks/:id/reject", h.RejectTask)
		api.POST("/tasks/:id/claim", h.ClaimTask)
	}
	return router
}

func (h *WorkflowHandler) writeError(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	msg := "server error"
	var e *apperr.Error
	if errors.As(err, &e) {
		msg = e.Msg
	}
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Code: code.String(), Message: msg})
}

func badRequest(err error) error {
	return apperr.New(apperr.InvalidArgument, err.Error(), err)
}

func pathID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.InvalidArgument, "id must be a uuid", err)
	}
	return id, nil
}

// optionalID parses s when non-empty.
func optionalID(name, s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, apperr.Newf(apperr.InvalidArgument, "%s must be a uuid", name)
	}
	return &id, nil
}

func statuses[S ~string](in []string) []S {
	if len(in) == 0 {
		return nil
	}
	out := make([]S, len(in))
	for i, s := range in {
		out[i] = S(s)
	}
	return out
}
