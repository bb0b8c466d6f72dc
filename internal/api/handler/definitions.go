package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/viridial-group/realestate-sub003/internal/api/dto"
	"github.com/viridial-group/realestate-sub003/internal/core/ports"
	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/query"
)

func (h *WorkflowHandler) ListDefinitions(c *gin.Context) {
	var q dto.DefinitionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.writeError(c, badRequest(err))
		return
	}
	orgID, err := optionalID("organization_id", q.OrganizationID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	filter := query.WorkflowFilter{
		OrganizationID: orgID,
		Action:         q.Action,
		TargetType:     q.TargetType,
		TargetID:       q.TargetID,
		Statuses:       statuses[domain.DefinitionStatus](q.Status),
	}
	page, err := h.service.ListVisibleWorkflows(c.Request.Context(), permissionContext(c), filter, ports.Page{Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapPage(page.Items, page.Total, page.Limit, page.Offset, dto.FromDefinition))
}

func (h *WorkflowHandler) CreateDefinition(c *gin.Context) {
	var req dto.DefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, badRequest(err))
		return
	}
	draft, err := req.ToDraft()
	if err != nil {
		h.writeError(c, badRequest(err))
		return
	}
	def, err := h.service.CreateDefinition(c.Request.Context(), permissionContext(c), draft)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromDefinition(def))
}

func (h *WorkflowHandler) UpdateDefinition(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	var req dto.DefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, badRequest(err))
		return
	}
	draft, err := req.ToDraft()
	if err != nil {
		h.writeError(c, badRequest(err))
		return
	}
	def, err := h.service.UpdateDraft(c.Request.Context(), permissionContext(c), id, draft)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromDefinition(def))
}

func (h *WorkflowHandler) GetDefinition(c *gin.Context) {
	h.definitionOp(c, h.service.GetDefinition)
}

func (h *WorkflowHandler) ActivateDefinition(c *gin.Context) {
	h.definitionOp(c, h.service.ActivateDefinition)
}

func (h *WorkflowHandler) ArchiveDefinition(c *gin.Context) {
	h.definitionOp(c, h.service.ArchiveDefinition)
}

func (h *WorkflowHandler) DeactivateDefinition(c *gin.Context) {
	h.definitionOp(c, h.service.DeactivateDefinition)
}

func (h *WorkflowHandler) ReactivateDefinition(c *gin.Context) {
	h.definitionOp(c, h.service.ReactivateDefinition)
}

func (h *WorkflowHandler) SetDefaultDefinition(c *gin.Context) {
	h.definitionOp(c, h.service.SetDefaultDefinition)
}

func (h *WorkflowHandler) DuplicateDefinition(c *gin.Context) {
	var req dto.DuplicateRequest
	// the body is optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.writeError(c, badRequest(err))
			return
		}
	}
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	def, err := h.service.DuplicateDefinition(c.Request.Context(), permissionContext(c), id, req.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromDefinition(def))
}

func (h *WorkflowHandler) DeleteDefinition(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.service.DeleteDefinition(c.Request.Context(), permissionContext(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type definitionFunc func(context.Context, *domain.PermissionContext, uuid.UUID) (*domain.WorkflowDefinition, error)

func (h *WorkflowHandler) definitionOp(c *gin.Context, op definitionFunc) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	def, err := op(c.Request.Context(), permissionContext(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromDefinition(def))
}
