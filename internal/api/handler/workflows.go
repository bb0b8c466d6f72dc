package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/viridial-group/realestate-sub003/internal/api/dto"
	"github.com/viridial-group/realestate-sub003/internal/core/ports"
	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/query"
	"github.com/viridial-group/realestate-sub003/internal/service"
)

func (h *WorkflowHandler) ResolveWorkflow(c *gin.Context) {
	var req dto.ResolveRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.writeError(c, badRequest(err))
		return
	}
	orgID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		h.writeError(c, badRequest(err))
		return
	}
	target := domain.Target{Type: req.TargetType, ID: req.TargetID}
	def, err := h.service.ResolveWorkflow(c.Request.Context(), permissionContext(c), orgID, req.Action, target)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromDefinition(def))
}

// StartWorkflow answers 201 with the instance, or 200 with started=false
// when skip_if_undefined is set and no workflow governs the action.
func (h *WorkflowHandler) StartWorkflow(c *gin.Context) {
	var req dto.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, badRequest(err))
		return
	}
	start := service.StartRequest{
		OrganizationID: req.OrganizationID,
		Action:         req.Action,
		Target:         domain.Target{Type: req.TargetType, ID: req.TargetID},
	}
	pc := permissionContext(c)

	var (
		inst    *domain.WorkflowInstance
		tasks   []domain.Task
		started = true
		err     error
	)
	if req.SkipIfUndefined {
		inst, tasks, started, err = h.service.StartOrSkip(c.Request.Context(), pc, start)
	} else {
		inst, tasks, err = h.service.StartWorkflow(c.Request.Context(), pc, start)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !started {
		c.JSON(http.StatusOK, dto.StartResponse{Started: false})
		return
	}
	resp := dto.FromInstance(inst, tasks)
	c.JSON(http.StatusCreated, dto.StartResponse{Started: true, Instance: &resp})
}

func (h *WorkflowHandler) ListInstances(c *gin.Context) {
	var q dto.InstanceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.writeError(c, badRequest(err))
		return
	}
	defID, err := optionalID("definition_id", q.DefinitionID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	filter := query.InstanceFilter{
		DefinitionID: defID,
		Action:       q.Action,
		TargetType:   q.TargetType,
		TargetID:     q.TargetID,
		Statuses:     statuses[domain.InstanceStatus](q.Status),
	}
	page, err := h.service.ListVisibleInstances(c.Request.Context(), permissionContext(c), filter, ports.Page{Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapPage(page.Items, page.Total, page.Limit, page.Offset, func(inst *domain.WorkflowInstance) dto.InstanceResponse {
		return dto.FromInstance(inst, nil)
	}))
}

func (h *WorkflowHandler) GetInstance(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	inst, err := h.service.GetInstance(c.Request.Context(), permissionContext(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromInstance(inst, nil))
}
