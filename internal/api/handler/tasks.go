package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viridial-group/realestate-sub003/internal/api/dto"
	"github.com/viridial-group/realestate-sub003/internal/core/ports"
	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/query"
)

func (h *WorkflowHandler) ListTasks(c *gin.Context) {
	var q dto.TaskQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.writeError(c, badRequest(err))
		return
	}
	instanceID, err := optionalID("instance_id", q.InstanceID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	workflowID, err := optionalID("workflow_id", q.WorkflowID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	filter := query.TaskFilter{
		InstanceID: instanceID,
		WorkflowID: workflowID,
		Statuses:   statuses[domain.TaskStatus](q.Status),
		Assignee:   q.Assignee,
		Due:        query.Range{From: q.DueAfter, To: q.DueBefore},
	}
	if q.Overdue {
		filter.Statuses = domain.OpenStatuses
		if filter.Due.To.IsZero() {
			filter.Due.To = h.now()
		}
	}
	page, err := h.service.ListVisibleTasks(c.Request.Context(), permissionContext(c), filter, ports.Page{Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapPage(page.Items, page.Total, page.Limit, page.Offset, dto.FromTask))
}

func (h *WorkflowHandler) GetTask(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	task, err := h.service.GetTask(c.Request.Context(), permissionContext(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTask(task))
}

func (h *WorkflowHandler) CompleteTask(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	var req dto.CompleteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.writeError(c, badRequest(err))
			return
		}
	}
	out, err := h.service.CompleteTask(c.Request.Context(), permissionContext(c), id, req.Comments)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromOutcome(out))
}

func (h *WorkflowHandler) RejectTask(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	var req dto.RejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.writeError(c, badRequest(err))
			return
		}
	}
	out, err := h.service.RejectTask(c.Request.Context(), permissionContext(c), id, req.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromOutcome(out))
}

func (h *WorkflowHandler) ClaimTask(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	task, err := h.service.ClaimTask(c.Request.Context(), permissionContext(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTask(task))
}
