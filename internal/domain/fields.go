package domain

// Column names shared by filters, the visibility predicate and the stores.
const (
	FieldID             = "id"
	FieldOrganizationID = "organization_id"
	FieldCreatedBy      = "created_by"
	FieldCreatedAt      = "created_at"
	FieldAction         = "action"
	FieldTargetType     = "target_type"
	FieldTargetID       = "target_id"
	FieldStatus         = "status"
	FieldActive         = "active"
	FieldIsDefault      = "is_default"
	FieldInstanceID     = "instance_id"
	FieldWorkflowID     = "workflow_id"
	FieldDefinitionID   = "definition_id"
	FieldStepNumber     = "step_number"
	FieldAssignee       = "assignee"
	FieldDueDate        = "due_date"
)

func (d *WorkflowDefinition) Value(field string) any {
	switch field {
	case FieldID:
		return d.ID
	case FieldOrganizationID:
		return d.OrganizationID
	case FieldCreatedBy:
		return d.CreatedBy
	case FieldCreatedAt:
		return d.CreatedAt
	case FieldAction:
		return d.Action
	case FieldTargetType:
		return nonEmpty(d.TargetType)
	case FieldTargetID:
		return nonEmpty(d.TargetID)
	case FieldStatus:
		return d.Status
	case FieldActive:
		return d.Active
	case FieldIsDefault:
		return d.IsDefault
	}
	return nil
}

func (w *WorkflowInstance) Value(field string) any {
	switch field {
	case FieldID:
		return w.ID
	case FieldOrganizationID:
		return w.OrganizationID
	case FieldCreatedBy:
		return w.CreatedBy
	case FieldCreatedAt:
		return w.CreatedAt
	case FieldAction:
		return w.Action
	case FieldTargetType:
		return nonEmpty(w.TargetType)
	case FieldTargetID:
		return nonEmpty(w.TargetID)
	case FieldStatus:
		return w.Status
	case FieldDefinitionID:
		return w.DefinitionID
	}
	return nil
}

func (t *Task) Value(field string) any {
	switch field {
	case FieldID:
		return t.ID
	case FieldOrganizationID:
		return t.OrganizationID
	case FieldCreatedBy:
		return t.CreatedBy
	case FieldCreatedAt:
		return t.CreatedAt
	case FieldStatus:
		return t.Status
	case FieldInstanceID:
		return t.InstanceID
	case FieldWorkflowID:
		return t.WorkflowID
	case FieldStepNumber:
		return t.StepNumber
	case FieldAssignee:
		return nonEmpty(t.Assignment.String())
	case FieldDueDate:
		if t.DueDate == nil {
			return nil
		}
		return *t.DueDate
	}
	return nil
}

func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
