package apperr

import "net/http"

type Code int

const (
	Unknown = Code(iota)
	NotFound
	InvalidDefinition
	NotAuthorized
	InvalidStateTransition
	AlreadyCompleted
	NoWorkflowDefined
	InvalidArgument
	Conflict
	Internal
)

var codeNames = map[Code]string{
	Unknown:                "unknown",
	NotFound:               "not_found",
	InvalidDefinition:      "invalid_definition",
	NotAuthorized:          "not_authorized",
	InvalidStateTransition: "invalid_state_transition",
	AlreadyCompleted:       "already_completed",
	NoWorkflowDefined:      "no_workflow_defined",
	InvalidArgument:        "invalid_argument",
	Conflict:               "conflict",
	Internal:               "internal",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return codeNames[Unknown]
}

func (c Code) HTTPStatus() int {
	switch c {
	case NotFound, NoWorkflowDefined:
		return http.StatusNotFound
	case InvalidDefinition:
		return http.StatusUnprocessableEntity
	case NotAuthorized:
		return http.StatusForbidden
	case InvalidStateTransition, AlreadyCompleted, Conflict:
		return http.StatusConflict
	case InvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
