package domain

import (
	"errors"
	"fmt"
)

var ErrNoSteps = errors.New("definition has no steps")

type StepSequenceError struct {
	Expected        int
	Got             int
	MissingAssignee bool
}

func (e *StepSequenceError) Error() string {
	if e.MissingAssignee {
		return fmt.Sprintf("step %d has no assignee", e.Got)
	}
	return fmt.Sprintf("step numbers must be contiguous from 1: expected %d, got %d", e.Expected, e.Got)
}
