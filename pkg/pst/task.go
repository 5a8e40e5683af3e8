package pst

import (
	"time"

	"github.com/joshuapare/pstkit/internal/format"
	"github.com/joshuapare/pstkit/pkg/types"
)

// Task is the typed view over an IPM.Task item. Its fields are named
// properties under PSETID_Task.
type Task struct {
	*Message
}

// Kind implements Entity.
func (t *Task) Kind() Kind { return KindTask }

// DueDate returns the task due date.
func (t *Task) DueDate() (time.Time, error) {
	return t.namedTime(format.PSETIDTask, types.NamedTaskDueDate)
}

// Complete reports whether the task is marked complete.
func (t *Task) Complete() (bool, error) {
	return t.namedBool(format.PSETIDTask, types.NamedTaskComplete)
}
