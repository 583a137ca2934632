// Package policy decides what an authenticated actor may do with a task.
// Every function is pure: callers load the task and pass it in.
package policy

import (
	"sort"
	"strings"

	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/models"

	"github.com/gofrs/uuid"
)

type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

type Action string

const (
	ActionReadTask     Action = "task:read"
	ActionEditTask     Action = "task:edit"
	ActionEditStatus   Action = "task:edit_status"
	ActionDeleteTask   Action = "task:delete"
	ActionCreateTask   Action = "task:create"
	ActionComment      Action = "task:comment"
	ActionBrowseTasks  Action = "task:browse"
	ActionRequestTask  Action = "task:request"
	ActionListAllTasks Action = "task:list_all"
	ActionDecide       Action = "request:decide"
	ActionListRequests Action = "request:list"
	ActionManageUsers  Action = "user:manage"
	ActionViewAudit    Action = "audit:view"
)

type Decision struct {
	Allowed bool
	Reason  string
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }

// Authorize evaluates action for actor. Task-scoped actions require task;
// a nil task denies them.
func Authorize(actor Actor, action Action, task *models.Task) Decision {
	switch action {
	case ActionBrowseTasks, ActionRequestTask:
		return allow("authenticated")

	case ActionCreateTask, ActionEditTask, ActionDeleteTask, ActionListAllTasks,
		ActionDecide, ActionListRequests, ActionManageUsers, ActionViewAudit:
		if actor.IsAdmin() {
			return allow("admin")
		}
		return deny("admin role required")

	case ActionReadTask, ActionComment:
		if task == nil {
			return deny("task required")
		}
		return participant(actor, task)

	case ActionEditStatus:
		if task == nil {
			return deny("task required")
		}
		if actor.IsAdmin() {
			return allow("admin")
		}
		if task.IsAssignedTo(actor.ID) {
			return allow("assignee")
		}
		return deny("only the assignee may update status")
	}

	return deny("unknown action")
}

func participant(actor Actor, task *models.Task) Decision {
	switch {
	case actor.IsAdmin():
		return allow("admin")
	case task.CreatedByID == actor.ID:
		return allow("creator")
	case task.IsAssignedTo(actor.ID):
		return allow("assignee")
	}
	return deny("not a participant of this task")
}

func CanReadTask(actor Actor, task *models.Task) bool {
	return Authorize(actor, ActionReadTask, task).Allowed
}

func CanComment(actor Actor, task *models.Task) bool {
	return Authorize(actor, ActionComment, task).Allowed
}

// Require turns a denied decision into a ForbiddenError.
func Require(actor Actor, action Action, task *models.Task) error {
	if d := Authorize(actor, action, task); !d.Allowed {
		return apperrors.Forbidden(d.Reason)
	}
	return nil
}

// Task fields accepted in an update.
const (
	FieldTitle          = "title"
	FieldDescription    = "description"
	FieldDeadline       = "deadline"
	FieldStatus         = "status"
	FieldAssignedUserID = "assignedUserId"
	FieldAssigneeEmail  = "assigneeEmail"
)

var editableFields = map[string]bool{
	FieldTitle:          true,
	FieldDescription:    true,
	FieldDeadline:       true,
	FieldStatus:         true,
	FieldAssignedUserID: true,
	FieldAssigneeEmail:  true,
}

// CheckTaskUpdate validates that actor may change the given fields of task.
// Admins may change any editable field. The assignee may change status only;
// mixing status with any other field is a validation error. Anyone else is
// forbidden.
func CheckTaskUpdate(actor Actor, task *models.Task, fields []string) error {
	if len(fields) == 0 {
		return apperrors.Validation("no fields to update")
	}

	var unknown []string
	for _, f := range fields {
		if !editableFields[f] {
			unknown = append(unknown, f)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return apperrors.Validation("unknown fields: " + strings.Join(unknown, ", "))
	}

	if actor.IsAdmin() {
		return nil
	}
	if !task.IsAssignedTo(actor.ID) {
		if CanReadTask(actor, task) {
			return apperrors.Forbidden("only an admin or the assignee may update this task")
		}
		return apperrors.Forbidden("not a participant of this task")
	}
	for _, f := range fields {
		if f != FieldStatus {
			return apperrors.Validation("only status may be updated by a non-admin")
		}
	}
	return nil
}
