// Package policy holds the single authorization gate every task route goes through.
//
// Existence is the caller's concern: look the task up first, answer NotFound if
// it is absent, and only then ask the gate. A denial on an existing task is
// reported as Forbidden, so non-participants learn that the task exists.
package policy

import (
	"taskini/internal/domain/model"
)

type Operation int

const (
	OpRead Operation = iota
	OpUpdate
	OpDelete
)

func (op Operation) String() string {
	switch op {
	case OpRead:
		return "read"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

type Reason int

const (
	ReasonOwner Reason = iota
	ReasonAssignee
	ReasonAdmin
	ReasonNotParticipant
	ReasonAssigneeCannotDelete
)

func (r Reason) String() string {
	switch r {
	case ReasonOwner:
		return "owner"
	case ReasonAssignee:
		return "assignee"
	case ReasonAdmin:
		return "admin"
	case ReasonNotParticipant:
		return "not-participant"
	case ReasonAssigneeCannotDelete:
		return "assignee-cannot-delete"
	}
	return "unknown"
}

// Decision is the gate's verdict together with the rule that produced it.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow(r Reason) Decision { return Decision{Allowed: true, Reason: r} }
func deny(r Reason) Decision  { return Decision{Allowed: false, Reason: r} }

// CanAccess decides whether caller may perform op on an existing task.
// Owners may do everything, assignees may read and update, admins may do everything.
func CanAccess(caller model.Caller, task *model.Task, op Operation) Decision {
	switch {
	case task.IsOwnedBy(caller.ID):
		return allow(ReasonOwner)
	case caller.IsAdmin():
		return allow(ReasonAdmin)
	case task.IsAssignedTo(caller.ID):
		if op == OpDelete {
			return deny(ReasonAssigneeCannotDelete)
		}
		return allow(ReasonAssignee)
	default:
		return deny(ReasonNotParticipant)
	}
}

// Scope describes which tasks a caller may list.
type Scope struct {
	All           bool
	ParticipantID string
}

// ListScope gives admins every task and everyone else the tasks they own or are assigned.
func ListScope(caller model.Caller) Scope {
	if caller.IsAdmin() {
		return Scope{All: true}
	}
	return Scope{ParticipantID: caller.ID}
}

// Filter turns the scope into a store filter.
func (s Scope) Filter() model.TaskFilter {
	if s.All {
		return model.TaskFilter{}
	}
	return model.TaskFilter{ParticipantID: s.ParticipantID}
}
