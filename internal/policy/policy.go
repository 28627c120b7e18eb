// Package policy is the single authorization gate for task operations.
// Every mutation and read goes through one of these rules; handlers and
// services never make ad-hoc role checks of their own.
package policy

import (
	"errors"

	"taskhub/internal/model"
)

var ErrRoleNotAllowed = errors.New("role is not allowed to create tasks")

// Caller is the authenticated identity a decision is made for.
type Caller struct {
	ID   string
	Role model.Role
}

// Scope describes which tasks a listing should return.
type Scope struct {
	All        bool
	AssigneeID string
}

// CreateDecision fixes the ownership fields of a new task. For a User the
// requested assignee is ignored outright: they can only self-assign.
type CreateDecision struct {
	AssignedBy string
	AssignedTo string
}

type Policy struct {
	// EnforceStatusOrder restricts status changes to the forward order
	// Pending -> In Progress -> Completed. The default (false) preserves
	// the historical behavior of allowing any transition.
	EnforceStatusOrder bool
}

func (p Policy) ListScope(caller Caller) Scope {
	if caller.Role == model.RoleAdmin {
		return Scope{All: true}
	}
	return Scope{AssigneeID: caller.ID}
}

// CanRead reports whether the caller may see the task at all. Callers that
// fail this check are told the task does not exist, so a denial must never
// surface as Forbidden.
func (p Policy) CanRead(caller Caller, task *model.Task) bool {
	if caller.Role == model.RoleAdmin {
		return true
	}
	return task.AssignedTo == caller.ID
}

func (p Policy) ForCreate(caller Caller, requestedAssignee string) (CreateDecision, error) {
	switch caller.Role {
	case model.RoleUser:
		return CreateDecision{AssignedBy: caller.ID, AssignedTo: caller.ID}, nil
	case model.RoleAdmin:
		assignee := requestedAssignee
		if assignee == "" {
			assignee = caller.ID
		}
		return CreateDecision{AssignedBy: caller.ID, AssignedTo: assignee}, nil
	default:
		return CreateDecision{}, ErrRoleNotAllowed
	}
}

// CanUpdate admits admins, the assigner and the assignee. Anyone else is
// rejected outright rather than silently allowed to mutate.
func (p Policy) CanUpdate(caller Caller, task *model.Task) bool {
	if caller.Role == model.RoleAdmin {
		return true
	}
	return task.AssignedBy == caller.ID || task.AssignedTo == caller.ID
}

// CanDelete permits only the original assigner, regardless of role.
func (p Policy) CanDelete(caller Caller, task *model.Task) bool {
	return task.AssignedBy == caller.ID
}

var statusRank = map[model.Status]int{
	model.StatusPending:    0,
	model.StatusInProgress: 1,
	model.StatusCompleted:  2,
}

// AllowStatusChange reports whether a status transition is acceptable.
// Permissive by default; with EnforceStatusOrder set, a task may only move
// forward one lifecycle stage at a time.
func (p Policy) AllowStatusChange(from, to model.Status) bool {
	if !p.EnforceStatusOrder {
		return true
	}
	if from == to {
		return true
	}
	return statusRank[to] == statusRank[from]+1
}
