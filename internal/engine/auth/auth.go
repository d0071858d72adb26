package auth

import (
	"fmt"

	"serenote/internal/domain"
)

const (
	PermTaskDelete  = "tasks.delete"
	PermTaskReadAny = "tasks.read.any"
)

// ForbiddenError indicates missing permission.
type ForbiddenError struct {
	Permission string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("permission %s required", e.Permission)
}

// CanDelete reports whether a member may delete t: its author, a user assignee, or
// a holder of an assignee role.
func CanDelete(t domain.Task, userID string, roleIDs []string) bool {
	if userID == "" {
		return false
	}
	if t.AuthorID == userID || t.AssignedTo(userID) {
		return true
	}
	for _, want := range t.AssigneeRoleIDs {
		for _, have := range roleIDs {
			if want == have {
				return true
			}
		}
	}
	return false
}

func AuthorizeDelete(t domain.Task, userID string, roleIDs []string) error {
	if !CanDelete(t, userID, roleIDs) {
		return ForbiddenError{Permission: PermTaskDelete}
	}
	return nil
}

func HasPermission(perms []string, perm string) bool {
	for _, p := range perms {
		if p == perm || p == "*" {
			return true
		}
	}
	return false
}

// AuthorizeRead lets a caller read its own tasks, or anyone's with tasks.read.any.
func AuthorizeRead(userID string, perms []string, assigneeID string) error {
	if assigneeID != "" && assigneeID == userID {
		return nil
	}
	if HasPermission(perms, PermTaskReadAny) {
		return nil
	}
	return ForbiddenError{Permission: PermTaskReadAny}
}
