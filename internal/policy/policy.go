// Package policy holds the pure access-control decisions for the workflow.
// Decisions depend only on the principal's role and project binding; they
// never touch storage.
package policy

import (
	"github.com/markloop/backend/internal/models"
)

// Action enumerates the operations the policy gates.
type Action string

const (
	ActionCreateComment    Action = "create_comment"
	ActionSetCommentStatus Action = "set_comment_status"
	ActionCreateRequest    Action = "create_request"
	ActionAppendReply      Action = "append_reply"
	ActionTransitionStatus Action = "transition_status"
	ActionView             Action = "view"
	ActionCreateProject    Action = "create_project"
	ActionRenameProject    Action = "rename_project"
)

// Allows decides whether the principal may perform action against entities
// of the given project. A nil principal is an anonymous caller: allowed to
// leave comments and to view, nothing else.
//
// Project scoping: authenticated principals may only act within their own
// project; anonymous callers carry no binding and pass the scope check for
// comment creation and viewing (the invite-link flow).
func Allows(p *models.Principal, action Action, projectID string) bool {
	if p == nil {
		switch action {
		case ActionCreateComment, ActionView:
			return true
		}
		return false
	}

	// The isolation invariant: no action crosses project boundaries, reads
	// included. Project creation happens before a binding exists.
	if action != ActionCreateProject && p.ProjectID != projectID {
		return false
	}

	switch p.Role {
	case models.RoleClient:
		switch action {
		case ActionCreateComment, ActionCreateRequest, ActionView:
			return true
		}
		return false
	case models.RoleDesigner:
		switch action {
		case ActionCreateComment, // internal notes
			ActionSetCommentStatus,
			ActionAppendReply,
			ActionTransitionStatus,
			ActionView,
			ActionCreateProject,
			ActionRenameProject:
			return true
		}
		return false
	}
	return false
}
