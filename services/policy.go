package services

import "github.com/menfessboard/menfess/models"

// Action names a privileged operation checked by Authorize.
type Action int

const (
	ActionApprove Action = iota
	ActionReject
	ActionDeleteContent
	ActionViewUnapproved
	ActionDeleteComment
	ActionListPending
	ActionListReports
	ActionSuspendUser
	ActionEditUser
	ActionListUsers
	ActionManageCategories
	ActionViewDashboard
)

var actionNames = map[Action]string{
	ActionApprove:          "approve",
	ActionReject:           "reject",
	ActionDeleteContent:    "delete_content",
	ActionViewUnapproved:   "view_unapproved",
	ActionDeleteComment:    "delete_comment",
	ActionListPending:      "list_pending",
	ActionListReports:      "list_reports",
	ActionSuspendUser:      "suspend_user",
	ActionEditUser:         "edit_user",
	ActionListUsers:        "list_users",
	ActionManageCategories: "manage_categories",
	ActionViewDashboard:    "view_dashboard",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "unknown"
}

// Resource describes what an action targets. OwnerID is the author of the
// content or comment; TargetRole is the role of a user being moderated.
type Resource struct {
	OwnerID    uint
	TargetRole string
}

// Authorize decides whether actor may perform action on res. It returns nil,
// ErrUnauthenticated for a nil actor, or ErrForbidden.
func Authorize(actor *Actor, action Action, res Resource) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	allowed := false
	switch action {
	case ActionApprove, ActionReject, ActionListPending, ActionListReports:
		allowed = actor.IsStaff()
	case ActionDeleteContent, ActionViewUnapproved, ActionDeleteComment:
		allowed = actor.IsStaff() || (res.OwnerID != 0 && res.OwnerID == actor.ID)
	case ActionSuspendUser:
		allowed = actor.IsAdmin() && res.TargetRole != models.RoleAdmin
	case ActionEditUser, ActionListUsers, ActionManageCategories, ActionViewDashboard:
		allowed = actor.IsAdmin()
	}
	if !allowed {
		return newError(KindForbidden, "not allowed to %s", action)
	}
	return nil
}

// RequireActive rejects anonymous and suspended actors.
func RequireActive(actor *Actor) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if actor.Suspended {
		return ErrAccountSuspended
	}
	return nil
}

// authorizeActive combines RequireActive and Authorize.
func authorizeActive(actor *Actor, action Action, res Resource) error {
	if err := RequireActive(actor); err != nil {
		return err
	}
	return Authorize(actor, action, res)
}
