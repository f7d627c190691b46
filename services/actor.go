package services

import "github.com/menfessboard/menfess/models"

// Actor is the identity a request acts as. A nil *Actor is an anonymous visitor.
// Handlers build it from a freshly loaded user row so role and suspension
// changes apply on the next request.
type Actor struct {
	ID        uint
	Username  string
	Role      string
	Suspended bool
}

// ActorFromUser builds an Actor from a stored user; a nil user yields nil.
func ActorFromUser(u *models.User) *Actor {
	if u == nil {
		return nil
	}
	return &Actor{ID: u.ID, Username: u.Username, Role: u.Role, Suspended: u.Suspended}
}

// IsStaff reports whether the actor moderates content.
func (a *Actor) IsStaff() bool {
	return a != nil && (a.Role == models.RoleModerator || a.Role == models.RoleAdmin)
}

// IsAdmin reports whether the actor administers the site.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == models.RoleAdmin
}

func (a *Actor) id() uint {
	if a == nil {
		return 0
	}
	return a.ID
}
