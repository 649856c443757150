package forum

import (
	"pkg.mon.icu/forum/internal/storage/entity"
)

// Actor is the authenticated caller of a service operation. The zero Actor is anonymous.
type Actor struct {
	UserID entity.Ref
	Role   entity.Role
}

func NewActor(userID entity.Ref, role entity.Role) Actor {
	if role == "" {
		role = entity.RoleUser
	}
	return Actor{UserID: userID, Role: role}
}

func (a Actor) Authenticated() bool {
	return a.UserID != 0
}

func (a Actor) IsAdmin() bool {
	return a.Authenticated() && a.Role == entity.RoleAdmin
}

// CanModify reports whether the actor may edit or delete content authored by authorID.
func (a Actor) CanModify(authorID entity.Ref) bool {
	return a.Authenticated() && (a.UserID == authorID || a.IsAdmin())
}
