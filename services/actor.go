package services

import "strings"

// Actor is the authenticated caller, as forwarded by the gateway.
// It is passed explicitly to every flow that needs to know who is acting.
type Actor struct {
	UserID string
	Email  string
	Roles  []string
}

func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// IsStaff is true for counter staff and admins.
func (a Actor) IsStaff() bool {
	return a.HasRole("admin") || a.HasRole("staff")
}

// Label identifies the actor in audit fields: email when known, user ID otherwise.
func (a Actor) Label() string {
	if a.Email != "" {
		return a.Email
	}
	return a.UserID
}
