package models

// Role is the capacity in which a participant acts
type Role string

const (
	RoleMentor Role = "mentor"
	RoleMentee Role = "mentee"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RoleMentor || r == RoleMentee
}

// Actor is the authenticated party performing an operation
type Actor struct {
	ID   string
	Role Role
}
