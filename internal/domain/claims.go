package domain

// Role is the closed set of actor roles a credential may carry.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid reports whether the role is part of the closed enumeration.
func (r Role) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// Claims is the verified identity of a connection. Produced once per
// successful auth; immutable afterwards (re-auth replaces the whole value).
type Claims struct {
	Subject string
	Role    Role
	ClassID string
}
