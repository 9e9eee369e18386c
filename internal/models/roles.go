package models

// Role tags an account as a student (mess subscriber) or a mess manager.
type Role string

const (
	RoleStudent Role = "student"
	RoleManager Role = "manager"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleManager
}
