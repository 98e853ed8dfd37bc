package auth

import "time"

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// User is a staff account allowed to sign in to the back office.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// RegisterRequest contains the data needed to create a staff account.
type RegisterRequest struct {
	Username string `validate:"required,max=50"`
	Password string `validate:"required"`
	Role     Role
}

// LoginRequest contains user login credentials.
type LoginRequest struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}
