package models

import "time"

// Role gates what a user may manage.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// User is the authenticated principal of a session.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// IsAdmin reports whether u has the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NewUser holds registration input.
type NewUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role,omitempty"`
}

// TeamUser is an account managed by administrators.
type TeamUser struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	// PasswordHash is the bcrypt hash; seeded demo accounts have none.
	PasswordHash []byte `json:"passwordHash,omitempty"`
}

// User projects the account onto a session user.
func (t TeamUser) User() User {
	return User{ID: t.ID, Username: t.Username, Email: t.Email, Role: t.Role}
}

// TeamUserPatch is a partial account update.
type TeamUserPatch struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *Role   `json:"role,omitempty"`
}
