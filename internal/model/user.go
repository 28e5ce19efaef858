// Package model defines the data structures used throughout the application.
package model

import "time"

// Role is the flat permission level of a User.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered account.
//
// ConfirmationCode holds the bcrypt hash of the last issued confirmation code,
// never the code itself. IsSuperuser grants administrative access regardless
// of Role and is only settable from the command line.
type User struct {
	ID               int64     `json:"-"          db:"id"`
	Username         string    `json:"username"   db:"username"`
	Email            string    `json:"email"      db:"email"`
	FirstName        string    `json:"first_name" db:"first_name"`
	LastName         string    `json:"last_name"  db:"last_name"`
	Bio              string    `json:"bio"        db:"bio"`
	Role             Role      `json:"role"       db:"role"`
	ConfirmationCode string    `json:"-"          db:"confirmation_code"`
	IsSuperuser      bool      `json:"-"          db:"is_superuser"`
	DateJoined       time.Time `json:"-"          db:"date_joined"`
}

func (u *User) IsUser() bool      { return u.Role == RoleUser }
func (u *User) IsModerator() bool { return u.Role == RoleModerator }
func (u *User) IsAdmin() bool     { return u.Role == RoleAdmin }
