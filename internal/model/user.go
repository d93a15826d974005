// Package model defines the data structures used throughout the application.
package model

// Role literals. They are compared exactly and case-sensitively; the
// capital T in RoleTeacher is what existing clients send.
const (
	RoleStudent = "student"
	RoleTeacher = "Teacher"
)

// User is an identity record: one row per registered student or teacher.
//
// PasswordHash carries a `json:"-"` tag so a User can be written straight
// into an HTTP response without ever exposing the bcrypt digest.
type User struct {
	ID           int64  `json:"id"       db:"id"`
	Username     string `json:"username" db:"username"`
	Email        string `json:"email"    db:"email"`
	PasswordHash string `json:"-"        db:"password"`
	Role         string `json:"role"     db:"role"`
}

// IsStudent reports whether u has the student role.
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// IsTeacher reports whether u has the teacher role.
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
