package model

// StudentProfile is the academic record of a student. Its ID is the owning
// User's ID; the row is created together with a student User and removed
// before it.
type StudentProfile struct {
	ID         int64  `json:"id"         db:"id"`
	Name       string `json:"name"       db:"name"`
	Marks      int    `json:"marks"      db:"marks"`
	Attendance int    `json:"attendance" db:"attendance"`
}

// ProfileView merges a student's identity with their profile for
// GET /student/profile.
type ProfileView struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Name       string `json:"name"`
	Marks      int    `json:"marks"`
	Attendance int    `json:"attendance"`
}

// NewProfileView combines u and p. Callers guarantee p.ID == u.ID.
func NewProfileView(u *User, p *StudentProfile) ProfileView {
	return ProfileView{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		Name:       p.Name,
		Marks:      p.Marks,
		Attendance: p.Attendance,
	}
}
