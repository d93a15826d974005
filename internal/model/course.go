package model

// Course is a catalog entry. The ID is chosen by the teacher who adds it.
type Course struct {
	ID          int64  `json:"id"          db:"id"`
	Name        string `json:"name"        db:"name"`
	Description string `json:"description" db:"description"`
}
