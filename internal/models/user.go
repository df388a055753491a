package models

import "time"

// User is a single account record. Roles are a flat tag rather than a
// table-per-type hierarchy; student-only fields live in StudentProfile.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:20;not null;default:student" json:"role"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	// RoleStudent identifies exam-taking accounts.
	RoleStudent = "student"
	// RoleAdmin identifies accounts allowed to manage the question pool and override scores.
	RoleAdmin = "admin"
)

// IsAdmin reports whether the user holds the administrative capability set.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// StudentProfile carries student-only attributes, keyed by the user id.
type StudentProfile struct {
	UserID        uint   `gorm:"primaryKey" json:"user_id"`
	StudentNumber string `gorm:"size:20;uniqueIndex" json:"student_number"`
}
