package models

import (
	"time"
)

// User defines the account model shared by every store
type User struct {
	ID              string    `json:"id" db:"id" example:"4c0f7f1e-8a0c-4a53-9f5e-0f8b5b2c7d11"`
	Name            string    `json:"name" db:"name" example:"Jane Doe"`
	Username        string    `json:"username" db:"username" example:"jdoe"`
	Email           string    `json:"email" db:"email" example:"jane@example.com"`
	Password        string    `json:"-" db:"password"`
	Phone           string    `json:"phone" db:"phone" example:"+905551112233"`
	Role            RoleType  `json:"role" db:"role" example:"student"`
	Grade           string    `json:"grade,omitempty" db:"grade" example:"12"`
	EnrolledCourses []string  `json:"enrolledCourses" db:"-"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
