package models

import (
	"time"
)

// User represents a dating profile
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never send to client
	Age          int       `json:"age"`
	Bio          string    `json:"bio"`
	Images       []string  `json:"images"`
	Interests    []string  `json:"interests"`
	IsPremium    bool      `json:"is_premium"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserRegistration contains data needed for user registration
type UserRegistration struct {
	Name     string `json:"name" binding:"required,min=1,max=60"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=5,max=72"`
}

// UserLogin contains data needed for user login
type UserLogin struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserResponse is what we return to the client
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Age       int       `json:"age"`
	Bio       string    `json:"bio"`
	Images    []string  `json:"images"`
	Interests []string  `json:"interests"`
	IsPremium bool      `json:"is_premium"`
	CreatedAt time.Time `json:"created_at"`
}

// Response strips private fields. Email is only kept for the owner.
func (u *User) Response(self bool) UserResponse {
	r := UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Age:       u.Age,
		Bio:       u.Bio,
		Images:    u.Images,
		Interests: u.Interests,
		IsPremium: u.IsPremium,
		CreatedAt: u.CreatedAt,
	}
	if self {
		r.Email = u.Email
	}
	return r
}

// ProfileUpdate carries the editable profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	Name      *string   `json:"name" binding:"omitempty,min=1,max=60"`
	Age       *int      `json:"age" binding:"omitempty,min=18,max=120"`
	Bio       *string   `json:"bio" binding:"omitempty,max=500"`
	Images    *[]string `json:"images" binding:"omitempty,max=6,dive,url"`
	Interests *[]string `json:"interests" binding:"omitempty,max=10,dive,min=1,max=40"`
}

// Apply copies the set fields onto u
func (p ProfileUpdate) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Age != nil {
		u.Age = *p.Age
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Images != nil {
		u.Images = append([]string{}, (*p.Images)...)
	}
	if p.Interests != nil {
		u.Interests = append([]string{}, (*p.Interests)...)
	}
}
