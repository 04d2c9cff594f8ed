package model

import "time"

// Faculty represents a faculty user who authors assessments.
type Faculty struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Subject      string    `json:"subject"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FacultyLoginRequest is the payload for faculty authentication.
type FacultyLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// FacultyLoginResponse is returned after successful faculty login.
type FacultyLoginResponse struct {
	Token   string   `json:"token"`
	Faculty *Faculty `json:"faculty"`
}
