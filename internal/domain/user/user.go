package user

import (
	"errors"
	"time"
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

const (
	DefaultProfilePicture = "https://res.cloudinary.com/dqj0xg3zv/image/upload/v1698236482/DefaultProfilePicture.png"
	DefaultBio            = "Hey there! I am using BSEBCampus."
)

var (
	ErrNotFound = errors.New("user not found")

	// uniqueness conflicts, one per constrained column
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
	ErrPhoneTaken    = errors.New("phone number already registered")
)

// User is the persisted credential record. PasswordHash never serializes.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"number"`
	PasswordHash   string    `json:"-"`
	Role           string    `json:"role"`
	ProfilePicture string    `json:"profilePicture"`
	Grade          string    `json:"grade"`
	Stream         string    `json:"stream"`
	Bio            string    `json:"bio"`
	Subjects       []string  `json:"subjects"`
	Verified       bool      `json:"verified"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	default:
		return false
	}
}
