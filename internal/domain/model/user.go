package model

import (
	"time"
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

type User struct {
	ID             string    `json:"id" bson:"_id"`
	Name           string    `json:"name" bson:"name"`
	Email          string    `json:"email" bson:"email"`
	HashedPassword string    `json:"-" bson:"password"` // Not exposed
	Role           string    `json:"role" bson:"role"`
	ProfilePhoto   string    `json:"profilePhoto" bson:"profilePhoto,omitempty"`
	Bio            string    `json:"bio" bson:"bio,omitempty"`
	Phone          string    `json:"phone" bson:"phone,omitempty"`
	Department     string    `json:"department" bson:"department,omitempty"`
	Position       string    `json:"position" bson:"position,omitempty"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updatedAt"`
}

// UserSummary is the public slice of a user embedded in task responses.
type UserSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	ProfilePhoto string `json:"profilePhoto"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, ProfilePhoto: u.ProfilePhoto}
}

// DirectoryEntry is what GET /users exposes for assignment pickers.
type DirectoryEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	ProfilePhoto string `json:"profilePhoto"`
	Role         string `json:"role"`
	Department   string `json:"department"`
	Position     string `json:"position"`
}

func (u *User) DirectoryEntry() DirectoryEntry {
	return DirectoryEntry{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		ProfilePhoto: u.ProfilePhoto,
		Role:         u.Role,
		Department:   u.Department,
		Position:     u.Position,
	}
}

// ProfileUpdate carries the only fields a user may change on their own record.
// Nil means "leave unchanged".
type ProfileUpdate struct {
	Name       *string `json:"name,omitempty"`
	Bio        *string `json:"bio,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Department *string `json:"department,omitempty"`
	Position   *string `json:"position,omitempty"`
}

func (p ProfileUpdate) IsEmpty() bool {
	return p.Name == nil && p.Bio == nil && p.Phone == nil && p.Department == nil && p.Position == nil
}

// Caller is the authenticated identity a request runs as.
type Caller struct {
	ID   string
	Role string
}

func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }
