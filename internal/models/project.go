package models

import (
	"time"
)

// Role is a principal's fixed role within a project.
type Role string

const (
	RoleClient   Role = "client"
	RoleDesigner Role = "designer"
)

// Valid reports whether r is one of the recognized roles.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleDesigner:
		return true
	}
	return false
}

// Project is the collaboration scope that owns all comments and edit
// requests. It is created once by a designer and immutable afterwards
// except for rename.
type Project struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	DesignerID   string    `json:"designer_id"`
	CreatedBy    string    `json:"created_by"`
	Slug         *string   `json:"slug,omitempty"`
	ClientSecret *string   `json:"client_secret,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile binds an identity-provider user to one project and one role for
// its lifetime. Profiles are created by the identity collaborator; the core
// only reads them.
type Profile struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	ProjectID string    `json:"project_id"`
	Email     *string   `json:"email,omitempty"`
	Name      *string   `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Principal is the resolved caller of an operation: an authenticated user
// bound to a project and role. A nil *Principal means an anonymous caller.
// Every core operation takes the principal as an explicit argument; there
// is no ambient session state.
type Principal struct {
	UserID    string `json:"user_id"`
	Role      Role   `json:"role"`
	ProjectID string `json:"project_id"`
}

// CreateProjectRequest represents the request body for creating a project.
type CreateProjectRequest struct {
	Name string `json:"name" binding:"required,max=256"`
	URL  string `json:"url" binding:"required"`
}

// RenameProjectRequest represents the request body for renaming a project.
type RenameProjectRequest struct {
	Name string `json:"name" binding:"required,max=256"`
}

// ProjectResponse wraps a single project in the API response.
type ProjectResponse struct {
	Data Project `json:"data"`
}

// UploadResponse carries the public URL of a stored image.
type UploadResponse struct {
	URL string `json:"url"`
}

// ErrorResponse represents an error response from the API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
