package models

import (
	"time"
)

// RequestStatus is the closed set of states an edit request moves through.
type RequestStatus string

const (
	RequestOpen       RequestStatus = "open"
	RequestInProgress RequestStatus = "in_progress"
	RequestCompleted  RequestStatus = "completed"
)

// Valid reports whether s is one of the recognized request statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestOpen, RequestInProgress, RequestCompleted:
		return true
	}
	return false
}

// Reply is a single designer response on an edit request. Replies are
// append-only: once persisted they are never reordered or rewritten.
type Reply struct {
	Message   string    `json:"message"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// EditRequest is a structured change request filed by a client and worked
// by the designer.
type EditRequest struct {
	ID          string        `json:"id"`
	ProjectID   string        `json:"project_id"`
	PageURL     string        `json:"page_url"`
	SectionID   *string       `json:"section_id,omitempty"`
	Message     string        `json:"message"`
	Status      RequestStatus `json:"status"`
	SubmittedBy *string       `json:"submitted_by,omitempty"`
	Replies     []Reply       `json:"replies"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// CreateEditRequestRequest represents the request body for filing an edit request.
type CreateEditRequestRequest struct {
	PageURL   string  `json:"page_url" binding:"required"`
	Message   string  `json:"message" binding:"required"`
	SectionID *string `json:"section_id,omitempty"`
}

// AppendReplyRequest represents the request body for replying to an edit request.
type AppendReplyRequest struct {
	Message string `json:"message" binding:"required"`
}

// TransitionRequestStatusRequest represents the request body for a status change.
type TransitionRequestStatusRequest struct {
	Status RequestStatus `json:"status" binding:"required"`
}

// EditRequestResponse wraps a single edit request in the API response.
type EditRequestResponse struct {
	Data EditRequest `json:"data"`
}

// EditRequestsResponse wraps multiple edit requests in the API response.
type EditRequestsResponse struct {
	Data []EditRequest `json:"data"`
}
