// Package models contains the data models for the application.
package models

import (
	"time"
)

// CommentStatus is the closed set of states a comment moves through.
type CommentStatus string

const (
	CommentOpen       CommentStatus = "open"
	CommentInProgress CommentStatus = "in_progress"
	CommentResolved   CommentStatus = "resolved"
)

// Valid reports whether s is one of the recognized comment statuses.
func (s CommentStatus) Valid() bool {
	switch s {
	case CommentOpen, CommentInProgress, CommentResolved:
		return true
	}
	return false
}

// AnonymousAuthor is recorded when a comment is submitted without a name.
const AnonymousAuthor = "Anonymous"

// Comment is a positional annotation pinned to a point on the project's page.
// X and Y are pixel offsets relative to the annotated viewport at capture
// time; they are not resolution-independent.
type Comment struct {
	ID        string        `json:"id"`
	ProjectID string        `json:"project_id"`
	X         float64       `json:"x"`
	Y         float64       `json:"y"`
	Comment   string        `json:"comment"`
	Author    string        `json:"author"`
	ImageURL  *string       `json:"image_url,omitempty"`
	Status    CommentStatus `json:"status"`
	ParentID  *string       `json:"parent_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// CreateCommentRequest represents the request body for creating a comment.
// Author and image URL are optional; the image must already have been
// uploaded, only its resolved URL is accepted here.
type CreateCommentRequest struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Comment  string  `json:"comment" binding:"required"`
	Author   string  `json:"author"`
	ImageURL *string `json:"image_url,omitempty"`
	ParentID *string `json:"parent_id,omitempty"`
}

// SetCommentStatusRequest represents the request body for a status change.
type SetCommentStatusRequest struct {
	Status CommentStatus `json:"status" binding:"required"`
}

// CommentResponse wraps a single comment in the API response.
type CommentResponse struct {
	Data Comment `json:"data"`
}

// CommentsResponse wraps multiple comments in the API response.
type CommentsResponse struct {
	Data []Comment `json:"data"`
}

// CommentThreadsResponse wraps the threaded comment index in the API response.
type CommentThreadsResponse struct {
	Data CommentThreads `json:"data"`
}

// CommentThreads indexes replies by their parent comment ID. Top-level
// comments (no parent) are keyed under the empty string.
type CommentThreads map[string][]Comment

// ThreadComments builds the parent-to-children index over a flat comment
// list. Order within each bucket follows the input order.
func ThreadComments(comments []Comment) CommentThreads {
	threads := make(CommentThreads)
	for _, c := range comments {
		key := ""
		if c.ParentID != nil {
			key = *c.ParentID
		}
		threads[key] = append(threads[key], c)
	}
	return threads
}
