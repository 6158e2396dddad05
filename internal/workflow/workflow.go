// Package workflow is the single entry point for every annotation and edit
// request operation. Each call resolves to the same sequence: validate
// input, check the access policy against the caller's project scope, then
// apply one store mutation. Either the updated entity comes back or a typed
// failure does; nothing partial is ever returned.
package workflow

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/markloop/backend/internal/apperr"
	"github.com/markloop/backend/internal/cache"
	"github.com/markloop/backend/internal/database"
	"github.com/markloop/backend/internal/models"
	"github.com/markloop/backend/internal/policy"
)

// Service is the operation surface consumed by the HTTP layer. The caller's
// principal is always an explicit argument; nil means anonymous.
type Service interface {
	CreateComment(ctx context.Context, p *models.Principal, projectID string, in *models.CreateCommentRequest) (*models.Comment, error)
	ListComments(ctx context.Context, p *models.Principal, projectID string) ([]models.Comment, error)
	SetCommentStatus(ctx context.Context, p *models.Principal, commentID string, status models.CommentStatus) (*models.Comment, error)

	CreateRequest(ctx context.Context, p *models.Principal, projectID string, in *models.CreateEditRequestRequest) (*models.EditRequest, error)
	ListRequests(ctx context.Context, p *models.Principal, projectID string) ([]models.EditRequest, error)
	AppendReply(ctx context.Context, p *models.Principal, requestID, message string) (*models.EditRequest, error)
	TransitionRequestStatus(ctx context.Context, p *models.Principal, requestID string, status models.RequestStatus) (*models.EditRequest, error)

	CreateProject(ctx context.Context, p *models.Principal, in *models.CreateProjectRequest) (*models.Project, error)
	GetProject(ctx context.Context, p *models.Principal, projectID string) (*models.Project, error)
	RenameProject(ctx context.Context, p *models.Principal, projectID, name string) (*models.Project, error)
	Profile(ctx context.Context, p *models.Principal) (*models.Profile, error)
}

// Workflow implements Service over the database repositories, with the
// project-scoped listings served through the cache. Listing reads happen
// behind the same policy check as everything else, which is why the cache
// lives here and not in the HTTP layer.
type Workflow struct {
	repo   database.Repository
	cache  cache.Cache
	logger *zap.Logger
}

// New creates the workflow façade.
func New(repo database.Repository, cache cache.Cache, logger *zap.Logger) *Workflow {
	return &Workflow{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// CreateComment validates and persists a positional annotation. Anonymous
// callers are allowed; the author falls back to "Anonymous". The image, if
// any, must already be uploaded — only its resolved URL is accepted.
func (w *Workflow) CreateComment(ctx context.Context, p *models.Principal, projectID string, in *models.CreateCommentRequest) (*models.Comment, error) {
	if !validCoordinate(in.X) || !validCoordinate(in.Y) {
		return nil, fmt.Errorf("coordinates must be finite and non-negative: %w", apperr.ErrValidation)
	}

	text := strings.TrimSpace(in.Comment)
	if text == "" {
		return nil, fmt.Errorf("comment text must not be empty: %w", apperr.ErrValidation)
	}

	if !policy.Allows(p, policy.ActionCreateComment, projectID) {
		return nil, fmt.Errorf("comment creation denied: %w", apperr.ErrPermission)
	}

	if in.ParentID != nil {
		parent, err := w.repo.GetComment(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		// A parent must pre-exist in the same project; this also rules out
		// cycles, since a comment cannot reference itself before it exists.
		if parent == nil || parent.ProjectID != projectID {
			return nil, fmt.Errorf("parent comment not found in project: %w", apperr.ErrValidation)
		}
	}

	author := strings.TrimSpace(in.Author)
	if author == "" {
		author = models.AnonymousAuthor
	}

	comment := &models.Comment{
		ProjectID: projectID,
		X:         in.X,
		Y:         in.Y,
		Comment:   text,
		Author:    author,
		ImageURL:  in.ImageURL,
		Status:    models.CommentOpen,
		ParentID:  in.ParentID,
	}

	created, err := w.repo.CreateComment(ctx, comment)
	if err != nil {
		return nil, err
	}

	_ = w.cache.InvalidateComments(ctx, projectID)
	return created, nil
}

// ListComments returns the project's comments, most recent first. The scope
// check applies to reads as much as writes: no cross-project leakage.
func (w *Workflow) ListComments(ctx context.Context, p *models.Principal, projectID string) ([]models.Comment, error) {
	if !policy.Allows(p, policy.ActionView, projectID) {
		return nil, fmt.Errorf("listing denied: %w", apperr.ErrPermission)
	}

	if comments, found, _ := w.cache.GetComments(ctx, projectID); found {
		return comments, nil
	}

	comments, err := w.repo.ListComments(ctx, projectID)
	if err != nil {
		return nil, err
	}

	_ = w.cache.SetComments(ctx, projectID, comments)
	return comments, nil
}

// SetCommentStatus moves a comment through its lifecycle. Designer only.
func (w *Workflow) SetCommentStatus(ctx context.Context, p *models.Principal, commentID string, status models.CommentStatus) (*models.Comment, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unrecognized comment status %q: %w", status, apperr.ErrValidation)
	}

	comment, err := w.repo.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, fmt.Errorf("comment %s: %w", commentID, apperr.ErrNotFound)
	}

	if !policy.Allows(p, policy.ActionSetCommentStatus, comment.ProjectID) {
		return nil, fmt.Errorf("status change denied: %w", apperr.ErrPermission)
	}

	updated, err := w.repo.SetCommentStatus(ctx, commentID, status)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("comment %s: %w", commentID, apperr.ErrNotFound)
	}

	_ = w.cache.InvalidateComments(ctx, updated.ProjectID)
	return updated, nil
}

// CreateRequest files an edit request. Clients only; requests are
// client-initiated by design.
func (w *Workflow) CreateRequest(ctx context.Context, p *models.Principal, projectID string, in *models.CreateEditRequestRequest) (*models.EditRequest, error) {
	pageURL := strings.TrimSpace(in.PageURL)
	message := strings.TrimSpace(in.Message)
	if pageURL == "" || message == "" {
		return nil, fmt.Errorf("page URL and message must not be empty: %w", apperr.ErrValidation)
	}

	if !policy.Allows(p, policy.ActionCreateRequest, projectID) {
		return nil, fmt.Errorf("request creation denied: %w", apperr.ErrPermission)
	}

	req := &models.EditRequest{
		ProjectID: projectID,
		PageURL:   pageURL,
		SectionID: in.SectionID,
		Message:   message,
		Status:    models.RequestOpen,
		Replies:   []models.Reply{},
	}
	if p != nil {
		req.SubmittedBy = &p.UserID
	}

	created, err := w.repo.CreateRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	_ = w.cache.InvalidateRequests(ctx, projectID)
	return created, nil
}

// ListRequests returns the project's edit requests, most recent first.
func (w *Workflow) ListRequests(ctx context.Context, p *models.Principal, projectID string) ([]models.EditRequest, error) {
	if !policy.Allows(p, policy.ActionView, projectID) {
		return nil, fmt.Errorf("listing denied: %w", apperr.ErrPermission)
	}

	if requests, found, _ := w.cache.GetRequests(ctx, projectID); found {
		return requests, nil
	}

	requests, err := w.repo.ListRequests(ctx, projectID)
	if err != nil {
		return nil, err
	}

	_ = w.cache.SetRequests(ctx, projectID, requests)
	return requests, nil
}

// AppendReply adds a designer reply to the end of a request's thread.
// Earlier replies are immutable; the store appends in a single statement.
func (w *Workflow) AppendReply(ctx context.Context, p *models.Principal, requestID, message string) (*models.EditRequest, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("reply message must not be empty: %w", apperr.ErrValidation)
	}

	req, err := w.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("edit request %s: %w", requestID, apperr.ErrNotFound)
	}

	if !policy.Allows(p, policy.ActionAppendReply, req.ProjectID) {
		return nil, fmt.Errorf("reply denied: %w", apperr.ErrPermission)
	}

	reply := models.Reply{
		Message:   message,
		AuthorID:  p.UserID,
		CreatedAt: time.Now().UTC(),
	}

	updated, err := w.repo.AppendReply(ctx, requestID, reply)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("edit request %s: %w", requestID, apperr.ErrNotFound)
	}

	_ = w.cache.InvalidateRequests(ctx, updated.ProjectID)
	return updated, nil
}

// TransitionRequestStatus moves an edit request through its lifecycle.
// The intended path is open → in_progress → completed, with a lateral move
// back to open permitted from any state as the correction path. Other jumps
// are accepted too but logged, since the product never defined a stricter
// graph.
func (w *Workflow) TransitionRequestStatus(ctx context.Context, p *models.Principal, requestID string, status models.RequestStatus) (*models.EditRequest, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unrecognized request status %q: %w", status, apperr.ErrValidation)
	}

	req, err := w.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("edit request %s: %w", requestID, apperr.ErrNotFound)
	}

	if !policy.Allows(p, policy.ActionTransitionStatus, req.ProjectID) {
		return nil, fmt.Errorf("transition denied: %w", apperr.ErrPermission)
	}

	if !forwardTransition(req.Status, status) && status != models.RequestOpen {
		w.logger.Warn("Out-of-order status transition",
			zap.String("id", requestID),
			zap.String("from", string(req.Status)),
			zap.String("to", string(status)),
		)
	}

	updated, err := w.repo.SetRequestStatus(ctx, requestID, status)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("edit request %s: %w", requestID, apperr.ErrNotFound)
	}

	_ = w.cache.InvalidateRequests(ctx, updated.ProjectID)
	return updated, nil
}

// CreateProject creates a collaboration scope. Designers only; this is the
// one operation that happens before a project binding exists, so the policy
// skips the scope check for it.
func (w *Workflow) CreateProject(ctx context.Context, p *models.Principal, in *models.CreateProjectRequest) (*models.Project, error) {
	name := strings.TrimSpace(in.Name)
	url := strings.TrimSpace(in.URL)
	if name == "" || url == "" {
		return nil, fmt.Errorf("project name and URL must not be empty: %w", apperr.ErrValidation)
	}

	if !policy.Allows(p, policy.ActionCreateProject, "") {
		return nil, fmt.Errorf("project creation denied: %w", apperr.ErrPermission)
	}

	slug := slugify(name)
	secret := uuid.New().String()

	project := &models.Project{
		Name:         name,
		URL:          url,
		DesignerID:   p.UserID,
		CreatedBy:    p.UserID,
		Slug:         &slug,
		ClientSecret: &secret,
	}

	return w.repo.CreateProject(ctx, project)
}

// GetProject returns a project; anonymous viewers are allowed (the invite
// link flow), authenticated callers must be bound to it.
func (w *Workflow) GetProject(ctx context.Context, p *models.Principal, projectID string) (*models.Project, error) {
	if !policy.Allows(p, policy.ActionView, projectID) {
		return nil, fmt.Errorf("project access denied: %w", apperr.ErrPermission)
	}

	project, err := w.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, apperr.ErrNotFound)
	}
	return project, nil
}

// RenameProject updates a project's name, the only mutation a project
// supports after creation.
func (w *Workflow) RenameProject(ctx context.Context, p *models.Principal, projectID, name string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("project name must not be empty: %w", apperr.ErrValidation)
	}

	if !policy.Allows(p, policy.ActionRenameProject, projectID) {
		return nil, fmt.Errorf("rename denied: %w", apperr.ErrPermission)
	}

	project, err := w.repo.RenameProject(ctx, projectID, name)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, apperr.ErrNotFound)
	}
	return project, nil
}

// Profile returns the caller's own role binding.
func (w *Workflow) Profile(ctx context.Context, p *models.Principal) (*models.Profile, error) {
	if p == nil {
		return nil, fmt.Errorf("profile requires authentication: %w", apperr.ErrPermission)
	}

	profile, err := w.repo.GetProfile(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("profile %s: %w", p.UserID, apperr.ErrNotFound)
	}
	return profile, nil
}

// validCoordinate reports whether v is usable as a viewport offset.
func validCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// forwardTransition reports whether from → to follows the intended order.
func forwardTransition(from, to models.RequestStatus) bool {
	switch from {
	case models.RequestOpen:
		return to == models.RequestInProgress
	case models.RequestInProgress:
		return to == models.RequestCompleted
	}
	return false
}

// slugify lowercases the name and collapses runs of non-alphanumerics into
// single hyphens.
func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
