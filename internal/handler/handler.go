// Package handler exposes the workflow operations over HTTP.
package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/markloop/backend/internal/apperr"
	"github.com/markloop/backend/internal/auth"
	"github.com/markloop/backend/internal/models"
	"github.com/markloop/backend/internal/storage"
	"github.com/markloop/backend/internal/workflow"
)

// maxUploadBytes caps comment screenshot uploads.
const maxUploadBytes = 10 << 20

// Handler provides HTTP handlers over the workflow façade.
type Handler struct {
	svc    workflow.Service
	store  storage.Store
	logger *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(svc workflow.Service, store storage.Store, logger *zap.Logger) *Handler {
	return &Handler{
		svc:    svc,
		store:  store,
		logger: logger,
	}
}

// RegisterRoutes registers the handler routes on the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/projects", h.CreateProject)
	rg.GET("/projects/:id", h.GetProject)
	rg.PATCH("/projects/:id", h.RenameProject)

	rg.GET("/projects/:id/comments", h.ListComments)
	rg.POST("/projects/:id/comments", h.CreateComment)
	rg.PATCH("/comments/:id/status", h.SetCommentStatus)

	rg.GET("/projects/:id/requests", h.ListRequests)
	rg.POST("/projects/:id/requests", h.CreateRequest)
	rg.POST("/requests/:id/replies", h.AppendReply)
	rg.PATCH("/requests/:id/status", h.TransitionRequestStatus)

	rg.POST("/uploads", h.UploadImage)
	rg.GET("/profile", h.Profile)
}

// respondError maps workflow failures onto HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, apperr.ErrPermission):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Error:   "forbidden",
			Message: err.Error(),
		})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, apperr.ErrUpload):
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error:   "upload_failed",
			Message: err.Error(),
		})
	case errors.Is(err, apperr.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "storage_unavailable",
			Message: "persistence temporarily unavailable",
		})
	default:
		h.logger.Error("Unhandled operation failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "operation failed",
		})
	}
}

// CreateComment handles dropping a positional annotation on a project page.
// @Summary Create comment
// @Description Create a positional comment, optionally with an uploaded image URL
// @Tags comments
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param comment body models.CreateCommentRequest true "Comment data"
// @Success 201 {object} models.CommentResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /api/v1/projects/{id}/comments [post]
func (h *Handler) CreateComment(c *gin.Context) {
	var req models.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid create comment request", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	comment, err := h.svc.CreateComment(c.Request.Context(), auth.PrincipalFrom(c), c.Param("id"), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CommentResponse{Data: *comment})
}

// ListComments handles retrieving a project's comments, most recent first.
// With ?threaded=true the flat list is grouped by parent comment instead.
// @Summary List comments
// @Tags comments
// @Produce json
// @Param id path string true "Project ID"
// @Param threaded query bool false "Group replies under their parent comment"
// @Success 200 {object} models.CommentsResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /api/v1/projects/{id}/comments [get]
func (h *Handler) ListComments(c *gin.Context) {
	comments, err := h.svc.ListComments(c.Request.Context(), auth.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	if c.Query("threaded") == "true" {
		c.JSON(http.StatusOK, models.CommentThreadsResponse{Data: models.ThreadComments(comments)})
		return
	}

	c.JSON(http.StatusOK, models.CommentsResponse{Data: comments})
}

// SetCommentStatus handles a designer moving a comment through its lifecycle.
// @Summary Set comment status
// @Tags comments
// @Accept json
// @Produce json
// @Param id path string true "Comment ID"
// @Param status body models.SetCommentStatusRequest true "New status"
// @Success 200 {object} models.CommentResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/v1/comments/{id}/status [patch]
func (h *Handler) SetCommentStatus(c *gin.Context) {
	var req models.SetCommentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid status request", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	comment, err := h.svc.SetCommentStatus(c.Request.Context(), auth.PrincipalFrom(c), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CommentResponse{Data: *comment})
}

// CreateRequest handles a client filing an edit request.
// @Summary Create edit request
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body models.CreateEditRequestRequest true "Request data"
// @Success 201 {object} models.EditRequestResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /api/v1/projects/{id}/requests [post]
func (h *Handler) CreateRequest(c *gin.Context) {
	var req models.CreateEditRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid create request", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	request, err := h.svc.CreateRequest(c.Request.Context(), auth.PrincipalFrom(c), c.Param("id"), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.EditRequestResponse{Data: *request})
}

// ListRequests handles retrieving a project's edit requests, most recent first.
func (h *Handler) ListRequests(c *gin.Context) {
	requests, err := h.svc.ListRequests(c.Request.Context(), auth.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.EditRequestsResponse{Data: requests})
}

// AppendReply handles a designer replying on an edit request thread.
func (h *Handler) AppendReply(c *gin.Context) {
	var req models.AppendReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid reply request", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	request, err := h.svc.AppendReply(c.Request.Context(), auth.PrincipalFrom(c), c.Param("id"), req.Message)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.EditRequestResponse{Data: *request})
}

// TransitionRequestStatus handles a designer moving an edit request through
// its lifecycle.
func (h *Handler) TransitionRequestStatus(c *gin.Context) {
	var req models.TransitionRequestStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid transition request", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	request, err := h.svc.TransitionRequestStatus(c.Request.Context(), auth.PrincipalFrom(c), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.EditRequestResponse{Data: *request})
}

// CreateProject handles a designer creating a collaboration scope.
func (h *Handler) CreateProject(c *gin.Context) {
	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid create project request", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	project, err := h.svc.CreateProject(c.Request.Context(), auth.PrincipalFrom(c), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.ProjectResponse{Data: *project})
}

// GetProject handles retrieving a project.
func (h *Handler) GetProject(c *gin.Context) {
	project, err := h.svc.GetProject(c.Request.Context(), auth.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ProjectResponse{Data: *project})
}

// RenameProject handles renaming a project.
func (h *Handler) RenameProject(c *gin.Context) {
	var req models.RenameProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid rename request", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	project, err := h.svc.RenameProject(c.Request.Context(), auth.PrincipalFrom(c), c.Param("id"), req.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ProjectResponse{Data: *project})
}

// UploadImage handles a multipart screenshot upload and returns the public
// URL. Comment creation consumes the returned URL; if the caller abandons
// the comment the stored object is simply orphaned, there is no sweep.
// @Summary Upload comment screenshot
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image file"
// @Success 201 {object} models.UploadResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /api/v1/uploads [post]
func (h *Handler) UploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "missing file field",
		})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "file exceeds maximum upload size",
		})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "only image uploads are accepted",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "failed to read upload",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		h.logger.Error("Failed to read uploaded file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "failed to read upload",
		})
		return
	}

	url, err := h.store.Upload(c.Request.Context(), data, contentType)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.UploadResponse{URL: url})
}

// Profile handles retrieving the caller's own role binding.
func (h *Handler) Profile(c *gin.Context) {
	profile, err := h.svc.Profile(c.Request.Context(), auth.PrincipalFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": profile})
}
