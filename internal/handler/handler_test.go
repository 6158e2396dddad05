package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/markloop/backend/internal/apperr"
	"github.com/markloop/backend/internal/models"
)

// MockService implements workflow.Service for testing
type MockService struct {
	mock.Mock
}

func (m *MockService) CreateComment(ctx context.Context, p *models.Principal, projectID string, in *models.CreateCommentRequest) (*models.Comment, error) {
	args := m.Called(ctx, p, projectID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockService) ListComments(ctx context.Context, p *models.Principal, projectID string) ([]models.Comment, error) {
	args := m.Called(ctx, p, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Comment), args.Error(1)
}

func (m *MockService) SetCommentStatus(ctx context.Context, p *models.Principal, commentID string, status models.CommentStatus) (*models.Comment, error) {
	args := m.Called(ctx, p, commentID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockService) CreateRequest(ctx context.Context, p *models.Principal, projectID string, in *models.CreateEditRequestRequest) (*models.EditRequest, error) {
	args := m.Called(ctx, p, projectID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EditRequest), args.Error(1)
}

func (m *MockService) ListRequests(ctx context.Context, p *models.Principal, projectID string) ([]models.EditRequest, error) {
	args := m.Called(ctx, p, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.EditRequest), args.Error(1)
}

func (m *MockService) AppendReply(ctx context.Context, p *models.Principal, requestID, message string) (*models.EditRequest, error) {
	args := m.Called(ctx, p, requestID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EditRequest), args.Error(1)
}

func (m *MockService) TransitionRequestStatus(ctx context.Context, p *models.Principal, requestID string, status models.RequestStatus) (*models.EditRequest, error) {
	args := m.Called(ctx, p, requestID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EditRequest), args.Error(1)
}

func (m *MockService) CreateProject(ctx context.Context, p *models.Principal, in *models.CreateProjectRequest) (*models.Project, error) {
	args := m.Called(ctx, p, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockService) GetProject(ctx context.Context, p *models.Principal, projectID string) (*models.Project, error) {
	args := m.Called(ctx, p, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockService) RenameProject(ctx context.Context, p *models.Principal, projectID, name string) (*models.Project, error) {
	args := m.Called(ctx, p, projectID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockService) Profile(ctx context.Context, p *models.Principal) (*models.Profile, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

// MockStore implements storage.Store for testing
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, data, contentType)
	return args.String(0), args.Error(1)
}

func setupTestHandler() (*MockService, *MockStore, *gin.Engine) {
	gin.SetMode(gin.TestMode)

	mockSvc := new(MockService)
	mockStore := new(MockStore)
	logger, _ := zap.NewDevelopment()

	h := NewHandler(mockSvc, mockStore, logger)

	engine := gin.New()
	rg := engine.Group("/api/v1")
	h.RegisterRoutes(rg)

	return mockSvc, mockStore, engine
}

func TestCreateComment_Success(t *testing.T) {
	mockSvc, _, engine := setupTestHandler()

	expected := &models.Comment{
		ID:        "comment-1",
		ProjectID: "project-1",
		X:         120,
		Y:         340,
		Comment:   "fix this heading",
		Author:    models.AnonymousAuthor,
		Status:    models.CommentOpen,
		CreatedAt: time.Now(),
	}

	mockSvc.On("CreateComment", mock.Anything, mock.Anything, "project-1", mock.MatchedBy(func(in *models.CreateCommentRequest) bool {
		return in.X == 120 && in.Y == 340 && in.Comment == "fix this heading"
	})).Return(expected, nil)

	body := `{"x": 120, "y": 340, "comment": "fix this heading"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/project-1/comments", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response models.CommentResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "comment-1", response.Data.ID)
	assert.Equal(t, models.CommentOpen, response.Data.Status)
	assert.Nil(t, response.Data.ImageURL)

	mockSvc.AssertExpectations(t)
}

func TestCreateComment_MissingText(t *testing.T) {
	_, _, engine := setupTestHandler()

	body := `{"x": 120, "y": 340}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/project-1/comments", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateComment_ValidationMapsTo400(t *testing.T) {
	mockSvc, _, engine := setupTestHandler()

	mockSvc.On("CreateComment", mock.Anything, mock.Anything, "project-1", mock.Anything).
		Return(nil, apperr.ErrValidation)

	body := `{"x": -5, "y": 340, "comment": "note"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/project-1/comments", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListComments_Success(t *testing.T) {
	mockSvc, _, engine := setupTestHandler()

	mockSvc.On("ListComments", mock.Anything, mock.Anything, "project-1").Return([]models.Comment{
		{ID: "comment-2", ProjectID: "project-1"},
		{ID: "comment-1", ProjectID: "project-1"},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/project-1/comments", nil)
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.CommentsResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Len(t, response.Data, 2)

	mockSvc.AssertExpectations(t)
}

func TestListComments_Threaded(t *testing.T) {
	mockSvc, _, engine := setupTestHandler()

	parentID := "parent-1"
	mockSvc.On("ListComments", mock.Anything, mock.Anything, "project-1").Return([]models.Comment{
		{ID: "child-1", ProjectID: "project-1", ParentID: &parentID},
		{ID: parentID, ProjectID: "project-1"},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/project-1/comments?threaded=true", nil)
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.CommentThreadsResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Len(t, response.Data[""], 1)
	assert.Len(t, response.Data[parentID], 1)
	assert.Equal(t, "child-1", response.Data[parentID][0].ID)
}

func TestSetCommentStatus_PermissionMapsTo403(t *testing.T) {
	mockSvc, _, engine := setupTestHandler()

	mockSvc.On("SetCommentStatus", mock.Anything, mock.Anything, "comment-1", models.CommentResolved).
		Return(nil, apperr.ErrPermission)

	body := `{"status": "resolved"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/comments/comment-1/status", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSetCommentStatus_NotFoundMapsTo404(t *testing.T) {
	mockSvc, _, engine := setupTestHandler()

	mockSvc.On("SetCommentStatus", mock.Anything, mock.Anything, "nonexistent", models.CommentResolved).
		Return(nil, apperr.ErrNotFound)

	body := `{"status": "resolved"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/comments/nonexistent/status", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRequest_Success(t *testing.T) {
	mockSvc, _, engine := setupTestHandler()

	expected := &models.EditRequest{
		ID:        "req-1",
		ProjectID: "project-1",
		PageURL:   "/home",
		Message:   "swap logo",
		Status:    models.RequestOpen,
		Replies:   []models.Reply{},
	}

	mockSvc.On("CreateRequest", mock.Anything, mock.Anything, "project-1", mock.Anything).Return(expected, nil)

	body := `{"page_url": "/home", "message": "swap logo"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/project-1/requests", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response models.EditRequestResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, models.RequestOpen, response.Data.Status)
	assert.Empty(t, response.Data.Replies)
}

func TestAppendReply_Success(t *testing.T) {
	mockSvc, _, engine := setupTestHandler()

	mockSvc.On("AppendReply", mock.Anything, mock.Anything, "req-1", "done, see preview").Return(&models.EditRequest{
		ID:      "req-1",
		Replies: []models.Reply{{Message: "done, see preview", AuthorID: "designer-1"}},
	}, nil)

	body := `{"message": "done, see preview"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/req-1/replies", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.EditRequestResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Len(t, response.Data.Replies, 1)
}

func TestTransitionRequestStatus_Success(t *testing.T) {
	mockSvc, _, engine := setupTestHandler()

	mockSvc.On("TransitionRequestStatus", mock.Anything, mock.Anything, "req-1", models.RequestCompleted).
		Return(&models.EditRequest{ID: "req-1", Status: models.RequestCompleted}, nil)

	body := `{"status": "completed"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/requests/req-1/status", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

// multipartFile builds a multipart body with a single "file" part.
func multipartFile(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	assert.NoError(t, err)
	_, err = part.Write(data)
	assert.NoError(t, err)
	assert.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestUploadImage_Success(t *testing.T) {
	_, mockStore, engine := setupTestHandler()

	mockStore.On("Upload", mock.Anything, []byte("fake-png-bytes"), "image/png").
		Return("https://storage/comment-screenshots/1", nil)

	body, contentType := multipartFile(t, "shot.png", "image/png", []byte("fake-png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response models.UploadResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "https://storage/comment-screenshots/1", response.URL)

	mockStore.AssertExpectations(t)
}

func TestUploadImage_RejectsNonImage(t *testing.T) {
	_, mockStore, engine := setupTestHandler()

	body, contentType := multipartFile(t, "notes.txt", "text/plain", []byte("not an image"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockStore.AssertNotCalled(t, "Upload")
}

func TestUploadImage_StorageFailureMapsTo502(t *testing.T) {
	_, mockStore, engine := setupTestHandler()

	mockStore.On("Upload", mock.Anything, mock.Anything, "image/png").
		Return("", apperr.ErrUpload)

	body, contentType := multipartFile(t, "shot.png", "image/png", []byte("fake-png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGetProject_StorageUnavailableMapsTo503(t *testing.T) {
	mockSvc, _, engine := setupTestHandler()

	mockSvc.On("GetProject", mock.Anything, mock.Anything, "project-1").
		Return(nil, apperr.ErrStorageUnavailable)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/project-1", nil)
	w := httptest.NewRecorder()

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
