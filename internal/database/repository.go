// Package database provides PostgreSQL persistence for projects, profiles,
// comments and edit requests.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/markloop/backend/internal/apperr"
	"github.com/markloop/backend/internal/config"
	"github.com/markloop/backend/internal/models"
)

// CommentRepository defines persistence for comments.
type CommentRepository interface {
	// CreateComment persists a new comment, assigning its ID and CreatedAt.
	CreateComment(ctx context.Context, comment *models.Comment) (*models.Comment, error)

	// GetComment retrieves a comment by ID, or nil if it does not exist.
	GetComment(ctx context.Context, id string) (*models.Comment, error)

	// ListComments retrieves all comments for a project, most recent first.
	ListComments(ctx context.Context, projectID string) ([]models.Comment, error)

	// SetCommentStatus updates a comment's status, or returns nil if absent.
	SetCommentStatus(ctx context.Context, id string, status models.CommentStatus) (*models.Comment, error)
}

// RequestRepository defines persistence for edit requests.
type RequestRepository interface {
	// CreateRequest persists a new edit request, assigning its ID and timestamps.
	CreateRequest(ctx context.Context, req *models.EditRequest) (*models.EditRequest, error)

	// GetRequest retrieves an edit request by ID, or nil if it does not exist.
	GetRequest(ctx context.Context, id string) (*models.EditRequest, error)

	// ListRequests retrieves all edit requests for a project, most recent first.
	ListRequests(ctx context.Context, projectID string) ([]models.EditRequest, error)

	// AppendReply atomically appends a reply and bumps UpdatedAt, or returns
	// nil if the request does not exist. Existing replies are never touched.
	AppendReply(ctx context.Context, id string, reply models.Reply) (*models.EditRequest, error)

	// SetRequestStatus updates a request's status and bumps UpdatedAt, or
	// returns nil if absent.
	SetRequestStatus(ctx context.Context, id string, status models.RequestStatus) (*models.EditRequest, error)
}

// ProjectRepository defines persistence for projects and profiles.
type ProjectRepository interface {
	// CreateProject persists a new project, assigning its ID and CreatedAt.
	CreateProject(ctx context.Context, project *models.Project) (*models.Project, error)

	// GetProject retrieves a project by ID, or nil if it does not exist.
	GetProject(ctx context.Context, id string) (*models.Project, error)

	// RenameProject updates a project's name, the only permitted mutation.
	RenameProject(ctx context.Context, id, name string) (*models.Project, error)

	// GetProfile retrieves a profile by user ID, or nil if it does not exist.
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
}

// Repository aggregates all persistence operations.
type Repository interface {
	CommentRepository
	RequestRepository
	ProjectRepository

	// Close closes the database connection.
	Close()
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresRepository creates a new PostgreSQL repository.
func NewPostgresRepository(cfg *config.Config, logger *zap.Logger) (Repository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &PostgresRepository{
		pool:   pool,
		logger: logger,
	}

	if err := repo.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Connected to PostgreSQL database")
	return repo, nil
}

// migrate creates the necessary database tables if they don't exist.
func (r *PostgresRepository) migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS projects (
			id UUID PRIMARY KEY,
			name VARCHAR(256) NOT NULL,
			url TEXT NOT NULL,
			designer_id UUID NOT NULL,
			created_by UUID NOT NULL,
			slug VARCHAR(256),
			client_secret VARCHAR(256),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS profiles (
			id UUID PRIMARY KEY,
			role VARCHAR(16) NOT NULL,
			project_id UUID NOT NULL REFERENCES projects(id),
			email VARCHAR(256),
			name VARCHAR(256),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS comments (
			id UUID PRIMARY KEY,
			project_id UUID NOT NULL REFERENCES projects(id),
			x DOUBLE PRECISION NOT NULL,
			y DOUBLE PRECISION NOT NULL,
			comment TEXT NOT NULL,
			author VARCHAR(256) NOT NULL DEFAULT 'Anonymous',
			image_url TEXT,
			status VARCHAR(16) NOT NULL DEFAULT 'open',
			parent_id UUID REFERENCES comments(id),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_comments_project_created ON comments(project_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments(parent_id);

		CREATE TABLE IF NOT EXISTS edit_requests (
			id UUID PRIMARY KEY,
			project_id UUID NOT NULL REFERENCES projects(id),
			page_url TEXT NOT NULL,
			section_id VARCHAR(256),
			message TEXT NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'open',
			submitted_by UUID,
			replies JSONB NOT NULL DEFAULT '[]'::jsonb,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_edit_requests_project_created ON edit_requests(project_id, created_at);
	`

	_, err := r.pool.Exec(ctx, query)
	return err
}

// Close closes the database connection pool.
func (r *PostgresRepository) Close() {
	r.pool.Close()
	r.logger.Info("Closed database connection")
}

// storeErr tags a persistence failure as transient so callers can retry the
// whole operation.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, apperr.ErrStorageUnavailable)
}
