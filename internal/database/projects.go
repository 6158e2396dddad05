package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/markloop/backend/internal/models"
)

// CreateProject persists a new project.
func (r *PostgresRepository) CreateProject(ctx context.Context, project *models.Project) (*models.Project, error) {
	project.ID = uuid.New().String()
	project.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO projects (id, name, url, designer_id, created_by, slug, client_secret, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		project.ID,
		project.Name,
		project.URL,
		project.DesignerID,
		project.CreatedBy,
		project.Slug,
		project.ClientSecret,
		project.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create project", zap.Error(err))
		return nil, storeErr("failed to create project", err)
	}

	r.logger.Info("Created project", zap.String("id", project.ID))
	return project, nil
}

// GetProject retrieves a project by its ID.
func (r *PostgresRepository) GetProject(ctx context.Context, id string) (*models.Project, error) {
	query := `
		SELECT id, name, url, designer_id, created_by, slug, client_secret, created_at
		FROM projects
		WHERE id = $1
	`

	var project models.Project
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&project.ID,
		&project.Name,
		&project.URL,
		&project.DesignerID,
		&project.CreatedBy,
		&project.Slug,
		&project.ClientSecret,
		&project.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get project", zap.String("id", id), zap.Error(err))
		return nil, storeErr("failed to get project", err)
	}

	return &project, nil
}

// RenameProject updates a project's name.
func (r *PostgresRepository) RenameProject(ctx context.Context, id, name string) (*models.Project, error) {
	query := `
		UPDATE projects
		SET name = $2
		WHERE id = $1
		RETURNING id, name, url, designer_id, created_by, slug, client_secret, created_at
	`

	var project models.Project
	err := r.pool.QueryRow(ctx, query, id, name).Scan(
		&project.ID,
		&project.Name,
		&project.URL,
		&project.DesignerID,
		&project.CreatedBy,
		&project.Slug,
		&project.ClientSecret,
		&project.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to rename project", zap.String("id", id), zap.Error(err))
		return nil, storeErr("failed to rename project", err)
	}

	r.logger.Info("Renamed project", zap.String("id", id))
	return &project, nil
}

// GetProfile retrieves a profile by user ID.
func (r *PostgresRepository) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	query := `
		SELECT id, role, project_id, email, name, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	var profile models.Profile
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&profile.ID,
		&profile.Role,
		&profile.ProjectID,
		&profile.Email,
		&profile.Name,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get profile", zap.String("id", id), zap.Error(err))
		return nil, storeErr("failed to get profile", err)
	}

	return &profile, nil
}
