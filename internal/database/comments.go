package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/markloop/backend/internal/models"
)

// CreateComment persists a new comment.
func (r *PostgresRepository) CreateComment(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	comment.ID = uuid.New().String()
	comment.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO comments (id, project_id, x, y, comment, author, image_url, status, parent_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		comment.ID,
		comment.ProjectID,
		comment.X,
		comment.Y,
		comment.Comment,
		comment.Author,
		comment.ImageURL,
		comment.Status,
		comment.ParentID,
		comment.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create comment", zap.Error(err))
		return nil, storeErr("failed to create comment", err)
	}

	r.logger.Info("Created comment",
		zap.String("id", comment.ID),
		zap.String("project_id", comment.ProjectID),
	)
	return comment, nil
}

// GetComment retrieves a comment by its ID.
func (r *PostgresRepository) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	query := `
		SELECT id, project_id, x, y, comment, author, image_url, status, parent_id, created_at
		FROM comments
		WHERE id = $1
	`

	var comment models.Comment
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&comment.ID,
		&comment.ProjectID,
		&comment.X,
		&comment.Y,
		&comment.Comment,
		&comment.Author,
		&comment.ImageURL,
		&comment.Status,
		&comment.ParentID,
		&comment.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get comment", zap.String("id", id), zap.Error(err))
		return nil, storeErr("failed to get comment", err)
	}

	return &comment, nil
}

// ListComments retrieves all comments for a project, most recent first.
func (r *PostgresRepository) ListComments(ctx context.Context, projectID string) ([]models.Comment, error) {
	query := `
		SELECT id, project_id, x, y, comment, author, image_url, status, parent_id, created_at
		FROM comments
		WHERE project_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		r.logger.Error("Failed to list comments", zap.String("project_id", projectID), zap.Error(err))
		return nil, storeErr("failed to list comments", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var comment models.Comment
		err := rows.Scan(
			&comment.ID,
			&comment.ProjectID,
			&comment.X,
			&comment.Y,
			&comment.Comment,
			&comment.Author,
			&comment.ImageURL,
			&comment.Status,
			&comment.ParentID,
			&comment.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan comment row", zap.Error(err))
			return nil, storeErr("failed to scan comment", err)
		}
		comments = append(comments, comment)
	}

	if comments == nil {
		comments = []models.Comment{}
	}

	return comments, nil
}

// SetCommentStatus updates a comment's status.
func (r *PostgresRepository) SetCommentStatus(ctx context.Context, id string, status models.CommentStatus) (*models.Comment, error) {
	query := `
		UPDATE comments
		SET status = $2
		WHERE id = $1
		RETURNING id, project_id, x, y, comment, author, image_url, status, parent_id, created_at
	`

	var comment models.Comment
	err := r.pool.QueryRow(ctx, query, id, status).Scan(
		&comment.ID,
		&comment.ProjectID,
		&comment.X,
		&comment.Y,
		&comment.Comment,
		&comment.Author,
		&comment.ImageURL,
		&comment.Status,
		&comment.ParentID,
		&comment.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to set comment status", zap.String("id", id), zap.Error(err))
		return nil, storeErr("failed to set comment status", err)
	}

	r.logger.Info("Updated comment status",
		zap.String("id", id),
		zap.String("status", string(status)),
	)
	return &comment, nil
}
