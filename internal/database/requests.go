package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/markloop/backend/internal/models"
)

const editRequestColumns = `id, project_id, page_url, section_id, message, status, submitted_by, replies, created_at, updated_at`

// scanEditRequest reads one edit request row. Replies are stored as a JSONB
// array and decoded here.
func scanEditRequest(row pgx.Row) (*models.EditRequest, error) {
	var req models.EditRequest
	var replies []byte
	err := row.Scan(
		&req.ID,
		&req.ProjectID,
		&req.PageURL,
		&req.SectionID,
		&req.Message,
		&req.Status,
		&req.SubmittedBy,
		&replies,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(replies, &req.Replies); err != nil {
		return nil, fmt.Errorf("failed to decode replies: %w", err)
	}
	if req.Replies == nil {
		req.Replies = []models.Reply{}
	}
	return &req, nil
}

// CreateRequest persists a new edit request.
func (r *PostgresRepository) CreateRequest(ctx context.Context, req *models.EditRequest) (*models.EditRequest, error) {
	now := time.Now().UTC()
	req.ID = uuid.New().String()
	req.CreatedAt = now
	req.UpdatedAt = now
	if req.Replies == nil {
		req.Replies = []models.Reply{}
	}

	query := `
		INSERT INTO edit_requests (id, project_id, page_url, section_id, message, status, submitted_by, replies, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, '[]'::jsonb, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		req.ID,
		req.ProjectID,
		req.PageURL,
		req.SectionID,
		req.Message,
		req.Status,
		req.SubmittedBy,
		req.CreatedAt,
		req.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create edit request", zap.Error(err))
		return nil, storeErr("failed to create edit request", err)
	}

	r.logger.Info("Created edit request",
		zap.String("id", req.ID),
		zap.String("project_id", req.ProjectID),
	)
	return req, nil
}

// GetRequest retrieves an edit request by its ID.
func (r *PostgresRepository) GetRequest(ctx context.Context, id string) (*models.EditRequest, error) {
	query := `SELECT ` + editRequestColumns + ` FROM edit_requests WHERE id = $1`

	req, err := scanEditRequest(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get edit request", zap.String("id", id), zap.Error(err))
		return nil, storeErr("failed to get edit request", err)
	}

	return req, nil
}

// ListRequests retrieves all edit requests for a project, most recent first.
func (r *PostgresRepository) ListRequests(ctx context.Context, projectID string) ([]models.EditRequest, error) {
	query := `
		SELECT ` + editRequestColumns + `
		FROM edit_requests
		WHERE project_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		r.logger.Error("Failed to list edit requests", zap.String("project_id", projectID), zap.Error(err))
		return nil, storeErr("failed to list edit requests", err)
	}
	defer rows.Close()

	var requests []models.EditRequest
	for rows.Next() {
		req, err := scanEditRequest(rows)
		if err != nil {
			r.logger.Error("Failed to scan edit request row", zap.Error(err))
			return nil, storeErr("failed to scan edit request", err)
		}
		requests = append(requests, *req)
	}

	if requests == nil {
		requests = []models.EditRequest{}
	}

	return requests, nil
}

// AppendReply appends a reply to the request's reply list in a single
// statement, so concurrent appends serialize on the row instead of racing a
// read-modify-write of the whole array.
func (r *PostgresRepository) AppendReply(ctx context.Context, id string, reply models.Reply) (*models.EditRequest, error) {
	encoded, err := json.Marshal(reply)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reply: %w", err)
	}

	query := `
		UPDATE edit_requests
		SET replies = replies || $2::jsonb, updated_at = $3
		WHERE id = $1
		RETURNING ` + editRequestColumns

	req, err := scanEditRequest(r.pool.QueryRow(ctx, query, id, encoded, time.Now().UTC()))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to append reply", zap.String("id", id), zap.Error(err))
		return nil, storeErr("failed to append reply", err)
	}

	r.logger.Info("Appended reply",
		zap.String("id", id),
		zap.Int("replies", len(req.Replies)),
	)
	return req, nil
}

// SetRequestStatus updates an edit request's status.
func (r *PostgresRepository) SetRequestStatus(ctx context.Context, id string, status models.RequestStatus) (*models.EditRequest, error) {
	query := `
		UPDATE edit_requests
		SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + editRequestColumns

	req, err := scanEditRequest(r.pool.QueryRow(ctx, query, id, status, time.Now().UTC()))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to set edit request status", zap.String("id", id), zap.Error(err))
		return nil, storeErr("failed to set edit request status", err)
	}

	r.logger.Info("Updated edit request status",
		zap.String("id", id),
		zap.String("status", string(status)),
	)
	return req, nil
}
