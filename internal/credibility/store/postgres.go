package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"veritas/internal/credibility/models"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
)

// Postgres persists verification requests.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, request *models.VerificationRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verification_requests (id, user_id, domain, proof_link, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, request.ID.String(), request.UserID.String(), string(request.Domain),
		request.ProofLink, string(request.Status), request.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert verification request: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, requestID id.RequestID) (*models.VerificationRequest, error) {
	request, err := scanRequest(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, domain, proof_link, status, created_at, approved_at, approved_by
		FROM verification_requests
		WHERE id = $1
	`, requestID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find verification request: %w", err)
	}
	return request, nil
}

func (s *Postgres) ListPending(ctx context.Context) ([]*models.VerificationRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, domain, proof_link, status, created_at, approved_at, approved_by
		FROM verification_requests
		WHERE status = 'pending'
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list pending verification requests: %w", err)
	}
	defer rows.Close()

	var out []*models.VerificationRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verification request: %w", err)
		}
		out = append(out, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verification requests: %w", err)
	}
	return out, nil
}

// Approve flips pending→approved with a conditional UPDATE. The WHERE clause
// is the test-and-set: zero rows affected on an existing request means it was
// already approved, possibly by a concurrent admin.
func (s *Postgres) Approve(ctx context.Context, requestID id.RequestID, approver id.UserID, now time.Time) (*models.VerificationRequest, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE verification_requests
		SET status = 'approved', approved_at = $2, approved_by = $3
		WHERE id = $1 AND status = 'pending'
	`, requestID.String(), now, approver.String())
	if err != nil {
		return nil, fmt.Errorf("approve verification request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		request, err := s.FindByID(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if !request.IsPending() {
			return nil, sentinel.ErrAlreadyUsed
		}
		return nil, sentinel.ErrInvalidState
	}

	return s.FindByID(ctx, requestID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.VerificationRequest, error) {
	var (
		request     models.VerificationRequest
		rawID       string
		rawUserID   string
		rawDomain   string
		rawStatus   string
		approvedAt  sql.NullTime
		rawApprover sql.NullString
	)
	if err := row.Scan(&rawID, &rawUserID, &rawDomain, &request.ProofLink,
		&rawStatus, &request.CreatedAt, &approvedAt, &rawApprover); err != nil {
		return nil, err
	}

	requestID, err := id.ParseRequestID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored request id invalid: %w", err)
	}
	userID, err := id.ParseUserID(rawUserID)
	if err != nil {
		return nil, fmt.Errorf("stored user id invalid: %w", err)
	}
	request.ID = requestID
	request.UserID = userID
	request.Domain = id.Domain(rawDomain)
	request.Status = models.Status(rawStatus)
	if approvedAt.Valid {
		at := approvedAt.Time
		request.ApprovedAt = &at
	}
	if rawApprover.Valid {
		approver, err := id.ParseUserID(rawApprover.String)
		if err != nil {
			return nil, fmt.Errorf("stored approver id invalid: %w", err)
		}
		request.ApprovedBy = &approver
	}
	return &request, nil
}
