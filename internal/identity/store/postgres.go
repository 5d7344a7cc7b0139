package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"veritas/internal/identity/models"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
)

// Postgres persists users and their credibility profiles. This store is pure
// I/O; clamping and scoring policy live in the models and services.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const uniqueViolation = "23505"

func (s *Postgres) Create(ctx context.Context, user *models.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create user: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	interests := make([]string, len(user.Interests))
	for i, d := range user.Interests {
		interests[i] = string(d)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, verified, role, linkedin, interests, created_at)
		VALUES ($1, LOWER($2), LOWER($3), $4, $5, $6, $7, $8, $9)
	`, user.ID.String(), user.Name, user.Email, user.PasswordHash, user.Verified,
		string(user.Role), user.LinkedIn, pq.Array(interests), user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	// Seed one score row per domain so increments are plain row updates.
	for _, d := range id.Domains() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO credibility_scores (user_id, domain, score)
			VALUES ($1, $2, $3)
		`, user.ID.String(), string(d), user.Credibility.Get(d)); err != nil {
			return fmt.Errorf("seed credibility scores: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create user: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, `WHERE u.id = $1`, userID.String())
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, `WHERE u.email = LOWER($1)`, email)
}

func (s *Postgres) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email, u.password_hash, u.verified, u.role, u.linkedin, u.interests, u.created_at
		FROM users u `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := s.loadCredibility(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Postgres) FindByIDs(ctx context.Context, ids []id.UserID) (map[id.UserID]*models.User, error) {
	if len(ids) == 0 {
		return map[id.UserID]*models.User{}, nil
	}

	raw := make([]string, len(ids))
	for i, userID := range ids {
		raw[i] = userID.String()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email, u.password_hash, u.verified, u.role, u.linkedin, u.interests, u.created_at
		FROM users u
		WHERE u.id = ANY($1)
	`, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer rows.Close()

	out := make(map[id.UserID]*models.User, len(ids))
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	for _, user := range out {
		if err := s.loadCredibility(ctx, user); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Postgres) MarkVerified(ctx context.Context, userID id.UserID, passwordHash string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, verified = TRUE WHERE id = $1
	`, userID.String(), passwordHash)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return requireRow(result)
}

func (s *Postgres) SavePreferences(ctx context.Context, userID id.UserID, interests []id.Domain, linkedin string) error {
	raw := make([]string, len(interests))
	for i, d := range interests {
		raw[i] = string(d)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET interests = $2, linkedin = $3 WHERE id = $1
	`, userID.String(), pq.Array(raw), linkedin)
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return requireRow(result)
}

// IncrementCredibility atomically raises one (user, domain) score. The clamp
// happens inside the UPDATE so concurrent approvals cannot overshoot MaxScore
// or lose each other's writes.
func (s *Postgres) IncrementCredibility(ctx context.Context, userID id.UserID, d id.Domain, step float64) (float64, error) {
	var score float64
	err := s.db.QueryRowContext(ctx, `
		UPDATE credibility_scores
		SET score = LEAST($4, score + $3)
		WHERE user_id = $1 AND domain = $2
		RETURNING score
	`, userID.String(), string(d), step, models.MaxScore).Scan(&score)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("increment credibility: %w", err)
	}
	return score, nil
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *Postgres) loadCredibility(ctx context.Context, user *models.User) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT domain, score FROM credibility_scores WHERE user_id = $1
	`, user.ID.String())
	if err != nil {
		return fmt.Errorf("load credibility: %w", err)
	}
	defer rows.Close()

	vector := models.NewVector()
	for rows.Next() {
		var rawDomain string
		var score float64
		if err := rows.Scan(&rawDomain, &score); err != nil {
			return fmt.Errorf("scan credibility score: %w", err)
		}
		if d := id.Domain(rawDomain); d.Valid() {
			vector[d] = score
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate credibility scores: %w", err)
	}
	user.Credibility = vector
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user      models.User
		rawID     string
		rawRole   string
		interests pq.StringArray
	)
	if err := row.Scan(&rawID, &user.Name, &user.Email, &user.PasswordHash,
		&user.Verified, &rawRole, &user.LinkedIn, &interests, &user.CreatedAt); err != nil {
		return nil, err
	}

	userID, err := id.ParseUserID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored user id invalid: %w", err)
	}
	user.ID = userID
	user.Role = models.Role(rawRole)
	for _, raw := range interests {
		if d := id.Domain(raw); d.Valid() {
			user.Interests = append(user.Interests, d)
		}
	}
	return &user, nil
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
