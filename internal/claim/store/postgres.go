package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"veritas/internal/claim/models"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
)

// Postgres persists claims and votes. The claim_votes primary key
// (claim_id, voter_id) is the one-vote-per-user invariant; this store never
// has to lock to enforce it.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, claim *models.Claim) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO claims (id, author_id, domain, statement, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, claim.ID.String(), claim.AuthorID.String(), string(claim.Domain),
		claim.Statement, claim.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	claim, err := scanClaim(s.db.QueryRowContext(ctx, `
		SELECT id, author_id, domain, statement, created_at
		FROM claims
		WHERE id = $1
	`, claimID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find claim: %w", err)
	}

	if err := s.loadVotes(ctx, claim); err != nil {
		return nil, err
	}
	return claim, nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.Claim, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, author_id, domain, statement, created_at
		FROM claims
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var out []*models.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}

	for _, claim := range out {
		if err := s.loadVotes(ctx, claim); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// AppendVote inserts the vote with ON CONFLICT DO NOTHING against the
// (claim_id, voter_id) primary key. Zero rows affected means this voter
// already voted; two racing inserts cannot both report success.
func (s *Postgres) AppendVote(ctx context.Context, claimID id.ClaimID, vote models.Vote) (*models.Claim, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO claim_votes (claim_id, voter_id, vote_type, cast_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (claim_id, voter_id) DO NOTHING
	`, claimID.String(), vote.VoterID.String(), string(vote.Type), vote.CastAt)
	if err != nil {
		var pqErr *pq.Error
		// 23503: the claim row vanished under us.
		if errors.As(err, &pqErr) && string(pqErr.Code) == "23503" {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("insert vote: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish a duplicate vote from a missing claim.
		if _, err := s.FindByID(ctx, claimID); err != nil {
			return nil, err
		}
		return nil, sentinel.ErrAlreadyUsed
	}

	return s.FindByID(ctx, claimID)
}

func (s *Postgres) loadVotes(ctx context.Context, claim *models.Claim) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT voter_id, vote_type, cast_at
		FROM claim_votes
		WHERE claim_id = $1
		ORDER BY cast_at
	`, claim.ID.String())
	if err != nil {
		return fmt.Errorf("load votes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			vote       models.Vote
			rawVoterID string
			rawType    string
		)
		if err := rows.Scan(&rawVoterID, &rawType, &vote.CastAt); err != nil {
			return fmt.Errorf("scan vote: %w", err)
		}
		voterID, err := id.ParseUserID(rawVoterID)
		if err != nil {
			return fmt.Errorf("stored voter id invalid: %w", err)
		}
		vote.VoterID = voterID
		vote.Type = models.VoteType(rawType)
		claim.Votes = append(claim.Votes, vote)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*models.Claim, error) {
	var (
		claim       models.Claim
		rawID       string
		rawAuthorID string
		rawDomain   string
	)
	if err := row.Scan(&rawID, &rawAuthorID, &rawDomain, &claim.Statement, &claim.CreatedAt); err != nil {
		return nil, err
	}

	claimID, err := id.ParseClaimID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored claim id invalid: %w", err)
	}
	authorID, err := id.ParseUserID(rawAuthorID)
	if err != nil {
		return nil, fmt.Errorf("stored author id invalid: %w", err)
	}
	claim.ID = claimID
	claim.AuthorID = authorID
	claim.Domain = id.Domain(rawDomain)
	return &claim, nil
}
