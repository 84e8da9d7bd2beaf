package match

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"bloodlink/internal/matching/models"
	"bloodlink/internal/platform/postgres"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
	txcontext "bloodlink/pkg/platform/tx"
)

// PostgresStore persists matches in donation_matches. A partial unique index on
// (request_id, donor_id) WHERE status IN ('pending', 'accepted') enforces one
// active candidacy per donor and request.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const matchColumns = `id, request_id, donor_id, status, distance_km, created_at,
	response_time, donation_time, notes, updated_at`

func (s *PostgresStore) Create(ctx context.Context, m *models.DonationMatch) error {
	query := `INSERT INTO donation_matches (` + matchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(m.ID), uuid.UUID(m.RequestID), uuid.UUID(m.DonorID), string(m.Status),
		m.DistanceKm, m.CreatedAt, m.ResponseTime, m.DonationTime, nullString(m.Notes), m.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert donation match: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, matchID id.MatchID) (*models.DonationMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM donation_matches WHERE id = $1`
	m, err := scanMatch(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(matchID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find donation match by id: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) ListByRequest(ctx context.Context, requestID id.RequestID) ([]*models.DonationMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM donation_matches
		WHERE request_id = $1 ORDER BY created_at, id`
	return s.list(ctx, query, uuid.UUID(requestID))
}

func (s *PostgresStore) ListByDonor(ctx context.Context, donorID id.UserID) ([]*models.DonationMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM donation_matches
		WHERE donor_id = $1 ORDER BY created_at, id`
	return s.list(ctx, query, uuid.UUID(donorID))
}

func (s *PostgresStore) HasActiveMatch(ctx context.Context, requestID id.RequestID, donorID id.UserID) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM donation_matches
		WHERE request_id = $1 AND donor_id = $2 AND status IN ('pending', 'accepted')
	)`
	var exists bool
	if err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(requestID), uuid.UUID(donorID)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active donation match: %w", err)
	}
	return exists, nil
}

// UpdateIfStatus writes the mutable columns only while the stored status
// equals expected. A miss is disambiguated into ErrNotFound or ErrConflict.
func (s *PostgresStore) UpdateIfStatus(ctx context.Context, m *models.DonationMatch, expected models.Status) error {
	query := `
		UPDATE donation_matches
		SET status = $3, response_time = $4, donation_time = $5, notes = $6, updated_at = $7
		WHERE id = $1 AND status = $2
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(m.ID), string(expected), string(m.Status),
		m.ResponseTime, m.DonationTime, nullString(m.Notes), m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update donation match: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update donation match: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	err = s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM donation_matches WHERE id = $1)`, uuid.UUID(m.ID),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check donation match existence: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]*models.DonationMatch, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query donation matches: %w", err)
	}
	defer rows.Close()

	var out []*models.DonationMatch
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donation match: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donation matches: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*models.DonationMatch, error) {
	var (
		m                           models.DonationMatch
		matchID, requestID, donorID uuid.UUID
		status                      string
		responseTime, donationTime  sql.NullTime
		notes                       sql.NullString
	)
	if err := row.Scan(&matchID, &requestID, &donorID, &status, &m.DistanceKm, &m.CreatedAt,
		&responseTime, &donationTime, &notes, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.ID = id.MatchID(matchID)
	m.RequestID = id.RequestID(requestID)
	m.DonorID = id.UserID(donorID)
	m.Status = models.Status(status)
	if responseTime.Valid {
		t := responseTime.Time
		m.ResponseTime = &t
	}
	if donationTime.Valid {
		t := donationTime.Time
		m.DonationTime = &t
	}
	m.Notes = notes.String
	return &m, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
