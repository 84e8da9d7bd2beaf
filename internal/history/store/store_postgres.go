package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"bloodlink/internal/history/models"
	"bloodlink/internal/platform/postgres"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
	txcontext "bloodlink/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, r *models.DonationRecord) error {
	query := `
		INSERT INTO donation_history (
			id, donor_id, request_id, match_id, blood_type, donated_at, location, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(r.ID), uuid.UUID(r.DonorID), uuid.UUID(r.RequestID), uuid.UUID(r.MatchID),
		string(r.BloodType), r.DonatedAt, r.Location, r.Notes, r.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert donation record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByDonor(ctx context.Context, donorID id.UserID) ([]*models.DonationRecord, error) {
	query := `
		SELECT id, donor_id, request_id, match_id, blood_type, donated_at, location, notes, created_at
		FROM donation_history
		WHERE donor_id = $1
		ORDER BY donated_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(donorID))
	if err != nil {
		return nil, fmt.Errorf("query donation history: %w", err)
	}
	defer rows.Close()

	var out []*models.DonationRecord
	for rows.Next() {
		var (
			r                                  models.DonationRecord
			recordID, donor, request, matchRef uuid.UUID
			bloodType                          string
		)
		if err := rows.Scan(&recordID, &donor, &request, &matchRef, &bloodType,
			&r.DonatedAt, &r.Location, &r.Notes, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan donation record: %w", err)
		}
		r.ID = id.DonationID(recordID)
		r.DonorID = id.UserID(donor)
		r.RequestID = id.RequestID(request)
		r.MatchID = id.MatchID(matchRef)
		r.BloodType = id.BloodType(bloodType)
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donation history: %w", err)
	}
	return out, nil
}
