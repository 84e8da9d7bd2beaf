package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bloodlink/internal/bloodrequest/models"
	"bloodlink/internal/platform/postgres"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
	txcontext "bloodlink/pkg/platform/tx"
)

// PostgresStore persists blood requests in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, r *models.BloodRequest) error {
	query := `
		INSERT INTO blood_requests (
			id, requester_id, requester_name, patient_name, blood_type, units_needed,
			urgency, status, hospital_name, hospital_address, hospital_city, hospital_state,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(r.ID), uuid.UUID(r.RequesterID), r.RequesterName, r.PatientName,
		string(r.BloodType), r.UnitsNeeded, string(r.Urgency), string(r.Status),
		r.HospitalName, r.HospitalAddress, r.HospitalCity, r.HospitalState,
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert blood request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.RequestID) (*models.BloodRequest, error) {
	query := `
		SELECT id, requester_id, requester_name, patient_name, blood_type, units_needed,
			urgency, status, hospital_name, hospital_address, hospital_city, hospital_state,
			created_at, updated_at
		FROM blood_requests
		WHERE id = $1
	`
	var (
		r                      models.BloodRequest
		rid, requesterID       uuid.UUID
		bloodType, urgency, st string
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(requestID)).Scan(
		&rid, &requesterID, &r.RequesterName, &r.PatientName, &bloodType, &r.UnitsNeeded,
		&urgency, &st, &r.HospitalName, &r.HospitalAddress, &r.HospitalCity, &r.HospitalState,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find blood request by id: %w", err)
	}
	r.ID = id.RequestID(rid)
	r.RequesterID = id.UserID(requesterID)
	r.BloodType = id.BloodType(bloodType)
	r.Urgency = id.UrgencyLevel(urgency)
	r.Status = models.Status(st)
	return &r, nil
}

// UpdateStatusIf is a compare-and-set on the stored status. Zero rows means
// the request is gone (ErrNotFound) or already moved on (ErrConflict).
func (s *PostgresStore) UpdateStatusIf(ctx context.Context, requestID id.RequestID, expected, status models.Status, now time.Time) error {
	query := `UPDATE blood_requests SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(requestID), string(expected), string(status), now)
	if err != nil {
		return fmt.Errorf("update blood request status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update blood request status: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	err = s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM blood_requests WHERE id = $1)`, uuid.UUID(requestID),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check blood request existence: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}
