package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"bloodlink/internal/donor/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// PostgresStore reads and writes the donors table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const donorColumns = `id, name, blood_type, city, state, available, last_donation_at`

func (s *PostgresStore) Save(ctx context.Context, d *models.Donor) error {
	query := `
		INSERT INTO donors (` + donorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			blood_type = EXCLUDED.blood_type,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			available = EXCLUDED.available,
			last_donation_at = EXCLUDED.last_donation_at
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(d.ID), d.Name, string(d.BloodType), d.City, d.State, d.Available, d.LastDonationAt,
	)
	if err != nil {
		return fmt.Errorf("save donor: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, donorID id.UserID) (*models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE id = $1`
	donor, err := scanDonor(s.db.QueryRowContext(ctx, query, uuid.UUID(donorID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find donor by id: %w", err)
	}
	return donor, nil
}

func (s *PostgresStore) FindByIDs(ctx context.Context, donorIDs []id.UserID) (map[id.UserID]*models.Donor, error) {
	out := make(map[id.UserID]*models.Donor, len(donorIDs))
	if len(donorIDs) == 0 {
		return out, nil
	}
	ids := make([]string, len(donorIDs))
	for i, donorID := range donorIDs {
		ids[i] = donorID.String()
	}

	query := `SELECT ` + donorColumns + ` FROM donors WHERE id = ANY($1::uuid[])`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("find donors by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		donor, err := scanDonor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donor: %w", err)
		}
		out[donor.ID] = donor
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donors: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonor(row rowScanner) (*models.Donor, error) {
	var (
		d         models.Donor
		donorID   uuid.UUID
		bloodType string
		lastDon   sql.NullTime
	)
	if err := row.Scan(&donorID, &d.Name, &bloodType, &d.City, &d.State, &d.Available, &lastDon); err != nil {
		return nil, err
	}
	d.ID = id.UserID(donorID)
	d.BloodType = id.BloodType(bloodType)
	if lastDon.Valid {
		t := lastDon.Time
		d.LastDonationAt = &t
	}
	return &d, nil
}
