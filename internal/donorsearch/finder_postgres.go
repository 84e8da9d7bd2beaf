package donorsearch

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "bloodlink/pkg/domain"
)

// PostgresFinder calls the find_compatible_donors stored function, which does
// the geographic and blood-type search server side.
type PostgresFinder struct {
	db *sql.DB
}

func NewPostgresFinder(db *sql.DB) *PostgresFinder {
	return &PostgresFinder{db: db}
}

func (f *PostgresFinder) FindCompatibleDonors(ctx context.Context, params Params) (Result, error) {
	params = params.WithDefaults()
	query := `SELECT donor_id, distance_km, total_count FROM find_compatible_donors($1, $2, $3, $4)`
	rows, err := f.db.QueryContext(ctx, query,
		uuid.UUID(params.RequestID), params.MaxDistanceKm, params.MaxResults, params.IncludeUnavailable,
	)
	if err != nil {
		return Result{}, fmt.Errorf("find compatible donors: %w", err)
	}
	defer rows.Close()

	var result Result
	for rows.Next() {
		var (
			donorID uuid.UUID
			c       Candidate
			total   int
		)
		if err := rows.Scan(&donorID, &c.DistanceKm, &total); err != nil {
			return Result{}, fmt.Errorf("scan donor candidate: %w", err)
		}
		c.DonorID = id.UserID(donorID)
		result.Candidates = append(result.Candidates, c)
		result.TotalCount = total
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterate donor candidates: %w", err)
	}
	return result, nil
}
