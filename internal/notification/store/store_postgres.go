package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"bloodlink/internal/notification/models"
	"bloodlink/internal/platform/postgres"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_id, type, title, message, related_entity_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(n.ID), uuid.UUID(n.RecipientID), string(n.Type), n.Title, n.Message,
		n.RelatedEntityID, n.Read, n.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByRecipient(ctx context.Context, recipient id.UserID, unreadOnly bool) ([]*models.Notification, error) {
	query := `
		SELECT id, recipient_id, type, title, message, related_entity_id, read, created_at
		FROM notifications
		WHERE recipient_id = $1 AND ($2 = false OR read = false)
		ORDER BY created_at DESC, id
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(recipient), unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var (
			n                   models.Notification
			notificationID, rid uuid.UUID
			typ                 string
		)
		if err := rows.Scan(&notificationID, &rid, &typ, &n.Title, &n.Message,
			&n.RelatedEntityID, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.ID = id.NotificationID(notificationID)
		n.RecipientID = id.UserID(rid)
		n.Type = models.Type(typ)
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) MarkRead(ctx context.Context, notificationID id.NotificationID, recipient id.UserID) error {
	query := `UPDATE notifications SET read = true WHERE id = $1 AND recipient_id = $2`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(notificationID), uuid.UUID(recipient))
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
