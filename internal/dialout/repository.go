// Package dialout proxies phone-invite requests to the carrier API and keeps
// an audit trail of attempts per room.
package dialout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Attempt is one recorded dial-out request.
type Attempt struct {
	ID          uuid.UUID `json:"id"`
	RoomID      string    `json:"room_id"`
	PhoneNumber string    `json:"phone_number"`
	RequestedBy string    `json:"requested_by"`
	Status      string    `json:"status"` // requested | accepted | failed
	CreatedAt   time.Time `json:"created_at"`
}

// Repository handles dialout_attempts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a dial-out repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts an attempt and returns its id.
func (r *Repository) Record(ctx context.Context, roomID, phoneNumber, requestedBy, status string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`INSERT INTO dialout_attempts (room_id, phone_number, requested_by, status)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		roomID, phoneNumber, requestedBy, status).Scan(&id)
	return id, err
}

// UpdateStatus sets the outcome of an attempt.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE dialout_attempts SET status = $2 WHERE id = $1`, id, status)
	return err
}

// ListByRoom returns recent attempts for a room, newest first.
func (r *Repository) ListByRoom(ctx context.Context, roomID string, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, room_id, phone_number, requested_by, status, created_at
		 FROM dialout_attempts WHERE room_id = $1 ORDER BY created_at DESC LIMIT $2`,
		roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.RoomID, &a.PhoneNumber, &a.RequestedBy, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
