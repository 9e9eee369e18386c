package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/mess-be/internal/models"
	"github.com/hongminglow/mess-be/internal/storage"
)

const requestColumns = `id, user_id, meal_type, start_date, end_date, status, created_at, resolved_at, resolved_by`

// CreateRequest stores a new mess-off request.
func (s *Store) CreateRequest(ctx context.Context, req models.MessRequest) (models.MessRequest, error) {
	const query = `
		INSERT INTO mess_requests (user_id, meal_type, start_date, end_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + requestColumns
	row := s.pool.QueryRow(ctx, query, req.UserID, req.MealType, req.StartDate, req.EndDate, req.Status, req.CreatedAt)
	return scanRequest(row)
}

// FindRequest fetches a request by id.
func (s *Store) FindRequest(ctx context.Context, id int64) (models.MessRequest, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM mess_requests WHERE id = $1`, id)
	return scanRequest(row)
}

// ListRequestsByStatus lists requests in a status with the requesting
// student's identity, oldest first.
func (s *Store) ListRequestsByStatus(ctx context.Context, status models.RequestStatus) ([]models.MessRequestView, error) {
	const query = `
		SELECT r.id, r.user_id, r.meal_type, r.start_date, r.end_date, r.status, r.created_at, r.resolved_at, r.resolved_by,
		       COALESCE(a.user_code, ''), a.username, a.email
		FROM mess_requests r
		JOIN accounts a ON a.id = r.user_id
		WHERE r.status = $1
		ORDER BY r.created_at, r.id`
	rows, err := s.pool.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MessRequestView
	for rows.Next() {
		var v models.MessRequestView
		r := &v.MessRequest
		if err := rows.Scan(&r.ID, &r.UserID, &r.MealType, &r.StartDate, &r.EndDate, &r.Status, &r.CreatedAt, &r.ResolvedAt, &r.ResolvedBy,
			&v.UserCode, &v.Username, &v.Email); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListRequestsForUser lists a student's requests, newest first.
func (s *Store) ListRequestsForUser(ctx context.Context, userID int64) ([]models.MessRequest, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+requestColumns+` FROM mess_requests WHERE user_id = $1 ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MessRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// CountOverlapping counts the user's live requests intersecting [start, end].
func (s *Store) CountOverlapping(ctx context.Context, userID int64, start, end time.Time) (int, error) {
	const query = `
		SELECT COUNT(*) FROM mess_requests
		WHERE user_id = $1 AND status IN ('pending', 'approved')
		  AND start_date <= $3 AND end_date >= $2`
	var n int
	if err := s.pool.QueryRow(ctx, query, userID, start, end).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ResolveRequest moves a pending request to its terminal status and applies
// the ledger patches. Everything commits or nothing does.
func (s *Store) ResolveRequest(ctx context.Context, res storage.Resolution) (models.MessRequest, error) {
	var updated models.MessRequest
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		const query = `
			UPDATE mess_requests
			SET status = $2, resolved_at = $3, resolved_by = $4
			WHERE id = $1 AND status = 'pending'
			RETURNING ` + requestColumns
		var err error
		updated, err = scanRequest(tx.QueryRow(ctx, query, res.RequestID, res.Status, res.ResolvedAt, res.ResolvedBy))
		if errors.Is(err, storage.ErrNotFound) {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM mess_requests WHERE id = $1)`, res.RequestID).Scan(&exists); err != nil {
				return err
			}
			if exists {
				return storage.ErrNotPending
			}
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}

		if len(res.Patches) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for _, p := range res.Patches {
			batch.Queue(patchEntry, p.UserID, p.Date, p.BreakfastOff, p.DinnerOff)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return models.MessRequest{}, mapError(err)
	}
	return updated, nil
}

func scanRequest(row pgx.Row) (models.MessRequest, error) {
	var r models.MessRequest
	if err := row.Scan(&r.ID, &r.UserID, &r.MealType, &r.StartDate, &r.EndDate, &r.Status, &r.CreatedAt, &r.ResolvedAt, &r.ResolvedBy); err != nil {
		return models.MessRequest{}, mapError(err)
	}
	return r, nil
}
