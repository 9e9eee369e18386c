package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/mess-be/internal/models"
	"github.com/hongminglow/mess-be/internal/storage"
)

// patchEntry switches meals off for one day. A new row starts with the
// untargeted meal on; an existing row keeps it.
const patchEntry = `
	INSERT INTO mess_entries (user_id, entry_date, breakfast, dinner)
	VALUES ($1, $2, NOT $3::boolean, NOT $4::boolean)
	ON CONFLICT (user_id, entry_date) DO UPDATE SET
		breakfast = CASE WHEN $3::boolean THEN FALSE ELSE mess_entries.breakfast END,
		dinner    = CASE WHEN $4::boolean THEN FALSE ELSE mess_entries.dinner END`

// InsertEntries creates missing ledger rows in one batch and reports how many
// were new.
func (s *Store) InsertEntries(ctx context.Context, entries []models.MessEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	const query = `
		INSERT INTO mess_entries (user_id, entry_date, breakfast, dinner)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, entry_date) DO NOTHING`

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(query, e.UserID, e.Date, e.Breakfast, e.Dinner)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for range entries {
		tag, err := results.Exec()
		if err != nil {
			return inserted, mapError(err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// PatchEntries upserts each patch in turn without a surrounding transaction.
func (s *Store) PatchEntries(ctx context.Context, patches []storage.EntryPatch) error {
	for _, p := range patches {
		if _, err := s.pool.Exec(ctx, patchEntry, p.UserID, p.Date, p.BreakfastOff, p.DinnerOff); err != nil {
			return mapError(err)
		}
	}
	return nil
}

// EntriesForUser lists a student's rows between from and to inclusive.
func (s *Store) EntriesForUser(ctx context.Context, userID int64, from, to time.Time) ([]models.MessEntry, error) {
	const query = `
		SELECT id, user_id, entry_date, breakfast, dinner
		FROM mess_entries
		WHERE user_id = $1 AND entry_date BETWEEN $2 AND $3
		ORDER BY entry_date`
	rows, err := s.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MessEntry
	for rows.Next() {
		var e models.MessEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Date, &e.Breakfast, &e.Dinner); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ActiveOn joins the day's ledger with student identity, keeping students with
// at least one meal on.
func (s *Store) ActiveOn(ctx context.Context, date time.Time) ([]models.MessStatus, error) {
	const query = `
		SELECT a.user_code, a.username, a.email, e.breakfast, e.dinner
		FROM mess_entries e
		JOIN accounts a ON a.id = e.user_id
		WHERE e.entry_date = $1 AND (e.breakfast OR e.dinner) AND a.role = 'student'
		ORDER BY a.user_code`
	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MessStatus
	for rows.Next() {
		var st models.MessStatus
		if err := rows.Scan(&st.UserCode, &st.StudentName, &st.Email, &st.Breakfast, &st.Dinner); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
