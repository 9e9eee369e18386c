package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/mess-be/internal/models"
	"github.com/hongminglow/mess-be/internal/storage"
)

const accountColumns = `id, COALESCE(user_code, ''), username, email, phone, role, password_hash, created_at`

// CreateAccount inserts a new account. Students draw their user code from
// student_code_seq inside the same transaction, so codes never repeat.
func (s *Store) CreateAccount(ctx context.Context, account models.Account) (models.Account, error) {
	var created models.Account
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var code *string
		if account.Role == models.RoleStudent {
			var n int64
			if err := tx.QueryRow(ctx, `SELECT nextval('student_code_seq')`).Scan(&n); err != nil {
				return fmt.Errorf("next student code: %w", err)
			}
			c := models.FormatUserCode(n)
			code = &c
		}
		const query = `
			INSERT INTO accounts (user_code, username, email, phone, role, password_hash)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING ` + accountColumns
		row := tx.QueryRow(ctx, query, code, account.Username, account.Email, account.Phone, account.Role, account.PasswordHash)
		var err error
		created, err = scanAccount(row)
		return err
	})
	if err != nil {
		return models.Account{}, mapError(err)
	}
	return created, nil
}

// FindAccountByID fetches an account by primary key.
func (s *Store) FindAccountByID(ctx context.Context, id int64) (models.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// FindAccountByEmail fetches an account of the given role by email.
func (s *Store) FindAccountByEmail(ctx context.Context, email string, role models.Role) (models.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1) AND role = $2`, email, role)
	return scanAccount(row)
}

// FindStudentByCode fetches a student by user code.
func (s *Store) FindStudentByCode(ctx context.Context, code string) (models.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_code = $1 AND role = 'student'`, code)
	return scanAccount(row)
}

// ListAccounts returns every account of a role in creation order.
func (s *Store) ListAccounts(ctx context.Context, role models.Role) ([]models.Account, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE role = $1 ORDER BY id`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

// DeleteAccount removes an account; ledger rows and requests cascade.
func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var account models.Account
	if err := row.Scan(&account.ID, &account.UserCode, &account.Username, &account.Email, &account.Phone, &account.Role, &account.PasswordHash, &account.CreatedAt); err != nil {
		return models.Account{}, mapError(err)
	}
	return account, nil
}
