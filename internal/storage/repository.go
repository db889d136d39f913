// Package storage is the SQLite persistence layer. It hands the engine
// consistent snapshots of users, categories and transactions; all balance
// math happens elsewhere.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vela/internal/core"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUsernameTaken    = errors.New("username already taken")
	ErrFallbackCategory = errors.New("fallback category cannot be deleted")
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateUser inserts a user and seeds the default category set in one
// transaction.
func (r *SQLiteRepository) CreateUser(ctx context.Context, user *core.User, categories []core.Category) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, initial_balance) VALUES (?, ?, ?)`,
		user.Username, user.PasswordHash, user.InitialBalance)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.username") {
			return ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}

	for _, c := range categories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (user_id, name, description) VALUES (?, ?, ?)`,
			user.ID, c.Name, c.Description); err != nil {
			return fmt.Errorf("seed category %q: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, initial_balance, created_at FROM users WHERE username = ?`,
		username))
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (*core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, initial_balance, created_at FROM users WHERE id = ?`,
		id))
}

func (r *SQLiteRepository) scanUser(row *sql.Row) (*core.User, error) {
	user := &core.User{}
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.InitialBalance, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

// ListUsers returns every user, ordered by id. The summary export walks
// this list once per day.
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, password_hash, initial_balance, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.InitialBalance, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// --- Categories ---

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, description) VALUES (?, ?, ?)`,
		c.UserID, c.Name, c.Description)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("category id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id int64) (*core.Category, error) {
	c := &core.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description FROM categories WHERE id = ? AND user_id = ?`,
		id, userID).Scan(&c.ID, &c.UserID, &c.Name, &c.Description)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, description FROM categories WHERE user_id = ? ORDER BY id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c *core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ? WHERE id = ? AND user_id = ?`,
		c.Name, c.Description, c.ID, c.UserID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCategory reassigns the category's transactions to the user's
// fallback category before deleting, so no transaction is ever left
// referencing a missing category. The fallback is created on demand.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id int64, fallbackName string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var name string
	err = tx.QueryRowContext(ctx,
		`SELECT name FROM categories WHERE id = ? AND user_id = ?`, id, userID).Scan(&name)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load category: %w", err)
	}
	if name == fallbackName {
		return fmt.Errorf("category %q: %w", fallbackName, ErrFallbackCategory)
	}

	var fallbackID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE user_id = ? AND name = ?`, userID, fallbackName).Scan(&fallbackID)
	if err == sql.ErrNoRows {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO categories (user_id, name, description) VALUES (?, ?, '')`,
			userID, fallbackName)
		if err != nil {
			return fmt.Errorf("create fallback category: %w", err)
		}
		fallbackID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("fallback category id: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("find fallback category: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE transactions SET category_id = ? WHERE category_id = ? AND user_id = ?`,
		fallbackID, id, userID); err != nil {
		return fmt.Errorf("reassign transactions: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// --- Transactions ---

// TransactionFilter narrows ListTransactions. Start/End bound StartDate
// inclusively; the engine's range statistics rely on this pre-filtering.
type TransactionFilter struct {
	Start      *core.Date
	End        *core.Date
	CategoryID *int64
}

const txColumns = `id, user_id, category_id, amount, kind, description,
	is_recurring, cycle_days, duration_days, start_date, end_date, created_at`

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions
			(user_id, category_id, amount, kind, description, is_recurring, cycle_days, duration_days, start_date, end_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, nullID(t.CategoryID), t.Amount, string(t.Kind), t.Description,
		t.IsRecurring, nullInt(t.CycleDays), nullInt(t.DurationDays),
		t.StartDate.String(), nullDate(t.EndDate))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id int64) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, f TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE user_id = ?`
	args := []any{userID}

	// Dates are stored as YYYY-MM-DD text, so lexicographic comparison is
	// chronological.
	if f.Start != nil {
		query += ` AND start_date >= ?`
		args = append(args, f.Start.String())
	}
	if f.End != nil {
		query += ` AND start_date <= ?`
		args = append(args, f.End.String())
	}
	if f.CategoryID != nil {
		query += ` AND category_id = ?`
		args = append(args, *f.CategoryID)
	}
	query += ` ORDER BY start_date, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t *core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET
			category_id = ?, amount = ?, kind = ?, description = ?,
			is_recurring = ?, cycle_days = ?, duration_days = ?, start_date = ?, end_date = ?
		 WHERE id = ? AND user_id = ?`,
		nullID(t.CategoryID), t.Amount, string(t.Kind), t.Description,
		t.IsRecurring, nullInt(t.CycleDays), nullInt(t.DurationDays),
		t.StartDate.String(), nullDate(t.EndDate),
		t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*core.Transaction, error) {
	var (
		t          core.Transaction
		categoryID sql.NullInt64
		cycleDays  sql.NullInt64
		duration   sql.NullInt64
		kind       string
		startDate  string
		endDate    sql.NullString
	)
	err := row.Scan(&t.ID, &t.UserID, &categoryID, &t.Amount, &kind, &t.Description,
		&t.IsRecurring, &cycleDays, &duration, &startDate, &endDate, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	t.Kind = core.Kind(kind)
	if categoryID.Valid {
		t.CategoryID = &categoryID.Int64
	}
	t.CycleDays = int(cycleDays.Int64)
	t.DurationDays = int(duration.Int64)

	t.StartDate, err = core.ParseDate(startDate)
	if err != nil {
		return nil, fmt.Errorf("parse start_date %q: %w", startDate, err)
	}
	if endDate.Valid {
		end, err := core.ParseDate(endDate.String)
		if err != nil {
			return nil, fmt.Errorf("parse end_date %q: %w", endDate.String, err)
		}
		t.EndDate = &end
	}
	return &t, nil
}

func nullID(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullDate(d *core.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}
