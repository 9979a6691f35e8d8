package user

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for user persistence operations.
//
// Create assigns the record's ID and timestamps. List returns records in
// insertion order; ListPage and Search additionally return the total
// number of matching records so callers can build a Page envelope.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context) ([]User, error)
	ListPage(ctx context.Context, page, size int) ([]User, int, error)
	Search(ctx context.Context, query string, page, size int) ([]User, int, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed user repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const userColumns = `id, name, address, email, telephone, created_at, updated_at`

// Create inserts a new user and assigns its auto-increment ID.
func (r *SQLiteRepository) Create(ctx context.Context, u *User) error {
	now := time.Now().UTC().Truncate(time.Second)
	const query = `INSERT INTO users (name, address, email, telephone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		u.Name, u.Address, u.Email, u.Telephone,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted user id: %w", err)
	}
	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// GetByID returns a single user by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	return scanUser(row)
}

// List returns all users in insertion order.
func (r *SQLiteRepository) List(ctx context.Context) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	return r.queryUsers(ctx, query)
}

// ListPage returns one page of users plus the total record count.
func (r *SQLiteRepository) ListPage(ctx context.Context, page, size int) ([]User, int, error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT ? OFFSET ?`
	users, err := r.queryUsers(ctx, query, size, page*size)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Search returns one page of users whose name, address, email, or
// telephone contains the query (case-insensitive), plus the total match
// count. An empty query matches every record.
func (r *SQLiteRepository) Search(ctx context.Context, query string, page, size int) ([]User, int, error) {
	if query == "" {
		return r.ListPage(ctx, page, size)
	}
	pattern := "%" + strings.ToLower(query) + "%"
	const where = `WHERE LOWER(name) LIKE ? OR LOWER(address) LIKE ?
		OR LOWER(email) LIKE ? OR LOWER(telephone) LIKE ?`

	var total int
	countQuery := `SELECT COUNT(*) FROM users ` + where
	err := r.db.QueryRowContext(ctx, countQuery, pattern, pattern, pattern, pattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting search matches: %w", err)
	}

	selectQuery := `SELECT ` + userColumns + ` FROM users ` + where + ` ORDER BY id LIMIT ? OFFSET ?`
	users, err := r.queryUsers(ctx, selectQuery, pattern, pattern, pattern, pattern, size, page*size)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update rewrites an existing user record and refreshes updated_at.
// Returns ErrUserNotFound if the ID does not exist.
func (r *SQLiteRepository) Update(ctx context.Context, u *User) error {
	now := time.Now().UTC().Truncate(time.Second)
	const query = `UPDATE users SET name = ?, address = ?, email = ?, telephone = ?,
		updated_at = ?
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		u.Name, u.Address, u.Email, u.Telephone,
		now.Format(time.RFC3339), u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("updating user %d: %w", u.ID, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrUserNotFound
	}

	// created_at is never written by an update; read it back so the
	// returned record carries the original value.
	var createdAt string
	if err := r.db.QueryRowContext(ctx,
		"SELECT created_at FROM users WHERE id = ?", u.ID,
	).Scan(&createdAt); err != nil {
		return fmt.Errorf("reading created_at for user %d: %w", u.ID, err)
	}
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = now
	return nil
}

// Delete removes a single user by ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting user %d: %w", id, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Count returns the total number of user records.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// queryUsers executes a query and returns a slice of User.
func (r *SQLiteRepository) queryUsers(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}
	return users, nil
}

// scanUser scans a single row into a User (for QueryRow).
func scanUser(row *sql.Row) (*User, error) {
	var u User
	var createdAt, updatedAt string

	err := row.Scan(&u.ID, &u.Name, &u.Address, &u.Email, &u.Telephone, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return &u, nil
}

// scanUserRow scans a user from a Rows cursor.
func scanUserRow(rows *sql.Rows) (*User, error) {
	var u User
	var createdAt, updatedAt string

	err := rows.Scan(&u.ID, &u.Name, &u.Address, &u.Email, &u.Telephone, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scanning user row: %w", err)
	}
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return &u, nil
}

// parseTime parses an ISO 8601 timestamp from SQLite.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02T15:04:05Z", s)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}

// isUniqueViolation reports whether an error is the driver's UNIQUE
// constraint failure on the email column.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
