package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/eglise-connect/platform/internal/access"
	"github.com/eglise-connect/platform/internal/shared/errors"
	"github.com/eglise-connect/platform/internal/shared/types"
)

// Repository provides database operations for user accounts
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new identity repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, username, password_hash, role, city,
		assigned_month, assigned_fi_id, assigned_secteur_id,
		dashboard_permissions, is_blocked, created_at, updated_at`

// CreateUser creates a new user
func (r *Repository) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (
			id, username, password_hash, role, city,
			assigned_month, assigned_fi_id, assigned_secteur_id,
			dashboard_permissions, is_blocked
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		user.ID, user.Username, user.PasswordHash, user.Role, user.City,
		user.AssignedMonth, user.AssignedFIID, user.AssignedSecteurID,
		user.DashboardPermissions, user.IsBlocked,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("user with this username already exists")
		}
		return errors.Wrap(err, "failed to create user")
	}

	return nil
}

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, id types.ID) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	user := &User{}
	err := r.scanUser(r.pool.QueryRow(ctx, query, id), user)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("user", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user")
	}

	return user, nil
}

// GetUserByUsername retrieves a user by username
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1`, userColumns)

	user := &User{}
	err := r.scanUser(r.pool.QueryRow(ctx, query, username), user)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("user", username)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user by username")
	}

	return user, nil
}

// LoadIdentity loads the identity record for an authenticated user.
// Returns nil without error when the user no longer exists, so callers
// can treat a stale token as unauthenticated instead of a server error.
func (r *Repository) LoadIdentity(ctx context.Context, id types.ID) (*access.Identity, error) {
	user, err := r.GetUser(ctx, id)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.HTTPStatus == 404 {
			return nil, nil
		}
		return nil, err
	}
	return user.Identity(), nil
}

// UpdateUser updates a user's mutable fields
func (r *Repository) UpdateUser(ctx context.Context, user *User) error {
	query := `
		UPDATE users SET
			password_hash = $2, role = $3, city = $4,
			assigned_month = $5, assigned_fi_id = $6, assigned_secteur_id = $7,
			is_blocked = $8, updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		user.ID, user.PasswordHash, user.Role, user.City,
		user.AssignedMonth, user.AssignedFIID, user.AssignedSecteurID,
		user.IsBlocked,
	)

	if err != nil {
		return errors.Wrap(err, "failed to update user")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("user", user.ID.String())
	}

	return nil
}

// ReplacePermissions overwrites the user's dashboard permission overrides
// with the given map. This is a full replace: keys absent from the map
// are dropped. A nil map clears every override.
func (r *Repository) ReplacePermissions(ctx context.Context, id types.ID, permissions map[access.Capability]bool) error {
	query := `
		UPDATE users SET dashboard_permissions = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, permissions)
	if err != nil {
		return errors.Wrap(err, "failed to replace permissions")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("user", id.String())
	}

	return nil
}

// DeleteUser deletes a user
func (r *Repository) DeleteUser(ctx context.Context, id types.ID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete user")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("user", id.String())
	}

	return nil
}

// ListUsers lists users with optional filters
func (r *Repository) ListUsers(ctx context.Context, filter ListUsersFilter) ([]User, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argNum))
		args = append(args, *filter.Role)
		argNum++
	}

	if filter.City != nil {
		conditions = append(conditions, fmt.Sprintf("city = $%d", argNum))
		args = append(args, *filter.City)
		argNum++
	}

	if filter.Blocked != nil {
		conditions = append(conditions, fmt.Sprintf("is_blocked = $%d", argNum))
		args = append(args, *filter.Blocked)
		argNum++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("username ILIKE $%d", argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Get total count
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM users %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count users")
	}

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		%s
		ORDER BY username
		LIMIT $%d OFFSET $%d`, userColumns, whereClause, argNum, argNum+1)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		if err := r.scanUser(rows, &user); err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan user")
		}
		users = append(users, user)
	}

	return users, total, nil
}

func (r *Repository) scanUser(row pgx.Row, user *User) error {
	return row.Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.City,
		&user.AssignedMonth, &user.AssignedFIID, &user.AssignedSecteurID,
		&user.DashboardPermissions, &user.IsBlocked, &user.CreatedAt, &user.UpdatedAt,
	)
}
