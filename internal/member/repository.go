package member

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

// Repository provides database operations for members
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new member repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const memberColumns = `id, kind, first_name, last_name, city,
		contact_email, contact_phone, contact_mobile,
		address_street, address_city, address_postal, address_country,
		arrival_month, follow_up, notes, created_at, updated_at`

// Create registers a new member
func (r *Repository) Create(ctx context.Context, m *Member) error {
	query := `
		INSERT INTO members (
			id, kind, first_name, last_name, city,
			contact_email, contact_phone, contact_mobile,
			address_street, address_city, address_postal, address_country,
			arrival_month, follow_up, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.pool.Exec(ctx, query,
		m.ID, m.Kind, m.FirstName, m.LastName, m.City,
		m.Contact.Email, m.Contact.Phone, m.Contact.Mobile,
		m.Address.Street, m.Address.City, m.Address.PostalCode, m.Address.Country,
		m.ArrivalMonth, m.FollowUp, m.Notes,
	)

	if err != nil {
		return errors.Wrap(err, "failed to create member")
	}

	return nil
}

// Get retrieves a member by ID
func (r *Repository) Get(ctx context.Context, id types.ID) (*Member, error) {
	query := fmt.Sprintf(`SELECT %s FROM members WHERE id = $1`, memberColumns)

	m := &Member{}
	err := r.scanMember(r.pool.QueryRow(ctx, query, id), m)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("member", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get member")
	}

	return m, nil
}

// Update updates a member
func (r *Repository) Update(ctx context.Context, m *Member) error {
	query := `
		UPDATE members SET
			kind = $2, first_name = $3, last_name = $4, city = $5,
			contact_email = $6, contact_phone = $7, contact_mobile = $8,
			address_street = $9, address_city = $10, address_postal = $11, address_country = $12,
			arrival_month = $13, follow_up = $14, notes = $15, updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query,
		m.ID, m.Kind, m.FirstName, m.LastName, m.City,
		m.Contact.Email, m.Contact.Phone, m.Contact.Mobile,
		m.Address.Street, m.Address.City, m.Address.PostalCode, m.Address.Country,
		m.ArrivalMonth, m.FollowUp, m.Notes,
	)

	if err != nil {
		return errors.Wrap(err, "failed to update member")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("member", m.ID.String())
	}

	return nil
}

// Delete deletes a member
func (r *Repository) Delete(ctx context.Context, id types.ID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete member")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("member", id.String())
	}

	return nil
}

// List lists members within the resolved city scope. An empty or "all"
// city means no city filter.
func (r *Repository) List(ctx context.Context, filter ListMembersFilter) ([]Member, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.City != "" && filter.City != access.CityAll {
		conditions = append(conditions, fmt.Sprintf("city = $%d", argNum))
		args = append(args, filter.City)
		argNum++
	}

	if filter.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argNum))
		args = append(args, *filter.Kind)
		argNum++
	}

	if filter.ArrivalMonth != nil {
		conditions = append(conditions, fmt.Sprintf("arrival_month = $%d", argNum))
		args = append(args, *filter.ArrivalMonth)
		argNum++
	}

	if filter.FollowUp != nil {
		conditions = append(conditions, fmt.Sprintf("follow_up = $%d", argNum))
		args = append(args, *filter.FollowUp)
		argNum++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Get total count
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM members %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count members")
	}

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 200 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM members
		%s
		ORDER BY last_name, first_name
		LIMIT $%d OFFSET $%d`, memberColumns, whereClause, argNum, argNum+1)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list members")
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := r.scanMember(rows, &m); err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan member")
		}
		members = append(members, m)
	}

	return members, total, nil
}

// CountByCity returns member counts per city for the given kind.
func (r *Repository) CountByCity(ctx context.Context, kind Kind) (map[string]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT city, COUNT(*) FROM members WHERE kind = $1 GROUP BY city`, kind)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count members by city")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var city string
		var count int
		if err := rows.Scan(&city, &count); err != nil {
			return nil, errors.Wrap(err, "failed to scan count")
		}
		counts[city] = count
	}

	return counts, nil
}

// CountByArrivalMonth returns member counts per cohort within a city
// scope. An empty or "all" city aggregates every city.
func (r *Repository) CountByArrivalMonth(ctx context.Context, city string) (map[string]int, error) {
	query := `SELECT arrival_month, COUNT(*) FROM members
		WHERE arrival_month IS NOT NULL`
	var args []interface{}
	if city != "" && city != access.CityAll {
		query += ` AND city = $1`
		args = append(args, city)
	}
	query += ` GROUP BY arrival_month`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count members by cohort")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var month string
		var count int
		if err := rows.Scan(&month, &count); err != nil {
			return nil, errors.Wrap(err, "failed to scan count")
		}
		counts[month] = count
	}

	return counts, nil
}

func (r *Repository) scanMember(row pgx.Row, m *Member) error {
	return row.Scan(
		&m.ID, &m.Kind, &m.FirstName, &m.LastName, &m.City,
		&m.Contact.Email, &m.Contact.Phone, &m.Contact.Mobile,
		&m.Address.Street, &m.Address.City, &m.Address.PostalCode, &m.Address.Country,
		&m.ArrivalMonth, &m.FollowUp, &m.Notes, &m.CreatedAt, &m.UpdatedAt,
	)
}
