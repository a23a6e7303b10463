package group

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

// Repository provides database operations for FI groups and attendance
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new group repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create creates a new group
func (r *Repository) Create(ctx context.Context, g *Group) error {
	query := `
		INSERT INTO fi_groups (id, name, city, pilote_id, secteur_id)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query, g.ID, g.Name, g.City, g.PiloteID, g.SecteurID)
	if err != nil {
		return errors.Wrap(err, "failed to create group")
	}

	return nil
}

// Get retrieves a group by ID with its member count
func (r *Repository) Get(ctx context.Context, id types.ID) (*Group, error) {
	query := `
		SELECT g.id, g.name, g.city, g.pilote_id, g.secteur_id, g.created_at, g.updated_at,
			(SELECT COUNT(*) FROM fi_group_members m WHERE m.group_id = g.id)
		FROM fi_groups g
		WHERE g.id = $1`

	g := &Group{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&g.ID, &g.Name, &g.City, &g.PiloteID, &g.SecteurID,
		&g.CreatedAt, &g.UpdatedAt, &g.MemberCount,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("group", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get group")
	}

	return g, nil
}

// Update updates a group
func (r *Repository) Update(ctx context.Context, g *Group) error {
	query := `
		UPDATE fi_groups SET
			name = $2, pilote_id = $3, secteur_id = $4, updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, g.ID, g.Name, g.PiloteID, g.SecteurID)
	if err != nil {
		return errors.Wrap(err, "failed to update group")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("group", g.ID.String())
	}

	return nil
}

// Delete deletes a group and its membership and attendance rows
func (r *Repository) Delete(ctx context.Context, id types.ID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM fi_groups WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete group")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("group", id.String())
	}

	return nil
}

// List lists groups within a city scope and optional filters
func (r *Repository) List(ctx context.Context, filter ListGroupsFilter) ([]Group, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.City != "" && filter.City != access.CityAll {
		conditions = append(conditions, fmt.Sprintf("g.city = $%d", argNum))
		args = append(args, filter.City)
		argNum++
	}

	if filter.ID != nil {
		conditions = append(conditions, fmt.Sprintf("g.id = $%d", argNum))
		args = append(args, *filter.ID)
		argNum++
	}

	if filter.SecteurID != nil {
		conditions = append(conditions, fmt.Sprintf("g.secteur_id = $%d", argNum))
		args = append(args, *filter.SecteurID)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM fi_groups g %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count groups")
	}

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT g.id, g.name, g.city, g.pilote_id, g.secteur_id, g.created_at, g.updated_at,
			(SELECT COUNT(*) FROM fi_group_members m WHERE m.group_id = g.id)
		FROM fi_groups g
		%s
		ORDER BY g.name
		LIMIT $%d OFFSET $%d`, whereClause, argNum, argNum+1)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list groups")
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		err := rows.Scan(
			&g.ID, &g.Name, &g.City, &g.PiloteID, &g.SecteurID,
			&g.CreatedAt, &g.UpdatedAt, &g.MemberCount,
		)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan group")
		}
		groups = append(groups, g)
	}

	return groups, total, nil
}

// AddMember adds a member to a group. Adding twice is a no-op.
func (r *Repository) AddMember(ctx context.Context, groupID, memberID types.ID) error {
	query := `
		INSERT INTO fi_group_members (group_id, member_id)
		VALUES ($1, $2)
		ON CONFLICT (group_id, member_id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query, groupID, memberID)
	if err != nil {
		return errors.Wrap(err, "failed to add group member")
	}

	return nil
}

// RemoveMember removes a member from a group
func (r *Repository) RemoveMember(ctx context.Context, groupID, memberID types.ID) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM fi_group_members WHERE group_id = $1 AND member_id = $2`,
		groupID, memberID)
	if err != nil {
		return errors.Wrap(err, "failed to remove group member")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("group member", memberID.String())
	}

	return nil
}

// MemberIDs returns the member IDs belonging to a group
func (r *Repository) MemberIDs(ctx context.Context, groupID types.ID) ([]types.ID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT member_id FROM fi_group_members WHERE group_id = $1`, groupID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list group members")
	}
	defer rows.Close()

	var ids []types.ID
	for rows.Next() {
		var id types.ID
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan member id")
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// MarkAttendance upserts presence rows for one meeting date. Re-marking
// a member on the same date overwrites the previous value.
func (r *Repository) MarkAttendance(ctx context.Context, groupID types.ID, meetingDate string, entries []AttendanceEntry, markedBy types.ID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO fi_attendance (group_id, member_id, meeting_date, present, marked_by, marked_at)
		VALUES ($1, $2, $3::date, $4, $5, NOW())
		ON CONFLICT (group_id, member_id, meeting_date)
		DO UPDATE SET present = EXCLUDED.present, marked_by = EXCLUDED.marked_by, marked_at = NOW()`

	for _, entry := range entries {
		if _, err := tx.Exec(ctx, query, groupID, entry.MemberID, meetingDate, entry.Present, markedBy); err != nil {
			return errors.Wrap(err, "failed to mark attendance")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

// Attendance returns the attendance rows for a group and meeting date
func (r *Repository) Attendance(ctx context.Context, groupID types.ID, meetingDate string) ([]AttendanceRecord, error) {
	query := `
		SELECT group_id, member_id, meeting_date::text, present, marked_by, marked_at
		FROM fi_attendance
		WHERE group_id = $1 AND meeting_date = $2::date
		ORDER BY member_id`

	rows, err := r.pool.Query(ctx, query, groupID, meetingDate)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get attendance")
	}
	defer rows.Close()

	var records []AttendanceRecord
	for rows.Next() {
		var rec AttendanceRecord
		if err := rows.Scan(&rec.GroupID, &rec.MemberID, &rec.MeetingDate, &rec.Present, &rec.MarkedBy, &rec.MarkedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan attendance record")
		}
		records = append(records, rec)
	}

	return records, nil
}

// AttendanceRate returns the presence ratio per meeting date for a group
func (r *Repository) AttendanceRate(ctx context.Context, groupID types.ID) (map[string]float64, error) {
	query := `
		SELECT meeting_date::text, AVG(CASE WHEN present THEN 1.0 ELSE 0.0 END)
		FROM fi_attendance
		WHERE group_id = $1
		GROUP BY meeting_date
		ORDER BY meeting_date`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute attendance rate")
	}
	defer rows.Close()

	rates := make(map[string]float64)
	for rows.Next() {
		var date string
		var rate float64
		if err := rows.Scan(&date, &rate); err != nil {
			return nil, errors.Wrap(err, "failed to scan attendance rate")
		}
		rates[date] = rate
	}

	return rates, nil
}
