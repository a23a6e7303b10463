package notification

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/eglise-connect/platform/internal/shared/errors"
	"github.com/eglise-connect/platform/internal/shared/types"
)

// Repository persists per-user notification preferences
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new notification repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetPreferences returns a user's preferences, or the defaults when the
// user never saved any.
func (r *Repository) GetPreferences(ctx context.Context, userID types.ID) (*Preferences, error) {
	query := `
		SELECT user_id, enable_push, enable_email, enable_sms, enable_in_app,
			quiet_hours_enabled, quiet_hours_start, quiet_hours_end,
			always_allow_critical, updated_at
		FROM notification_preferences
		WHERE user_id = $1`

	p := &Preferences{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.EnablePush, &p.EnableEmail, &p.EnableSMS, &p.EnableInApp,
		&p.QuietHoursEnabled, &p.QuietHoursStart, &p.QuietHoursEnd,
		&p.AlwaysAllowCritical, &p.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return DefaultPreferences(userID), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get notification preferences")
	}

	return p, nil
}

// SavePreferences upserts a user's preferences
func (r *Repository) SavePreferences(ctx context.Context, p *Preferences) error {
	query := `
		INSERT INTO notification_preferences (
			user_id, enable_push, enable_email, enable_sms, enable_in_app,
			quiet_hours_enabled, quiet_hours_start, quiet_hours_end,
			always_allow_critical, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			enable_push = EXCLUDED.enable_push,
			enable_email = EXCLUDED.enable_email,
			enable_sms = EXCLUDED.enable_sms,
			enable_in_app = EXCLUDED.enable_in_app,
			quiet_hours_enabled = EXCLUDED.quiet_hours_enabled,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			always_allow_critical = EXCLUDED.always_allow_critical,
			updated_at = NOW()`

	_, err := r.pool.Exec(ctx, query,
		p.UserID, p.EnablePush, p.EnableEmail, p.EnableSMS, p.EnableInApp,
		p.QuietHoursEnabled, p.QuietHoursStart, p.QuietHoursEnd,
		p.AlwaysAllowCritical,
	)

	if err != nil {
		return errors.Wrap(err, "failed to save notification preferences")
	}

	return nil
}
