// Package legacy reads member rows out of the previous membership
// software, a SQL Server database that stays online read-only during the
// migration period.
package legacy

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/denisenkom/go-mssqldb"

	"github.com/eglise-connect/platform/internal/shared/config"
)

// Record is one member row as the old software stored it
type Record struct {
	FirstName    string
	LastName     string
	City         string
	Email        string
	Phone        string
	ArrivalMonth string
}

// Client wraps the read-only SQL Server connection
type Client struct {
	db *sql.DB
}

// New opens a connection to the legacy database
func New(cfg config.LegacyConfig) (*Client, error) {
	db, err := sql.Open("sqlserver", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy database: %w", err)
	}

	db.SetMaxOpenConns(2)
	db.SetConnMaxIdleTime(time.Minute)

	return &Client{db: db}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.db.Close()
}

// Health checks the legacy database connection
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

// FetchMembers reads member rows for one city, or every city when city
// is empty. The old schema kept arrival dates as free text; the importer
// normalizes what it can and leaves the rest blank.
func (c *Client) FetchMembers(ctx context.Context, city string) ([]Record, error) {
	query := `
		SELECT prenom, nom, ville,
			COALESCE(email, ''), COALESCE(telephone, ''),
			COALESCE(mois_arrivee, '')
		FROM membres`
	var args []any
	if city != "" {
		query += ` WHERE ville = @city`
		args = append(args, sql.Named("city", city))
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query legacy members: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var rawMonth string
		if err := rows.Scan(&rec.FirstName, &rec.LastName, &rec.City, &rec.Email, &rec.Phone, &rawMonth); err != nil {
			return nil, fmt.Errorf("failed to scan legacy member: %w", err)
		}
		rec.ArrivalMonth = normalizeMonth(rawMonth)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read legacy members: %w", err)
	}

	return records, nil
}

// normalizeMonth accepts "2026-03" or "03/2026" and returns "2026-03".
// Anything else is dropped.
func normalizeMonth(raw string) string {
	if _, err := time.Parse("2006-01", raw); err == nil {
		return raw
	}
	if parsed, err := time.Parse("01/2006", raw); err == nil {
		return parsed.Format("2006-01")
	}
	return ""
}
