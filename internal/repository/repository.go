// Package repository holds the Postgres data access for the service.
package repository

import (
	stderrors "errors"

	"github.com/jackc/pgx/v5"

	"github.com/windfall/speakcoach_service/internal/client"
	"github.com/windfall/speakcoach_service/internal/errors"
)

// Shared pagination bounds for list queries.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrNotConfigured is returned by every repository when no database is wired.
var ErrNotConfigured = errors.New(errors.ErrDatabase, "database not configured")

func ready(db *client.PostgresClient) error {
	if !db.Ready() {
		return ErrNotConfigured
	}
	return nil
}

func isNoRows(err error) bool {
	return stderrors.Is(err, pgx.ErrNoRows)
}

// clampLimit bounds limit to (0, MaxLimit], falling back to DefaultLimit.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}
