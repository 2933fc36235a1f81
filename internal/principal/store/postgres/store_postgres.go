// Package postgres provides the PostgreSQL-backed principal store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eventgate/internal/principal"
)

// PostgresStore resolves API keys and site records from PostgreSQL.
// API keys are stored as SHA-256 fingerprints, never as plaintext.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ResolveAPIKey(ctx context.Context, key string) (*principal.Site, error) {
	query := `
		SELECT s.id, s.tenant_id, s.salt, s.status
		FROM api_keys k
		JOIN sites s ON s.id = k.site_id
		WHERE k.fingerprint = $1
	`
	var site principal.Site
	err := s.db.QueryRowContext(ctx, query, principal.Fingerprint(key)).
		Scan(&site.ID, &site.TenantID, &site.Salt, &site.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, principal.ErrKeyUnknown
		}
		return nil, fmt.Errorf("resolve api key: %w", err)
	}
	if site.Status != principal.StatusActive {
		return nil, principal.ErrSiteInactive
	}
	return &site, nil
}

func (s *PostgresStore) GetSite(ctx context.Context, siteID string) (*principal.Site, error) {
	query := `SELECT id, tenant_id, salt, status FROM sites WHERE id = $1`

	var site principal.Site
	err := s.db.QueryRowContext(ctx, query, siteID).
		Scan(&site.ID, &site.TenantID, &site.Salt, &site.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, principal.ErrSiteUnknown
		}
		return nil, fmt.Errorf("get site: %w", err)
	}
	return &site, nil
}
