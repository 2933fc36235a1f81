//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"eventgate/internal/principal"
	pgstore "eventgate/internal/principal/store/postgres"
	"eventgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *pgstore.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.pg.Exec(s.T(),
		`CREATE TABLE sites (
			id        TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			salt      TEXT NOT NULL,
			status    TEXT NOT NULL
		)`,
		`CREATE TABLE api_keys (
			fingerprint TEXT PRIMARY KEY,
			site_id     TEXT NOT NULL REFERENCES sites (id)
		)`,
	)
	s.store = pgstore.NewPostgresStore(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.pg.Exec(s.T(), `TRUNCATE api_keys, sites`)
	s.pg.Exec(s.T(),
		`INSERT INTO sites (id, tenant_id, salt, status) VALUES
			('site-1', 'tenant-1', 'salt-1', 'active'),
			('site-2', 'tenant-1', 'salt-2', 'suspended')`,
	)
	s.insertKey("key-active", "site-1")
	s.insertKey("key-suspended", "site-2")
}

func (s *PostgresStoreSuite) insertKey(key, siteID string) {
	_, err := s.pg.DB.ExecContext(context.Background(),
		`INSERT INTO api_keys (fingerprint, site_id) VALUES ($1, $2)`,
		principal.Fingerprint(key), siteID)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestResolveAPIKey() {
	site, err := s.store.ResolveAPIKey(context.Background(), "key-active")
	s.Require().NoError(err)
	s.Equal("site-1", site.ID)
	s.Equal("salt-1", site.Salt)
	s.True(site.Active())
}

func (s *PostgresStoreSuite) TestResolveAPIKey_Unknown() {
	_, err := s.store.ResolveAPIKey(context.Background(), "key-never-issued")
	s.Require().ErrorIs(err, principal.ErrKeyUnknown)
}

func (s *PostgresStoreSuite) TestResolveAPIKey_SuspendedSite() {
	_, err := s.store.ResolveAPIKey(context.Background(), "key-suspended")
	s.Require().ErrorIs(err, principal.ErrSiteInactive)
}

func (s *PostgresStoreSuite) TestGetSite() {
	site, err := s.store.GetSite(context.Background(), "site-2")
	s.Require().NoError(err)
	s.Equal(principal.StatusSuspended, site.Status)
}

func (s *PostgresStoreSuite) TestGetSite_Unknown() {
	_, err := s.store.GetSite(context.Background(), "site-404")
	s.Require().ErrorIs(err, principal.ErrSiteUnknown)
}

func (s *PostgresStoreSuite) TestPlaintextKeyNeverStored() {
	var count int
	err := s.pg.DB.QueryRowContext(context.Background(),
		`SELECT count(*) FROM api_keys WHERE fingerprint = $1`, "key-active").Scan(&count)
	s.Require().NoError(err)
	s.Zero(count, "only fingerprints may be persisted")
}
