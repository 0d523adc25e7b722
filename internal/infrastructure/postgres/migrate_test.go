package postgres

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://app:secret@db:5432/wms?sslmode=disable", migrateURL("postgres://app:secret@db:5432/wms?sslmode=disable"))
	assert.Equal(t, "pgx5://db/wms", migrateURL("postgresql://db/wms"))
	assert.Equal(t, "pgx5://db/wms", migrateURL("pgx5://db/wms"))
}

func TestMigrations_ParesUpDown(t *testing.T) {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	ups, downs := 0, 0
	for _, f := range files {
		switch {
		case strings.HasSuffix(f, ".up.sql"):
			ups++
		case strings.HasSuffix(f, ".down.sql"):
			downs++
		}
	}
	assert.Equal(t, ups, downs)
}

func TestMigrations_IndiceUnicoDeVentas(t *testing.T) {
	b, err := migrationsFS.ReadFile("migrations/000003_ledger.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(b), saleDecrementIndex)
}

func TestMigrations_UnaAdvertenciaAbiertaPorSKU(t *testing.T) {
	b, err := migrationsFS.ReadFile("migrations/000005_sync_warnings_open_unique.up.sql")
	require.NoError(t, err)
	sql := string(b)
	assert.Contains(t, sql, openWarningIndex)
	assert.Contains(t, sql, "WHERE resolved_at IS NULL")
	assert.Contains(t, sql, "last_attempt_at")
}
