package catalog

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@db:5432/shop?sslmode=disable", migrateURL("postgres://u:p@db:5432/shop?sslmode=disable"))
	require.Equal(t, "pgx5://db/shop", migrateURL("postgresql://db/shop"))
	require.Equal(t, "pgx5://db/shop", migrateURL("pgx5://db/shop"))
}

func TestMigrationsEmbedded(t *testing.T) {
	up, err := fs.Glob(migrationFiles, "migrations/*.up.sql")
	require.NoError(t, err)
	down, err := fs.Glob(migrationFiles, "migrations/*.down.sql")
	require.NoError(t, err)
	require.NotEmpty(t, up)
	require.Len(t, down, len(up))
}
