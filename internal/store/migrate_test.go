package store

import (
	"testing"

	"github.com/dropDatabas3/consolegate/migrations/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMigrations_EmbeddedPostgres(t *testing.T) {
	m := NewMigrator(migrations.FS, migrations.Dir)
	migs, err := m.ParseMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migs)

	for i := 1; i < len(migs); i++ {
		assert.Less(t, migs[i-1].Version, migs[i].Version)
	}
	assert.Equal(t, 1, migs[0].Version)
	assert.Contains(t, migs[0].SQL, "console_auth_code")
}
