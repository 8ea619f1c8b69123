package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiles(t *testing.T) {
	up, err := Files("up")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_create_schema.up.sql"}, up)

	down, err := Files("down")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_create_schema.down.sql"}, down)

	_, err = Files("sideways")
	assert.Error(t, err)
}

func TestRead(t *testing.T) {
	content, err := Read("001_create_schema.up.sql")
	require.NoError(t, err)
	assert.Contains(t, content, "CREATE TABLE IF NOT EXISTS yield_predictions")
	assert.Contains(t, content, "WHERE is_current")

	_, err = Read("999_missing.up.sql")
	assert.Error(t, err)
}
