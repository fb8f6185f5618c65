package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_FeedbackColumnsAreUnbounded(t *testing.T) {
	data, err := migrations.ReadFile("migrations/001_create_feedback.sql")
	require.NoError(t, err)

	schema := strings.ToUpper(string(data))
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS FEEDBACK")
	assert.NotContains(t, schema, "CHECK")
	assert.Contains(t, schema, "USER_NAME  TEXT NOT NULL")
	assert.Contains(t, schema, "RATING     INTEGER NOT NULL,")
}
