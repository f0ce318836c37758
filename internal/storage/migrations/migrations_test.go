package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	stmts, err := splitStatements(`
-- comment; with semicolon
CREATE TABLE a (x String);
INSERT INTO a VALUES ('x;y'), ('it''s');
SELECT 1
`)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Equal(t, "CREATE TABLE a (x String)", stmts[0])
	assert.Equal(t, "INSERT INTO a VALUES ('x;y'), ('it''s')", stmts[1])
	assert.Equal(t, "SELECT 1", stmts[2])
}

func TestSplitStatements_Unterminated(t *testing.T) {
	_, err := splitStatements("SELECT 'oops;")
	assert.Error(t, err)
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/journal")
	require.NoError(t, err)
	assert.Equal(t, "journal", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	for _, dir := range []struct {
		name string
		load func() ([]migration, error)
	}{
		{"postgres", func() ([]migration, error) { return load(PostgresFS, "postgres") }},
		{"clickhouse", func() ([]migration, error) { return load(ClickhouseFS, "clickhouse") }},
	} {
		migs, err := dir.load()
		require.NoError(t, err, dir.name)
		require.NotEmpty(t, migs, dir.name)
		assert.True(t, strings.Contains(migs[0].sql, "issuances"), dir.name)
	}

	stmts, err := splitStatements(mustRead(t, "clickhouse/001_issuances.sql"))
	require.NoError(t, err)
	assert.Len(t, stmts, 1)
}

func mustRead(t *testing.T, name string) string {
	t.Helper()
	data, err := ClickhouseFS.ReadFile(name)
	require.NoError(t, err)
	return string(data)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "`journal`", quoteIdent("journal"))
	assert.Equal(t, "`a``b`", quoteIdent("a`b"))
}
