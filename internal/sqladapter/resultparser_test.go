package sqladapter

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"dbal/internal/schema"
)

func TestScanRowConvertsByType(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE "t" ("id" TEXT, "active" INTEGER, "count" INTEGER, "extra" TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO "t" VALUES ('x', 1, 42, 'ignored-by-schema')`)
	require.NoError(t, err)

	s := &schema.Schema{Fields: []schema.Field{
		{Name: "id", Type: schema.TypeUUID},
		{Name: "active", Type: schema.TypeBoolean},
		{Name: "count", Type: schema.TypeNumber},
	}}

	rows, err := db.Query(`SELECT "id", "active", "count", "extra" FROM "t"`)
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())

	rec, err := scanRow(rows, s)
	require.NoError(t, err)
	assert.Equal(t, "x", rec["id"])
	assert.Equal(t, true, rec["active"])
	assert.Equal(t, int64(42), rec["count"])
	_, hasExtra := rec["extra"]
	assert.False(t, hasExtra)
}
