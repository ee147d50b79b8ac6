package sqladapter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dbal/internal/schema"
)

func sampleSchema() *schema.Schema {
	return &schema.Schema{
		Name: "document",
		Fields: []schema.Field{
			{Name: "id", Type: schema.TypeUUID, Primary: true},
			{Name: "title", Type: schema.TypeString},
			{Name: "status", Type: schema.TypeString},
		},
	}
}

func TestBuildInsertSQLite(t *testing.T) {
	sql := BuildInsert(DialectSQLite, sampleSchema(), []string{"id", "title"})
	assert.Equal(t, `INSERT INTO "document" ("id", "title") VALUES (?, ?)`, sql)
}

func TestBuildInsertPostgresAddsReturning(t *testing.T) {
	sql := BuildInsert(DialectPostgreSQL, sampleSchema(), []string{"id", "title"})
	assert.Contains(t, sql, "$1, $2")
	assert.Contains(t, sql, "RETURNING")
}

func TestBuildSelectByID(t *testing.T) {
	sql := BuildSelectByID(DialectSQLite, sampleSchema(), "id")
	assert.Equal(t, `SELECT "id", "title", "status" FROM "document" WHERE "id" = ?`, sql)
}

func TestBuildUpdate(t *testing.T) {
	sql := BuildUpdate(DialectSQLite, sampleSchema(), []string{"title", "status"}, "id")
	assert.Equal(t, `UPDATE "document" SET "title" = ?, "status" = ? WHERE "id" = ?`, sql)
}

func TestBuildListWithFilterAndOrder(t *testing.T) {
	q := BuildList(DialectSQLite, sampleSchema(), []string{"status"}, "id", false, 50, 0)
	assert.Equal(t, `SELECT "id", "title", "status" FROM "document" WHERE "status" = ? ORDER BY "id" LIMIT ? OFFSET ?`, q.SQL)
	assert.Equal(t, []any{50, 0}, q.TailArgs)
}

func TestBuildListLimitOffsetAreBoundNotLiteral(t *testing.T) {
	q := BuildList(DialectPostgreSQL, sampleSchema(), nil, "", false, 10, 20)
	assert.Contains(t, q.SQL, "LIMIT $1 OFFSET $2")
	assert.Equal(t, []any{10, 20}, q.TailArgs)
}

func TestBuildUpdateManySetPrecedesFilter(t *testing.T) {
	q := BuildUpdateMany(DialectSQLite, sampleSchema(), []string{"status"}, []string{"title"})
	assert.Equal(t, `UPDATE "document" SET "status" = ? WHERE "title" = ?`, q.SQL)
}

func TestBuildDeleteManyNoFilter(t *testing.T) {
	q := BuildDeleteMany(DialectSQLite, sampleSchema(), nil)
	assert.Equal(t, `DELETE FROM "document"`, q.SQL)
}
