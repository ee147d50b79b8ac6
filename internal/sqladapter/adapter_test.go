package sqladapter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbal/internal/schema"
	"dbal/internal/sqladapter"
	sqladaptersqlite "dbal/internal/sqladapter/sqlite"
)

func testSchema() *schema.Schema {
	return &schema.Schema{
		Name: "document",
		Fields: []schema.Field{
			{Name: "id", Type: schema.TypeUUID, Primary: true, Generated: true},
			{Name: "title", Type: schema.TypeString, Required: true},
			{Name: "status", Type: schema.TypeString},
			{Name: "createdAt", Type: schema.TypeTimestamp, Generated: true},
		},
	}
}

func newTestAdapter(t *testing.T) *sqladapter.Adapter {
	t.Helper()
	mgr, err := sqladaptersqlite.Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	_, err = mgr.DB().Exec(`CREATE TABLE "document" (
		"id" TEXT PRIMARY KEY,
		"title" TEXT NOT NULL,
		"status" TEXT,
		"createdAt" TEXT
	)`)
	require.NoError(t, err)

	return sqladapter.New(mgr, testSchema(), nil, nil, nil)
}

func TestCreateAndRead(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	rec, err := a.Create(ctx, map[string]any{"title": "hello", "status": "draft"})
	require.NoError(t, err)
	require.NotEmpty(t, rec["id"])
	assert.Equal(t, "hello", rec["title"])
	assert.NotEmpty(t, rec["createdAt"])

	got, err := a.Read(ctx, rec["id"])
	require.NoError(t, err)
	assert.Equal(t, rec["title"], got["title"])
}

func TestReadNotFound(t *testing.T) {
	a := newTestAdapter(t)
	_, err := a.Read(context.Background(), "nonexistent")
	require.Error(t, err)
}

func TestUpdateAndRemove(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	rec, err := a.Create(ctx, map[string]any{"title": "first", "status": "draft"})
	require.NoError(t, err)

	updated, err := a.Update(ctx, rec["id"], map[string]any{"status": "published"})
	require.NoError(t, err)
	assert.Equal(t, "published", updated["status"])

	ok, err := a.Remove(ctx, rec["id"])
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = a.Read(ctx, rec["id"])
	require.Error(t, err)
}

func TestUpdateWithEmptySetIsValidationError(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	rec, err := a.Create(ctx, map[string]any{"title": "x"})
	require.NoError(t, err)

	_, err = a.Update(ctx, rec["id"], map[string]any{})
	require.Error(t, err)
}

func TestListDefaultOrderAndPagination(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := a.Create(ctx, map[string]any{"title": "doc", "status": "draft"})
		require.NoError(t, err)
	}

	result, err := a.List(ctx, sqladapter.ListOptions{Limit: 2, Page: 1})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 2, result.Total)
}

func TestFindByFieldAndUpsert(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	_, err := a.FindByField(ctx, "title", "missing")
	require.Error(t, err)

	created, err := a.Upsert(ctx, "title", "unique-title",
		map[string]any{"title": "unique-title", "status": "draft"},
		map[string]any{"status": "published"})
	require.NoError(t, err)
	assert.Equal(t, "draft", created["status"])

	updated, err := a.Upsert(ctx, "title", "unique-title",
		map[string]any{"title": "unique-title", "status": "draft"},
		map[string]any{"status": "published"})
	require.NoError(t, err)
	assert.Equal(t, "published", updated["status"])
}

func TestCreateManyPartialSuccess(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	// The middle record has no title and fails the NOT NULL constraint; its
	// failure is suppressed and the other two are kept.
	n, err := a.CreateMany(ctx, []map[string]any{
		{"title": "a"},
		{"status": "draft"},
		{"title": "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	result, err := a.List(ctx, sqladapter.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
}

func TestUpdateManyAndDeleteMany(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := a.Create(ctx, map[string]any{"title": "doc", "status": "draft"})
		require.NoError(t, err)
	}

	affected, err := a.UpdateMany(ctx, []sqladapter.FilterEntry{{Field: "status", Value: "draft"}}, map[string]any{"status": "archived"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, affected)

	deleted, err := a.DeleteMany(ctx, []sqladapter.FilterEntry{{Field: "status", Value: "archived"}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)
}

func TestDeleteManyWithoutFilterIsRejected(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	_, err := a.Create(ctx, map[string]any{"title": "doc"})
	require.NoError(t, err)

	_, err = a.DeleteMany(ctx, nil)
	require.Error(t, err)
}

func readOnlySchema() *schema.Schema {
	s := testSchema()
	s.Fields = append(s.Fields, schema.Field{Name: "externalRef", Type: schema.TypeString, ReadOnly: true})
	return s
}

func newReadOnlyTestAdapter(t *testing.T) *sqladapter.Adapter {
	t.Helper()
	mgr, err := sqladaptersqlite.Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	_, err = mgr.DB().Exec(`CREATE TABLE "document" (
		"id" TEXT PRIMARY KEY,
		"title" TEXT NOT NULL,
		"status" TEXT,
		"createdAt" TEXT,
		"externalRef" TEXT
	)`)
	require.NoError(t, err)

	return sqladapter.New(mgr, readOnlySchema(), nil, nil, nil)
}

func TestCreateRejectsReadOnlyField(t *testing.T) {
	a := newReadOnlyTestAdapter(t)
	_, err := a.Create(context.Background(), map[string]any{"title": "doc", "externalRef": "forbidden"})
	require.Error(t, err)
}

func TestUpdateRejectsReadOnlyField(t *testing.T) {
	a := newReadOnlyTestAdapter(t)
	ctx := context.Background()
	rec, err := a.Create(ctx, map[string]any{"title": "doc"})
	require.NoError(t, err)

	_, err = a.Update(ctx, rec["id"], map[string]any{"externalRef": "forbidden"})
	require.Error(t, err)
}

func TestTransactionDoubleBeginIsInternalError(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	require.NoError(t, a.Begin(ctx))
	defer a.Rollback()

	err := a.Begin(ctx)
	require.Error(t, err)
}

func TestCommitWithoutBeginIsInternalError(t *testing.T) {
	a := newTestAdapter(t)
	require.Error(t, a.Commit())
}
