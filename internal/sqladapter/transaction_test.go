package sqladapter

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE "t" ("v" TEXT)`)
	require.NoError(t, err)
	return db
}

func TestTransactionCommitPersists(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	txn, err := BeginTransaction(ctx, db)
	require.NoError(t, err)
	_, err = txn.Tx().ExecContext(ctx, `INSERT INTO "t" ("v") VALUES ('a')`)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "t"`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestTransactionRollbackDiscards(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	txn, err := BeginTransaction(ctx, db)
	require.NoError(t, err)
	_, err = txn.Tx().ExecContext(ctx, `INSERT INTO "t" ("v") VALUES ('a')`)
	require.NoError(t, err)
	require.NoError(t, txn.Rollback())

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "t"`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestTransactionDoubleCommitIsError(t *testing.T) {
	db := openMemDB(t)
	txn, err := BeginTransaction(context.Background(), db)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())
	require.Error(t, txn.Commit())
}

func TestSavepointRollback(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	txn, err := BeginTransaction(ctx, db)
	require.NoError(t, err)
	defer txn.Rollback()

	_, err = txn.Tx().ExecContext(ctx, `INSERT INTO "t" ("v") VALUES ('keep')`)
	require.NoError(t, err)

	sp, err := txn.Savepoint(ctx, "")
	require.NoError(t, err)
	_, err = txn.Tx().ExecContext(ctx, `INSERT INTO "t" ("v") VALUES ('discard')`)
	require.NoError(t, err)
	require.NoError(t, txn.RollbackToSavepoint(ctx, sp))

	var count int
	require.NoError(t, txn.Tx().QueryRowContext(ctx, `SELECT COUNT(*) FROM "t"`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestScopeGuardRollsBackUnlessCommitted(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	func() {
		guard, err := NewScopeGuard(ctx, db, nil)
		require.NoError(t, err)
		defer guard.Close()
		_, err = guard.Tx().Tx().ExecContext(ctx, `INSERT INTO "t" ("v") VALUES ('a')`)
		require.NoError(t, err)
	}()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "t"`).Scan(&count))
	assert.Equal(t, 0, count)
}
