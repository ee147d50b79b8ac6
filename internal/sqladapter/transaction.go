package sqladapter

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"dbal/internal/dbalerr"
)

// Transaction wraps a *sql.Tx with the begin/commit/rollback/savepoint
// contract of spec §4.2 component C8. inTransaction is an atomic flag so a
// concurrent commit/rollback attempt observes a consistent state rather
// than racing on a plain bool.
type Transaction struct {
	tx            *sql.Tx
	inTransaction atomic.Bool
	savepointSeq  int
}

// BeginTransaction issues BEGIN TRANSACTION and sets the in_transaction flag.
func BeginTransaction(ctx context.Context, db *sql.DB) (*Transaction, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dbalerr.DatabaseError("begin transaction: %v", err)
	}
	t := &Transaction{tx: tx}
	t.inTransaction.Store(true)
	return t, nil
}

// Commit requires the in_transaction flag to be set; a commit without an
// active transaction is an Internal error (spec §4.2: "double-begin ->
// Internal; commit/rollback without tx -> Internal").
func (t *Transaction) Commit() error {
	if !t.inTransaction.CompareAndSwap(true, false) {
		return dbalerr.Internal("commit called without an active transaction")
	}
	if err := t.tx.Commit(); err != nil {
		return dbalerr.DatabaseError("commit transaction: %v", err)
	}
	return nil
}

// Rollback mirrors Commit for the rollback path.
func (t *Transaction) Rollback() error {
	if !t.inTransaction.CompareAndSwap(true, false) {
		return dbalerr.Internal("rollback called without an active transaction")
	}
	if err := t.tx.Rollback(); err != nil {
		return dbalerr.DatabaseError("rollback transaction: %v", err)
	}
	return nil
}

// Active reports whether this transaction is still open.
func (t *Transaction) Active() bool { return t.inTransaction.Load() }

// Tx exposes the underlying *sql.Tx for statement execution.
func (t *Transaction) Tx() *sql.Tx { return t.tx }

// Savepoint issues SAVEPOINT <name> and returns a generated name if name is
// empty.
func (t *Transaction) Savepoint(ctx context.Context, name string) (string, error) {
	if name == "" {
		t.savepointSeq++
		name = fmt.Sprintf("sp_%d", t.savepointSeq)
	}
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+quoteIdent(name)); err != nil {
		return "", dbalerr.DatabaseError("savepoint %q: %v", name, err)
	}
	return name, nil
}

// ReleaseSavepoint issues RELEASE SAVEPOINT <name>.
func (t *Transaction) ReleaseSavepoint(ctx context.Context, name string) error {
	if _, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+quoteIdent(name)); err != nil {
		return dbalerr.DatabaseError("release savepoint %q: %v", name, err)
	}
	return nil
}

// RollbackToSavepoint issues ROLLBACK TO SAVEPOINT <name>.
func (t *Transaction) RollbackToSavepoint(ctx context.Context, name string) error {
	if _, err := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+quoteIdent(name)); err != nil {
		return dbalerr.DatabaseError("rollback to savepoint %q: %v", name, err)
	}
	return nil
}

// ScopeGuard wraps Begin at construction and, unless explicitly committed,
// rolls back at scope end with a warning logged (spec §4.2 C8).
type ScopeGuard struct {
	txn       *Transaction
	committed bool
	logger    *zerolog.Logger
}

// NewScopeGuard begins a transaction and returns a guard over it.
func NewScopeGuard(ctx context.Context, db *sql.DB, logger *zerolog.Logger) (*ScopeGuard, error) {
	txn, err := BeginTransaction(ctx, db)
	if err != nil {
		return nil, err
	}
	return &ScopeGuard{txn: txn, logger: logger}, nil
}

// Tx returns the guarded transaction.
func (g *ScopeGuard) Tx() *Transaction { return g.txn }

// Commit commits the guarded transaction and marks the guard satisfied.
func (g *ScopeGuard) Commit() error {
	if err := g.txn.Commit(); err != nil {
		return err
	}
	g.committed = true
	return nil
}

// Close rolls back the guarded transaction if it was never committed. It is
// intended to be deferred immediately after NewScopeGuard.
func (g *ScopeGuard) Close() {
	if g.committed || !g.txn.Active() {
		return
	}
	if err := g.txn.Rollback(); err != nil && g.logger != nil {
		g.logger.Warn().Err(err).Msg("scope guard rollback failed")
		return
	}
	if g.logger != nil {
		g.logger.Warn().Msg("scope guard rolled back an uncommitted transaction")
	}
}
