package sqladapter

import "dbal/internal/dbalerr"

// translateErr maps a raw driver error to the typed taxonomy per spec §4.2
// ("Error translation (C6 internal)"), dispatching on this adapter's
// dialect.
func (a *Adapter) translateErr(err error) error {
	if err == nil {
		return nil
	}
	switch a.dialect {
	case DialectSQLite:
		return dbalerr.FromSQLite(err)
	case DialectMySQL:
		return dbalerr.FromMySQL(err)
	default:
		return dbalerr.DatabaseError("%v", err)
	}
}
