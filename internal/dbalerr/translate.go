package dbalerr

import (
	"strconv"
	"strings"
)

// FromSQLite translates a driver error surfaced by modernc.org/sqlite into
// the taxonomy, per spec §4.2's "Error translation (C6 internal)" table.
// modernc.org/sqlite reports failures as *sqlite.Error whose Error() text
// embeds the primary result code name (e.g. "constraint failed" or
// "SQLITE_BUSY"); detection here is done on that text rather than importing
// the driver's internal code table, keeping this package driver-agnostic.
func FromSQLite(err error) *Error {
	if err == nil {
		return nil
	}
	msg := strings.ToUpper(err.Error())
	switch {
	case strings.Contains(msg, "CONSTRAINT"):
		return Wrap(KindConflict, err, "constraint violation")
	case strings.Contains(msg, "NOTFOUND") || strings.Contains(msg, "NOT FOUND"):
		return Wrap(KindNotFound, err, "not found")
	case strings.Contains(msg, "BUSY") || strings.Contains(msg, "LOCKED"):
		return Wrap(KindDatabaseError, err, "database is locked")
	case strings.Contains(msg, "READONLY") || strings.Contains(msg, "READ-ONLY"):
		return Wrap(KindForbidden, err, "database is read-only")
	case strings.Contains(msg, "CANTOPEN") || strings.Contains(msg, "CAN'T OPEN"):
		return Wrap(KindDatabaseError, err, "cannot open database file")
	case strings.Contains(msg, "NOMEM") || strings.Contains(msg, "OUT OF MEMORY"):
		return Wrap(KindInternalError, err, "out of memory")
	case strings.Contains(msg, "CORRUPT") || strings.Contains(msg, "NOTADB") || strings.Contains(msg, "NOT A DATABASE"):
		return Wrap(KindDatabaseError, err, "database file is corrupt")
	default:
		return Wrap(KindDatabaseError, err, "sqlite error")
	}
}

// FromMySQL translates a *mysql.MySQLError (github.com/go-sql-driver/mysql)
// by its numeric error code, matching the unique/FK-violation family used by
// that driver. Detection is done on the "Error %d" prefix the driver always
// produces so this package does not need to import the driver type.
func FromMySQL(err error) *Error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	code := extractMySQLErrorCode(msg)
	switch {
	case code == 1062 || code == 1451 || code == 1452: // duplicate entry / FK violation
		return Wrap(KindConflict, err, "constraint violation")
	case code == 1146: // no such table
		return Wrap(KindNotFound, err, "no such table")
	case code == 1205 || code == 1213: // lock wait timeout / deadlock
		return Wrap(KindDatabaseError, err, "database is locked")
	case code == 1044 || code == 1045: // access denied
		return Wrap(KindForbidden, err, "access denied")
	default:
		return Wrap(KindDatabaseError, err, "mysql error")
	}
}

func extractMySQLErrorCode(msg string) int {
	const prefix = "Error "
	idx := strings.Index(msg, prefix)
	if idx == -1 {
		return 0
	}
	rest := msg[idx+len(prefix):]
	end := strings.IndexAny(rest, ": ")
	if end == -1 {
		end = len(rest)
	}
	code, _ := strconv.Atoi(rest[:end])
	return code
}

// FromPostgresSQLState translates a Postgres SQLSTATE 5-character code per
// spec §4.2's "Postgres SQLSTATE class translations" table.
func FromPostgresSQLState(sqlState string, err error) *Error {
	if len(sqlState) < 2 {
		return Wrap(KindDatabaseError, err, "postgres error")
	}
	class := sqlState[:2]
	switch class {
	case "23":
		return Wrap(KindConflict, err, "constraint violation")
	case "42":
		if sqlState == "42501" {
			return Wrap(KindForbidden, err, "insufficient privilege")
		}
		return Wrap(KindValidationError, err, "syntax or access rule violation")
	case "08":
		return Wrap(KindDatabaseError, err, "connection exception")
	case "57":
		return Wrap(KindTimeout, err, "operator intervention")
	default:
		return Wrap(KindDatabaseError, err, "postgres error")
	}
}

// FromHTTPStatus translates an S3-compatible HTTP response status into the
// taxonomy per spec §4.3's "HTTP-status → error mapping".
func FromHTTPStatus(status int, body string) *Error {
	switch status {
	case 404:
		return New(KindNotFound, "%s", body)
	case 403:
		return New(KindForbidden, "%s", body)
	case 401:
		return New(KindUnauthorized, "%s", body)
	case 409:
		return New(KindConflict, "%s", body)
	case 412, 400:
		return New(KindValidationError, "%s", body)
	default:
		return New(KindInternalError, "unexpected status %d: %s", status, body)
	}
}
