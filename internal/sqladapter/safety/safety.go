// Package safety repurposes the TiDB SQL parser — used by the teacher to
// flag breaking schema migrations — to flag WHERE-less bulk mutations
// before they reach the connection (spec §4.2: update_many/delete_many
// compose their WHERE clause from opts.filter, and an empty filter must not
// silently become a full-table mutation).
package safety

import (
	"fmt"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/mysql"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"dbal/internal/dbalerr"
)

// Analysis reports whether one parsed statement is an unguarded bulk
// mutation.
type Analysis struct {
	Destructive bool
	Reason      string
}

// AnalyzeStatement parses sqlText and classifies it. Statements other than
// UPDATE/DELETE are never flagged destructive.
func AnalyzeStatement(sqlText string) (*Analysis, error) {
	p := parser.New()
	p.SetSQLMode(mysql.ModeANSIQuotes)
	stmtNodes, _, err := p.ParseSQL(sqlText)
	if err != nil {
		return nil, dbalerr.Internal("safety analysis: parsing generated SQL: %v", err)
	}
	if len(stmtNodes) != 1 {
		return nil, dbalerr.Internal("safety analysis: expected exactly one statement, got %d", len(stmtNodes))
	}

	switch n := stmtNodes[0].(type) {
	case *ast.DeleteStmt:
		if n.Where == nil {
			return &Analysis{Destructive: true, Reason: "DELETE statement has no WHERE clause"}, nil
		}
	case *ast.UpdateStmt:
		if n.Where == nil {
			return &Analysis{Destructive: true, Reason: "UPDATE statement has no WHERE clause"}, nil
		}
	}
	return &Analysis{}, nil
}

// Guard returns a ValidationError if sqlText is an unguarded bulk mutation,
// and nil otherwise.
func Guard(sqlText string) error {
	a, err := AnalyzeStatement(sqlText)
	if err != nil {
		return err
	}
	if a.Destructive {
		return dbalerr.ValidationError(fmt.Sprintf("refusing unguarded bulk mutation: %s", a.Reason))
	}
	return nil
}
