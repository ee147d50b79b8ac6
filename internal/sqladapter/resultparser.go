package sqladapter

import (
	"database/sql"

	"dbal/internal/schema"
)

// scanRow materializes one *sql.Rows row into a JSON-ready map, guided by
// the schema's column order and types (spec §4.2, component C7). Columns
// absent from the schema are skipped; the schema is the source of truth.
func scanRow(rows *sql.Rows, s *schema.Schema) (map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	out := make(map[string]any, len(cols))
	for i, col := range cols {
		f := s.FieldByName(col)
		if f == nil {
			continue
		}
		out[col] = convertColumn(f, raw[i])
	}
	return out, nil
}

// convertColumn applies the null/boolean/integer/string conversion rules of
// spec §4.2 C7 to one scanned column value.
func convertColumn(f *schema.Field, v any) any {
	if v == nil {
		return nil
	}
	switch f.Type {
	case schema.TypeBoolean:
		switch n := v.(type) {
		case int64:
			return n != 0
		case bool:
			return n
		default:
			return v
		}
	case schema.TypeNumber, schema.TypeBigInt, schema.TypeInteger:
		switch n := v.(type) {
		case int64:
			return n
		case []byte:
			return string(n)
		default:
			return v
		}
	default:
		switch s := v.(type) {
		case []byte:
			return string(s)
		case string:
			return s
		default:
			return v
		}
	}
}
