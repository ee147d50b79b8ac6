package sqladapter

import (
	"strings"

	"dbal/internal/schema"
)

// selectColumnList renders every field of s, in schema order, as a quoted,
// comma-joined column list (spec §4.2: "Fields selected are the schema's
// field list in schema order").
func selectColumnList(s *schema.Schema) string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = quoteIdent(f.Name)
	}
	return strings.Join(names, ", ")
}

// BuildSelectByID composes a single-row SELECT for read(name, id).
func BuildSelectByID(d Dialect, s *schema.Schema, idField string) string {
	return "SELECT " + selectColumnList(s) + " FROM " + quoteIdent(s.Name) +
		" WHERE " + quoteIdent(idField) + " = " + d.placeholder(1)
}

// BuildInsert composes an INSERT for create(name, data) over the given
// ordered field names (already filtered by the caller per the
// generated-field rule). Returns the SQL text; bound values are supplied by
// the caller in the same order as fields.
func BuildInsert(d Dialect, s *schema.Schema, fields []string) string {
	cols := make([]string, len(fields))
	placeholders := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = quoteIdent(f)
		placeholders[i] = d.placeholder(i + 1)
	}
	sql := "INSERT INTO " + quoteIdent(s.Name) +
		" (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
	if d.supportsReturning() {
		sql += " RETURNING " + selectColumnList(s)
	}
	return sql
}

// BuildUpdate composes an UPDATE ... SET ... WHERE id = ? for
// update(name, id, data) over the given ordered SET field names (already
// excluding id/createdAt per spec §4.2).
func BuildUpdate(d Dialect, s *schema.Schema, setFields []string, idField string) string {
	sets := make([]string, len(setFields))
	for i, f := range setFields {
		sets[i] = quoteIdent(f) + " = " + d.placeholder(i + 1)
	}
	sql := "UPDATE " + quoteIdent(s.Name) + " SET " + strings.Join(sets, ", ") +
		" WHERE " + quoteIdent(idField) + " = " + d.placeholder(len(setFields)+1)
	if d.supportsReturning() {
		sql += " RETURNING " + selectColumnList(s)
	}
	return sql
}

// BuildDelete composes a DELETE for remove(name, id).
func BuildDelete(d Dialect, s *schema.Schema, idField string) string {
	return "DELETE FROM " + quoteIdent(s.Name) + " WHERE " + quoteIdent(idField) + " = " + d.placeholder(1)
}

// ListQuery is the composed SQL plus the filter-field order the caller must
// use to bind values (spec §4.2: "iterating opts.filter entries in
// insertion order"). TailArgs holds any bound values the builder itself
// appended after the filter values, in SQL order (e.g. BuildList's
// LIMIT/OFFSET placeholders); it is nil when a builder has none.
type ListQuery struct {
	SQL          string
	FilterFields []string
	TailArgs     []any
}

// BuildList composes the WHERE/ORDER BY/LIMIT/OFFSET SELECT for
// list(name, opts). filterFields is the caller's stable-ordered filter key
// list; orderBy is the already-resolved default-order column name;
// orderDesc requests DESC.
func BuildList(d Dialect, s *schema.Schema, filterFields []string, orderBy string, orderDesc bool, limit, offset int) ListQuery {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(selectColumnList(s))
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(s.Name))
	if len(filterFields) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(whereClause(d, filterFields, 1))
	}
	if orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(quoteIdent(orderBy))
		if orderDesc {
			b.WriteString(" DESC")
		}
	}
	b.WriteString(" LIMIT ")
	b.WriteString(d.placeholder(len(filterFields) + 1))
	b.WriteString(" OFFSET ")
	b.WriteString(d.placeholder(len(filterFields) + 2))
	return ListQuery{SQL: b.String(), FilterFields: filterFields, TailArgs: []any{limit, offset}}
}

// BuildFindFirst composes a SELECT ... WHERE ... LIMIT 1 for
// find_first(name, filter).
func BuildFindFirst(d Dialect, s *schema.Schema, filterFields []string) ListQuery {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(selectColumnList(s))
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(s.Name))
	if len(filterFields) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(whereClause(d, filterFields, 1))
	}
	b.WriteString(" LIMIT 1")
	return ListQuery{SQL: b.String(), FilterFields: filterFields}
}

// BuildUpdateMany composes UPDATE ... SET ... WHERE ... for
// update_many(name, filter, data). SET-clause parameters precede
// filter-clause parameters (spec §4.2 C5).
func BuildUpdateMany(d Dialect, s *schema.Schema, setFields, filterFields []string) ListQuery {
	sets := make([]string, len(setFields))
	for i, f := range setFields {
		sets[i] = quoteIdent(f) + " = " + d.placeholder(i + 1)
	}
	sql := "UPDATE " + quoteIdent(s.Name) + " SET " + strings.Join(sets, ", ")
	if len(filterFields) > 0 {
		sql += " WHERE " + whereClause(d, filterFields, len(setFields)+1)
	}
	return ListQuery{SQL: sql, FilterFields: filterFields}
}

// BuildDeleteMany composes DELETE ... WHERE ... for delete_many(name, filter).
func BuildDeleteMany(d Dialect, s *schema.Schema, filterFields []string) ListQuery {
	sql := "DELETE FROM " + quoteIdent(s.Name)
	if len(filterFields) > 0 {
		sql += " WHERE " + whereClause(d, filterFields, 1)
	}
	return ListQuery{SQL: sql, FilterFields: filterFields}
}

// whereClause AND-joins "<field>" = <placeholder> for each field in
// filterFields, starting placeholder numbering at startIndex.
func whereClause(d Dialect, filterFields []string, startIndex int) string {
	parts := make([]string, len(filterFields))
	for i, f := range filterFields {
		parts[i] = quoteIdent(f) + " = " + d.placeholder(startIndex+i)
	}
	return strings.Join(parts, " AND ")
}
