package sqladapter

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dbal/internal/dbalerr"
	"dbal/internal/metrics"
	"dbal/internal/schema"
	"dbal/internal/sqladapter/safety"
	"dbal/internal/sqladapter/typeconv"
	"dbal/internal/tenant"
)

// querier is the subset of *sql.DB and *sql.Tx the adapter needs; it lets
// every operation run identically whether or not a transaction is open.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// FilterEntry is one equality filter term. A slice (rather than a map)
// preserves the caller's insertion order, which spec §4.2 requires the
// WHERE clause and its bound parameters to follow.
type FilterEntry struct {
	Field string
	Value any
}

// ListOptions parametrizes list(name, opts).
type ListOptions struct {
	Filter []FilterEntry
	Limit  int
	Page   int
}

// ListResult is the shape list(name, opts) returns.
type ListResult struct {
	Items []map[string]any
	Total int
	Page  int
	Limit int
}

// Adapter implements the SQL Adapter Core (spec §4.2, components C4-C8)
// for a single entity schema over a single connection manager.
type Adapter struct {
	opener  Opener
	dialect Dialect
	schema  *schema.Schema
	tenant  *tenant.Context
	metrics *metrics.Metrics
	logger  *zerolog.Logger

	mu         sync.Mutex
	currentTxn *Transaction
}

// New constructs an Adapter. tenantCtx may be nil to skip per-call
// authorization/quota enforcement (e.g. in unit tests).
func New(opener Opener, s *schema.Schema, tenantCtx *tenant.Context, m *metrics.Metrics, logger *zerolog.Logger) *Adapter {
	return &Adapter{opener: opener, dialect: opener.Dialect(), schema: s, tenant: tenantCtx, metrics: m, logger: logger}
}

func (a *Adapter) conn() querier {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.currentTxn != nil && a.currentTxn.Active() {
		return a.currentTxn.Tx()
	}
	return a.opener.DB()
}

func idFieldName(s *schema.Schema) string {
	if pf := s.PrimaryField(); pf != nil {
		return pf.Name
	}
	return "id"
}

func (a *Adapter) observe(op string, start time.Time, err error) {
	kind := ""
	if err != nil {
		kind = string(dbalerr.KindOf(err))
	}
	a.metrics.ObserveSQL(a.schema.Name, op, start, kind)
}

func (a *Adapter) authorize(action string) error {
	if a.tenant == nil {
		return nil
	}
	return a.tenant.Authorize(action, a.schema.Name)
}

// rejectReadOnlyFields enforces the readOnly field supplement to spec §4.1:
// a field marked readOnly is returned on read but rejected if the caller
// supplies it in a create/update payload.
func rejectReadOnlyFields(s *schema.Schema, data map[string]any) error {
	for _, f := range s.Fields {
		if !f.ReadOnly {
			continue
		}
		if _, present := data[f.Name]; present {
			return dbalerr.ValidationError("%s: field %q is read-only", s.Name, f.Name)
		}
	}
	return nil
}

// fillGeneratedDefaults populates absent generated fields per spec §3.2:
// "any absent generated field is filled by the backend (id, timestamps)".
// Fields the caller supplied explicitly are left untouched.
func fillGeneratedDefaults(s *schema.Schema, data map[string]any) {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, f := range s.Fields {
		if !f.Generated {
			continue
		}
		if _, present := data[f.Name]; present {
			continue
		}
		if v, ok := typeconv.GenerateValue(&f); ok {
			data[f.Name] = v
			continue
		}
		if f.Type == schema.TypeTimestamp || f.Type == schema.TypeDatetime {
			data[f.Name] = now
		}
	}
}

// Create implements create(name, data).
func (a *Adapter) Create(ctx context.Context, data map[string]any) (map[string]any, error) {
	start := time.Now()
	if err := a.authorize("write"); err != nil {
		return nil, err
	}
	if a.tenant != nil {
		if err := a.tenant.AdmitRecordCreate(); err != nil {
			a.observe("create", start, err)
			return nil, err
		}
	}
	if err := rejectReadOnlyFields(a.schema, data); err != nil {
		a.observe("create", start, err)
		return nil, err
	}

	work := make(map[string]any, len(data))
	for k, v := range data {
		work[k] = v
	}
	fillGeneratedDefaults(a.schema, work)

	var fieldNames []string
	var params []any
	for _, f := range a.schema.Fields {
		v, present := work[f.Name]
		if f.Generated && !present {
			continue
		}
		if !present {
			continue
		}
		param, err := typeconv.ToParam(&f, v)
		if err != nil {
			a.observe("create", start, err)
			return nil, err
		}
		fieldNames = append(fieldNames, f.Name)
		params = append(params, param)
	}

	sqlText := BuildInsert(a.dialect, a.schema, fieldNames)
	idField := idFieldName(a.schema)

	if a.dialect.supportsReturning() {
		rows, err := a.conn().QueryContext(ctx, sqlText, params...)
		if err != nil {
			translated := a.translateErr(err)
			a.observe("create", start, translated)
			return nil, translated
		}
		defer rows.Close()
		if !rows.Next() {
			err := dbalerr.Internal("insert with RETURNING produced no row")
			a.observe("create", start, err)
			return nil, err
		}
		rec, err := scanRow(rows, a.schema)
		a.observe("create", start, err)
		return rec, err
	}

	if _, present := work[idField]; present {
		if _, err := a.conn().ExecContext(ctx, sqlText, params...); err != nil {
			translated := a.translateErr(err)
			a.observe("create", start, translated)
			return nil, translated
		}
		rec, err := a.Read(ctx, work[idField])
		a.observe("create", start, err)
		return rec, err
	}

	result, err := a.conn().ExecContext(ctx, sqlText, params...)
	if err != nil {
		translated := a.translateErr(err)
		a.observe("create", start, translated)
		return nil, translated
	}
	newID, err := result.LastInsertId()
	if err != nil {
		err = dbalerr.Internal("reading last insert id: %v", err)
		a.observe("create", start, err)
		return nil, err
	}
	rec, err := a.Read(ctx, newID)
	a.observe("create", start, err)
	return rec, err
}

// Read implements read(name, id).
func (a *Adapter) Read(ctx context.Context, id any) (map[string]any, error) {
	start := time.Now()
	if err := a.authorize("read"); err != nil {
		return nil, err
	}

	idField := idFieldName(a.schema)
	pf := a.schema.FieldByName(idField)
	param, err := paramFor(pf, id)
	if err != nil {
		a.observe("read", start, err)
		return nil, err
	}

	sqlText := BuildSelectByID(a.dialect, a.schema, idField)
	rows, err := a.conn().QueryContext(ctx, sqlText, param)
	if err != nil {
		translated := a.translateErr(err)
		a.observe("read", start, translated)
		return nil, translated
	}
	defer rows.Close()
	if !rows.Next() {
		err := dbalerr.NotFound("%s %v not found", a.schema.Name, id)
		a.observe("read", start, err)
		return nil, err
	}
	rec, err := scanRow(rows, a.schema)
	a.observe("read", start, err)
	return rec, err
}

// Update implements update(name, id, data).
func (a *Adapter) Update(ctx context.Context, id any, data map[string]any) (map[string]any, error) {
	start := time.Now()
	if err := a.authorize("write"); err != nil {
		return nil, err
	}
	if err := rejectReadOnlyFields(a.schema, data); err != nil {
		a.observe("update", start, err)
		return nil, err
	}

	idField := idFieldName(a.schema)
	var setFields []string
	var params []any
	for _, f := range a.schema.Fields {
		if f.Name == idField || f.Name == "createdAt" {
			continue
		}
		v, present := data[f.Name]
		if !present {
			continue
		}
		param, err := typeconv.ToParam(&f, v)
		if err != nil {
			a.observe("update", start, err)
			return nil, err
		}
		setFields = append(setFields, f.Name)
		params = append(params, param)
	}
	if len(setFields) == 0 {
		err := dbalerr.ValidationError("update(%s): no updatable fields in data", a.schema.Name)
		a.observe("update", start, err)
		return nil, err
	}

	pf := a.schema.FieldByName(idField)
	idParam, err := paramFor(pf, id)
	if err != nil {
		a.observe("update", start, err)
		return nil, err
	}
	params = append(params, idParam)

	sqlText := BuildUpdate(a.dialect, a.schema, setFields, idField)

	if a.dialect.supportsReturning() {
		rows, err := a.conn().QueryContext(ctx, sqlText, params...)
		if err != nil {
			translated := a.translateErr(err)
			a.observe("update", start, translated)
			return nil, translated
		}
		defer rows.Close()
		if !rows.Next() {
			err := dbalerr.NotFound("%s %v not found", a.schema.Name, id)
			a.observe("update", start, err)
			return nil, err
		}
		rec, err := scanRow(rows, a.schema)
		a.observe("update", start, err)
		return rec, err
	}

	result, err := a.conn().ExecContext(ctx, sqlText, params...)
	if err != nil {
		translated := a.translateErr(err)
		a.observe("update", start, translated)
		return nil, translated
	}
	affected, err := result.RowsAffected()
	if err != nil {
		err = dbalerr.Internal("reading affected rows: %v", err)
		a.observe("update", start, err)
		return nil, err
	}
	if affected == 0 {
		err := dbalerr.NotFound("%s %v not found", a.schema.Name, id)
		a.observe("update", start, err)
		return nil, err
	}
	rec, err := a.Read(ctx, id)
	a.observe("update", start, err)
	return rec, err
}

// Remove implements remove(name, id).
func (a *Adapter) Remove(ctx context.Context, id any) (bool, error) {
	start := time.Now()
	if err := a.authorize("delete"); err != nil {
		return false, err
	}

	idField := idFieldName(a.schema)
	pf := a.schema.FieldByName(idField)
	param, err := paramFor(pf, id)
	if err != nil {
		a.observe("remove", start, err)
		return false, err
	}

	sqlText := BuildDelete(a.dialect, a.schema, idField)
	result, err := a.conn().ExecContext(ctx, sqlText, param)
	if err != nil {
		translated := a.translateErr(err)
		a.observe("remove", start, translated)
		return false, translated
	}
	affected, err := result.RowsAffected()
	if err != nil {
		err = dbalerr.Internal("reading affected rows: %v", err)
		a.observe("remove", start, err)
		return false, err
	}
	if affected == 0 {
		err := dbalerr.NotFound("%s %v not found", a.schema.Name, id)
		a.observe("remove", start, err)
		return false, err
	}
	a.observe("remove", start, nil)
	return true, nil
}

// defaultOrder resolves the default ORDER BY column and direction per spec
// §4.2: "first match among createdAt DESC, primary key name, or first field
// in schema".
func (a *Adapter) defaultOrder() (column string, desc bool) {
	if a.schema.HasField("createdAt") {
		return "createdAt", true
	}
	if pf := a.schema.PrimaryField(); pf != nil {
		return pf.Name, false
	}
	if len(a.schema.Fields) > 0 {
		return a.schema.Fields[0].Name, false
	}
	return "", false
}

func (a *Adapter) filterParams(filter []FilterEntry) ([]string, []any, error) {
	names := make([]string, len(filter))
	params := make([]any, len(filter))
	for i, entry := range filter {
		f := a.schema.FieldByName(entry.Field)
		if f == nil {
			return nil, nil, dbalerr.ValidationError("filter references unknown field %q", entry.Field)
		}
		p, err := typeconv.ToParam(f, entry.Value)
		if err != nil {
			return nil, nil, err
		}
		names[i] = entry.Field
		params[i] = p
	}
	return names, params, nil
}

// List implements list(name, opts).
func (a *Adapter) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	start := time.Now()
	if err := a.authorize("read"); err != nil {
		return ListResult{}, err
	}
	if a.tenant != nil {
		limit := opts.Limit
		if limit <= 0 {
			limit = 50
		}
		if err := a.tenant.AdmitList(limit); err != nil {
			a.observe("list", start, err)
			return ListResult{}, err
		}
	}

	names, params, err := a.filterParams(opts.Filter)
	if err != nil {
		a.observe("list", start, err)
		return ListResult{}, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := 0
	if opts.Page > 1 {
		offset = (opts.Page - 1) * limit
	}

	orderBy, desc := a.defaultOrder()
	q := BuildList(a.dialect, a.schema, names, orderBy, desc, limit, offset)
	params = append(params, q.TailArgs...)

	rows, err := a.conn().QueryContext(ctx, q.SQL, params...)
	if err != nil {
		translated := a.translateErr(err)
		a.observe("list", start, translated)
		return ListResult{}, translated
	}
	defer rows.Close()

	var items []map[string]any
	for rows.Next() {
		rec, err := scanRow(rows, a.schema)
		if err != nil {
			a.observe("list", start, err)
			return ListResult{}, dbalerr.Internal("scanning row: %v", err)
		}
		items = append(items, rec)
	}
	if items == nil {
		items = []map[string]any{}
	}

	a.observe("list", start, nil)
	// total = items.len() in this revision (no separate COUNT query, §9).
	return ListResult{Items: items, Total: len(items), Page: opts.Page, Limit: limit}, nil
}

// FindFirst implements find_first(name, filter).
func (a *Adapter) FindFirst(ctx context.Context, filter []FilterEntry) (map[string]any, error) {
	start := time.Now()
	if err := a.authorize("read"); err != nil {
		return nil, err
	}

	names, params, err := a.filterParams(filter)
	if err != nil {
		a.observe("find_first", start, err)
		return nil, err
	}

	q := BuildFindFirst(a.dialect, a.schema, names)
	rows, err := a.conn().QueryContext(ctx, q.SQL, params...)
	if err != nil {
		translated := a.translateErr(err)
		a.observe("find_first", start, translated)
		return nil, translated
	}
	defer rows.Close()
	if !rows.Next() {
		err := dbalerr.NotFound("%s: no record matches filter", a.schema.Name)
		a.observe("find_first", start, err)
		return nil, err
	}
	rec, err := scanRow(rows, a.schema)
	a.observe("find_first", start, err)
	return rec, err
}

// FindByField implements find_by_field(name, field, value), a convenience
// wrapper over find_first.
func (a *Adapter) FindByField(ctx context.Context, field string, value any) (map[string]any, error) {
	return a.FindFirst(ctx, []FilterEntry{{Field: field, Value: value}})
}

// Upsert implements upsert(name, uniq_field, uniq_val, create_data,
// update_data). DESIGN.md's open-question decisions wrap this in a transaction,
// since the find-then-create/update sequence would otherwise race with a
// concurrent insert of the same unique value.
func (a *Adapter) Upsert(ctx context.Context, uniqField string, uniqVal any, createData, updateData map[string]any) (map[string]any, error) {
	start := time.Now()
	if err := a.Begin(ctx); err != nil {
		return nil, err
	}
	guardFailed := true
	defer func() {
		if guardFailed {
			_ = a.Rollback()
		}
	}()

	existing, err := a.FindByField(ctx, uniqField, uniqVal)
	var result map[string]any
	switch {
	case err != nil && dbalerr.KindOf(err) == dbalerr.KindNotFound:
		result, err = a.Create(ctx, createData)
	case err != nil:
		a.observe("upsert", start, err)
		return nil, err
	default:
		idField := idFieldName(a.schema)
		result, err = a.Update(ctx, existing[idField], updateData)
	}
	if err != nil {
		a.observe("upsert", start, err)
		return nil, err
	}

	if err := a.Commit(); err != nil {
		a.observe("upsert", start, err)
		return nil, err
	}
	guardFailed = false
	a.observe("upsert", start, nil)
	return result, nil
}

// CreateMany implements create_many(name, records): one transaction, one
// savepoint per record, rolling back only the failed record's savepoint
// (SPEC_FULL.md C.2 supplement grounded on original_source's per-record
// partial-success contract).
func (a *Adapter) CreateMany(ctx context.Context, records []map[string]any) (int, error) {
	start := time.Now()
	if err := a.Begin(ctx); err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = a.Rollback()
		}
	}()

	a.mu.Lock()
	txn := a.currentTxn
	a.mu.Unlock()

	success := 0
	for _, rec := range records {
		spName, err := txn.Savepoint(ctx, "")
		if err != nil {
			a.observe("create_many", start, err)
			return success, err
		}
		if _, err := a.Create(ctx, rec); err != nil {
			if rbErr := txn.RollbackToSavepoint(ctx, spName); rbErr != nil && a.logger != nil {
				a.logger.Warn().Err(rbErr).Msg("create_many: rollback to savepoint failed")
			}
			continue
		}
		if err := txn.ReleaseSavepoint(ctx, spName); err != nil && a.logger != nil {
			a.logger.Warn().Err(err).Msg("create_many: release savepoint failed")
		}
		success++
	}

	if err := a.Commit(); err != nil {
		a.observe("create_many", start, err)
		return success, err
	}
	committed = true
	a.observe("create_many", start, nil)
	return success, nil
}

// UpdateMany implements update_many(name, filter, data).
func (a *Adapter) UpdateMany(ctx context.Context, filter []FilterEntry, data map[string]any) (int64, error) {
	start := time.Now()
	if err := a.authorize("write"); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		err := dbalerr.ValidationError("update_many(%s): data must not be empty", a.schema.Name)
		a.observe("update_many", start, err)
		return 0, err
	}
	if err := rejectReadOnlyFields(a.schema, data); err != nil {
		a.observe("update_many", start, err)
		return 0, err
	}

	idField := idFieldName(a.schema)
	var setFields []string
	var setParams []any
	for _, f := range a.schema.Fields {
		if f.Name == idField || f.Name == "createdAt" {
			continue
		}
		v, present := data[f.Name]
		if !present {
			continue
		}
		p, err := typeconv.ToParam(&f, v)
		if err != nil {
			a.observe("update_many", start, err)
			return 0, err
		}
		setFields = append(setFields, f.Name)
		setParams = append(setParams, p)
	}

	filterNames, filterParams, err := a.filterParams(filter)
	if err != nil {
		a.observe("update_many", start, err)
		return 0, err
	}

	q := BuildUpdateMany(a.dialect, a.schema, setFields, filterNames)
	if err := safety.Guard(q.SQL); err != nil {
		a.observe("update_many", start, err)
		return 0, err
	}

	params := append(setParams, filterParams...)
	result, err := a.conn().ExecContext(ctx, q.SQL, params...)
	if err != nil {
		translated := a.translateErr(err)
		a.observe("update_many", start, translated)
		return 0, translated
	}
	affected, err := result.RowsAffected()
	if err != nil {
		err = dbalerr.Internal("reading affected rows: %v", err)
		a.observe("update_many", start, err)
		return 0, err
	}
	a.observe("update_many", start, nil)
	return affected, nil
}

// DeleteMany implements delete_many(name, filter).
func (a *Adapter) DeleteMany(ctx context.Context, filter []FilterEntry) (int64, error) {
	start := time.Now()
	if err := a.authorize("delete"); err != nil {
		return 0, err
	}

	filterNames, filterParams, err := a.filterParams(filter)
	if err != nil {
		a.observe("delete_many", start, err)
		return 0, err
	}

	q := BuildDeleteMany(a.dialect, a.schema, filterNames)
	if err := safety.Guard(q.SQL); err != nil {
		a.observe("delete_many", start, err)
		return 0, err
	}

	result, err := a.conn().ExecContext(ctx, q.SQL, filterParams...)
	if err != nil {
		translated := a.translateErr(err)
		a.observe("delete_many", start, translated)
		return 0, translated
	}
	affected, err := result.RowsAffected()
	if err != nil {
		err = dbalerr.Internal("reading affected rows: %v", err)
		a.observe("delete_many", start, err)
		return 0, err
	}
	a.observe("delete_many", start, nil)
	return affected, nil
}

// Begin implements begin: double-begin is an Internal error (spec §4.2).
func (a *Adapter) Begin(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.currentTxn != nil && a.currentTxn.Active() {
		return dbalerr.Internal("begin called while a transaction is already in progress")
	}
	txn, err := BeginTransaction(ctx, a.opener.DB())
	if err != nil {
		return err
	}
	a.currentTxn = txn
	return nil
}

// Commit implements commit: commit without an active transaction is an
// Internal error (spec §4.2).
func (a *Adapter) Commit() error {
	a.mu.Lock()
	txn := a.currentTxn
	a.mu.Unlock()
	if txn == nil {
		return dbalerr.Internal("commit called without an active transaction")
	}
	return txn.Commit()
}

// Rollback implements rollback: rollback without an active transaction is
// an Internal error (spec §4.2).
func (a *Adapter) Rollback() error {
	a.mu.Lock()
	txn := a.currentTxn
	a.mu.Unlock()
	if txn == nil {
		return dbalerr.Internal("rollback called without an active transaction")
	}
	return txn.Rollback()
}

func paramFor(f *schema.Field, value any) (string, error) {
	if f == nil {
		return "", dbalerr.Internal("missing schema field for parameter binding")
	}
	return typeconv.ToParam(f, value)
}
