package main

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"dbal/internal/dbalerr"
	"dbal/internal/metrics"
	"dbal/internal/obs"
	"dbal/internal/schema"
	"dbal/internal/sqladapter"
	"dbal/internal/tenant"
)

// errorWire renders err as the §6.3 error JSON shape. include_details
// follows DBAL_INCLUDE_DETAILS (default true for a CLI running on a
// trusted operator's own machine).
func errorWire(err error) string {
	includeDetails := true
	if v := os.Getenv("DBAL_INCLUDE_DETAILS"); v != "" {
		if parsed, perr := strconv.ParseBool(v); perr == nil {
			includeDetails = parsed
		}
	}
	wire := dbalerr.Format(err, includeDetails)
	obs.LogError(obs.L(), err, "command failed")
	b, _ := json.Marshal(wire)
	return string(b)
}

// connFlags are the flags shared by every command that opens a SQL adapter.
type connFlags struct {
	dsn       string
	dialect   string
	schemaDir string
	entity    string
	tenantID  string
	userID    string
	role      string
}

// loadSchema locates and loads the named entity's schema from schemaDir (or
// schema.Loader's default search path when schemaDir is empty).
func loadSchema(schemaDir, entity string) (*schema.Schema, error) {
	loader := schema.NewLoader()
	dir := schemaDir
	if dir == "" {
		var err error
		dir, err = loader.DefaultSearchPath()
		if err != nil {
			return nil, err
		}
	}
	if _, err := loader.LoadAll(dir); err != nil {
		return nil, err
	}
	return loader.GetCached(entity)
}

// openAdapter wires a schema, a dialect connection, an optional tenant
// context, and shared metrics/logging into an Adapter ready for one CLI
// invocation. Thin glue only: the boundary contract (spec §6) stops here.
func openAdapter(f *connFlags) (*sqladapter.Adapter, func() error, error) {
	s, err := loadSchema(f.schemaDir, f.entity)
	if err != nil {
		return nil, nil, err
	}

	opener, err := sqladapter.OpenDialect(sqladapter.Dialect(f.dialect), f.dsn)
	if err != nil {
		return nil, nil, dbalerr.ValidationError("opening %s connection: %v", f.dialect, err)
	}

	var tctx *tenant.Context
	if f.tenantID != "" {
		identity, err := tenant.NewIdentity(f.tenantID, f.userID, tenant.Role(strings.ToLower(f.role)), []string{"read:*", "write:*", "delete:*"})
		if err != nil {
			_ = opener.Close()
			return nil, nil, err
		}
		tctx = tenant.New(*identity, tenant.Quota{})
	}

	m := metrics.New(prometheus.NewRegistry())
	logger := obs.L()
	adapter := sqladapter.New(opener, s, tctx, m, logger)

	return adapter, opener.Close, nil
}

func registerConnFlags(fs flagRegistrar, f *connFlags) {
	fs.StringVar(&f.dsn, "dsn", "", "database connection string (required)")
	fs.StringVar(&f.dialect, "dialect", "sqlite", "dialect: sqlite or mysql")
	fs.StringVar(&f.schemaDir, "schema-dir", "", "directory of entity YAML schemas (defaults to the schema loader's search path)")
	fs.StringVar(&f.entity, "entity", "", "entity name (required)")
	fs.StringVar(&f.tenantID, "tenant", "", "tenant id; omit to skip authorization/quota enforcement")
	fs.StringVar(&f.userID, "user", "cli", "acting user id")
	fs.StringVar(&f.role, "role", "owner", "tenant role: owner, admin, member, or viewer")
}

type flagRegistrar interface {
	StringVar(p *string, name, value, usage string)
}

func requireConnFlags(f *connFlags) error {
	if f.dsn == "" {
		return dbalerr.ValidationError("--dsn is required")
	}
	if f.entity == "" {
		return dbalerr.ValidationError("--entity is required")
	}
	return nil
}
