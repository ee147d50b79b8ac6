package schema

import (
	"os"
	"strings"

	"dbal/internal/dbalerr"
	"dbal/internal/obs"
)

// defaultSearchPathEnv overrides the default schema directory, mirroring
// original_source entity_loader.hpp's getDefaultSchemaPath().
const defaultSearchPathEnv = "DBAL_SCHEMA_DIR"

// defaultSearchPathCandidates are tried in order when DBAL_SCHEMA_DIR is
// unset, mirroring getDefaultSchemaPath()'s list of relative possibilities
// for different working directories.
var defaultSearchPathCandidates = []string{
	"schemas",
	"../schemas",
	"../../schemas",
	"../../../schemas",
}

// Loader discovers, parses, validates, and caches entity schemas from a
// directory of YAML files (spec §4.1, component C3).
type Loader struct {
	cache *Cache
}

// NewLoader constructs a Loader backed by a fresh Cache.
func NewLoader() *Loader {
	return &Loader{cache: NewCache()}
}

// DefaultSearchPath returns the directory schemas are loaded from absent an
// explicit path: $DBAL_SCHEMA_DIR if set, else the first of
// defaultSearchPathCandidates that exists. It fails if none match (spec
// §4.1: "fails if none match").
func (l *Loader) DefaultSearchPath() (string, error) {
	if dir := os.Getenv(defaultSearchPathEnv); dir != "" {
		return dir, nil
	}
	for _, candidate := range defaultSearchPathCandidates {
		info, err := os.Stat(candidate)
		if err == nil && info.IsDir() {
			return candidate, nil
		}
	}
	return "", dbalerr.NotFound("could not find a DBAL schema directory; tried %s", strings.Join(defaultSearchPathCandidates, ", "))
}

// LoadAll discovers every entity YAML file under dir, parses and validates
// each, and populates the cache. A missing or unreadable dir is not an
// error: it is logged and an empty result is returned (spec §4.1: "returns
// empty map for missing dir (warned)"). Per-file parse/validation failures
// are likewise logged and skipped rather than aborting sibling files
// (original_source entity_loader.cpp's loadSchemas catch-and-continue
// loop), so LoadAll only ever returns a non-nil error for a caller mistake
// it cannot recover from.
func (l *Loader) LoadAll(dir string) ([]*Schema, error) {
	files, err := discoverYAMLFiles(dir)
	if err != nil {
		obs.L().Warn().Str("dir", dir).Err(err).Msg("schema directory does not exist or could not be read; loading zero schemas")
		return nil, nil
	}

	var loaded []*Schema
	for _, path := range files {
		s, err := l.LoadOne(path)
		if err != nil {
			obs.L().Error().Str("file", path).Err(err).Msg("failed to load schema file, skipping")
			continue
		}
		loaded = append(loaded, s)
	}
	return loaded, nil
}

// LoadOne parses, validates, and caches a single schema file.
func (l *Loader) LoadOne(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dbalerr.Internal("reading schema file %q: %v", path, err)
	}

	s, err := parseDocument(data)
	if err != nil {
		return nil, err
	}

	result := Validate(s)
	for _, w := range result.Warnings {
		obs.L().Warn().Str("file", path).Msg(w)
	}
	if !result.Valid() {
		return nil, dbalerr.ValidationError("schema %q is invalid:\n%s", s.Name, strings.Join(result.Errors, "\n"))
	}

	l.cache.Put(s)
	return s, nil
}

// GetCached returns a previously loaded schema by entity name, or a
// NotFound error if it has not been loaded.
func (l *Loader) GetCached(name string) (*Schema, error) {
	if s := l.cache.Get(name); s != nil {
		return s, nil
	}
	return nil, dbalerr.NotFound("schema %q is not loaded", name)
}

// Cache exposes the loader's underlying cache, e.g. for Clear/EntityNames.
func (l *Loader) Cache() *Cache { return l.cache }
