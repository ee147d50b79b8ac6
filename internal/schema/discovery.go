package schema

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// excludedFilenames are skipped during directory discovery: these are
// reserved for a future aggregate manifest, not a single entity (mirrors
// original_source yaml_parser.hpp's fileExists/findYamlFiles pairing).
var excludedFilenames = map[string]bool{
	"entities.yaml": true,
	"entities.yml":  true,
}

// discoverYAMLFiles recursively walks dir and returns every .yaml/.yml file
// that is not in excludedFilenames, in lexicographic path order so that
// schema cache insertion order is deterministic across runs (spec §4.1).
func discoverYAMLFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if excludedFilenames[strings.ToLower(filepath.Base(path))] {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
