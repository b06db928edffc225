package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lodestar-catalog/lodestar/internal/registry"
)

// SchemaExt is the file extension of aspect definition sources
const SchemaExt = ".adl"

// LoadSources reads every definition file named by paths. A path may be one
// file or a directory scanned recursively. Results come back sorted by file
// name so compile input order is stable across runs.
func LoadSources(paths []string) ([]registry.Source, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat schema path: %w", err)
		}

		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && p != path {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(p) == SchemaExt {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan schema directory %s: %w", path, err)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files found under %v", SchemaExt, paths)
	}
	sort.Strings(files)

	sources := make([]registry.Source, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file: %w", err)
		}
		sources = append(sources, registry.Source{Name: file, Text: string(data)})
	}
	return sources, nil
}
