// Package watch reloads the schema generation when definition files change.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/lodestar-catalog/lodestar/internal/config"
)

// SchemaWatcher monitors the schema paths and the entity registry file and
// triggers a debounced callback on changes
type SchemaWatcher struct {
	watcher      *fsnotify.Watcher
	debouncer    *Debouncer
	paths        []string
	registryFile string
	onChange     func([]string) error
	log          *zap.Logger
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

// NewSchemaWatcher creates a watcher over the configured schema paths
func NewSchemaWatcher(paths []string, registryFile string, log *zap.Logger, onChange func([]string) error) (*SchemaWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	sw := &SchemaWatcher{
		watcher:      watcher,
		debouncer:    NewDebouncer(150 * time.Millisecond),
		paths:        paths,
		registryFile: registryFile,
		onChange:     onChange,
		log:          log,
		stopChan:     make(chan struct{}),
	}

	sw.debouncer.SetCallback(func(files []string) {
		if err := sw.onChange(files); err != nil {
			sw.log.Error("failed to handle schema changes", zap.Error(err))
		}
	})

	return sw, nil
}

// Start begins watching the file system
func (sw *SchemaWatcher) Start() error {
	dirs, err := sw.findDirectories()
	if err != nil {
		return fmt.Errorf("failed to find directories: %w", err)
	}

	for _, dir := range dirs {
		if err := sw.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		sw.log.Info("watching directory", zap.String("dir", dir))
	}

	sw.wg.Add(1)
	go sw.watch()
	return nil
}

// Stop stops the file watcher
func (sw *SchemaWatcher) Stop() error {
	select {
	case <-sw.stopChan:
		return nil
	default:
		close(sw.stopChan)
	}

	sw.wg.Wait()
	sw.debouncer.Stop()
	return sw.watcher.Close()
}

// watch is the main event loop
func (sw *SchemaWatcher) watch() {
	defer sw.wg.Done()

	for {
		select {
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 && sw.maybeWatchNewDir(event.Name) {
				continue
			}
			if !sw.relevant(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				sw.log.Debug("schema file changed", zap.String("file", event.Name))
				sw.debouncer.Add(event.Name)
			}

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.log.Warn("watch error", zap.Error(err))

		case <-sw.stopChan:
			return
		}
	}
}

// maybeWatchNewDir adds a directory created under a watched path so schemas
// dropped into new subdirectories are picked up without a restart. Reports
// whether the path was a directory.
func (sw *SchemaWatcher) maybeWatchNewDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	if err := sw.watcher.Add(path); err != nil {
		sw.log.Warn("failed to watch new directory", zap.String("dir", path), zap.Error(err))
		return true
	}
	sw.log.Info("watching directory", zap.String("dir", path))
	return true
}

// findDirectories lists the directories to watch: every configured schema
// directory (recursively), the parent of any configured file, and the entity
// registry file's directory
func (sw *SchemaWatcher) findDirectories() ([]string, error) {
	seen := make(map[string]bool)
	var dirs []string
	addDir := func(dir string) {
		if dir == "" {
			dir = "."
		}
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, path := range sw.paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			addDir(filepath.Dir(path))
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
				addDir(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if sw.registryFile != "" {
		addDir(filepath.Dir(sw.registryFile))
	}
	return dirs, nil
}

// relevant reports whether an event path affects the compiled schema set
func (sw *SchemaWatcher) relevant(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if filepath.Ext(path) == config.SchemaExt {
		return true
	}
	return sw.registryFile != "" && base == filepath.Base(sw.registryFile)
}
