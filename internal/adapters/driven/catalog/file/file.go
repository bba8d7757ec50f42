// Package file reads catalog items from a local JSON or YAML file.
//
// The file holds either a list of items or a document with an "items" key:
//
//	items:
//	  - id: "4uLU6hMCjMI75M1A2tKUQC"
//	    title: Never Gonna Give You Up
//	    contributors: [Rick Astley]
//	    collection: Whenever You Need Somebody
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-music/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.CatalogSource = (*Source)(nil)

// Source is a catalog backed by one file.
type Source struct {
	path string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// New creates a file catalog source for path.
func New(path string) *Source {
	return &Source{path: path}
}

// Name returns the file name the catalog is read from.
func (s *Source) Name() string {
	return "file:" + filepath.Base(s.path)
}

// ListItems parses the file, as JSON when it has a .json extension and as
// YAML otherwise. Items are deduplicated by ID, keeping the first
// occurrence. An item without an ID or title is an error.
func (s *Source) ListItems(_ context.Context) ([]domain.RawItem, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if strings.EqualFold(filepath.Ext(s.path), ".json") {
		return parseJSON(data)
	}
	return parseYAML(data)
}

// catalogDocument is the object form of a catalog file.
type catalogDocument struct {
	Items []domain.RawItem `json:"items" yaml:"items"`
}

func parseJSON(data []byte) ([]domain.RawItem, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var raws []domain.RawItem
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
		return dedupe(raws)
	}

	var doc catalogDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return dedupe(doc.Items)
}

func parseYAML(data []byte) ([]domain.RawItem, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var raws []domain.RawItem
	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&raws); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
	case yaml.MappingNode:
		var doc catalogDocument
		if err := root.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
		raws = doc.Items
	default:
		return nil, fmt.Errorf("parse catalog: expected a list of items: %w", domain.ErrInvalidInput)
	}
	return dedupe(raws)
}

// dedupe validates raws and drops repeated IDs, keeping the first.
func dedupe(raws []domain.RawItem) ([]domain.RawItem, error) {
	seen := make(map[string]bool, len(raws))
	items := make([]domain.RawItem, 0, len(raws))
	for i, raw := range raws {
		if err := raw.Validate(); err != nil {
			return nil, fmt.Errorf("catalog item %d: %w", i, err)
		}
		if seen[raw.ID] {
			continue
		}
		seen[raw.ID] = true
		items = append(items, raw)
	}
	return items, nil
}

// Watch emits the parsed catalog every time the file is written or replaced.
// The directory is watched rather than the file so editors that save by
// rename are seen. Parse failures are logged and skipped. The channel is
// closed when ctx is done or Close is called.
func (s *Source) Watch(ctx context.Context) (<-chan []domain.RawItem, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", s.path, err)
	}

	s.mu.Lock()
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.watcher = watcher
	s.mu.Unlock()

	out := make(chan []domain.RawItem)
	go func() {
		defer close(out)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !s.handleEvent(event) {
					continue
				}
				items, err := s.ListItems(ctx)
				if err != nil {
					logger.Warn("catalog %s: %v", s.path, err)
					continue
				}
				select {
				case out <- items:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("catalog watcher: %v", err)
			}
		}
	}()
	return out, nil
}

// handleEvent reports whether event changed the catalog file's content.
func (s *Source) handleEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(s.path) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

// Close stops an active watch.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	if errors.Is(err, fsnotify.ErrClosed) {
		return nil
	}
	return err
}
