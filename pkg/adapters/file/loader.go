// Package file loads experience documents from a directory of YAML or JSON files.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/lantern/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Extensions lists the recognised document extensions in lookup order.
var Extensions = []string{".yaml", ".yml", ".json"}

// Loader implements ports.ExperienceLoader over a directory.
// Each experience lives in <dir>/<id>.yaml, <id>.yml or <id>.json.
type Loader struct {
	BasePath string
}

// NewLoader creates a loader rooted at basePath.
// If basePath is empty, it defaults to "experiences".
func NewLoader(basePath string) *Loader {
	if basePath == "" {
		basePath = "experiences"
	}
	return &Loader{BasePath: basePath}
}

// Load reads and decodes the experience with the given ID.
func (l *Loader) Load(ctx context.Context, id string) (*domain.Experience, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("invalid experience id %q", id)
	}
	for _, ext := range Extensions {
		path := filepath.Join(l.BasePath, id+ext)
		exp, err := ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if exp.ID == "" {
			exp.ID = id
		}
		return exp, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrExperienceNotFound, id)
}

// List returns the IDs of every document in the directory, sorted.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read experience directory: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !isDocument(ext) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ext)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Save writes exp as YAML to <dir>/<id>.yaml atomically.
func (l *Loader) Save(ctx context.Context, exp *domain.Experience) error {
	if exp == nil || exp.ID == "" {
		return fmt.Errorf("experience missing ID")
	}
	if err := os.MkdirAll(l.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure experience directory: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(exp); err != nil {
		return fmt.Errorf("failed to marshal experience: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to marshal experience: %w", err)
	}

	// Same directory so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(l.BasePath, "tmp-"+exp.ID+"-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	dest := filepath.Join(l.BasePath, exp.ID+".yaml")
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to move experience into place: %w", err)
	}
	return nil
}

// ReadFile decodes the document at path, choosing the format by extension.
func ReadFile(path string) (*domain.Experience, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	exp, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return exp, nil
}

// Decode parses a document. ext selects JSON for ".json" and YAML otherwise.
func Decode(data []byte, ext string) (*domain.Experience, error) {
	var exp domain.Experience
	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(data, &exp); err != nil {
			return nil, err
		}
		return &exp, nil
	}
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return nil, err
	}
	return &exp, nil
}

func isDocument(ext string) bool {
	for _, e := range Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
