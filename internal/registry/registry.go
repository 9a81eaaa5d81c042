// Package registry persists the project collection to a single JSON file.
//
// The backing file is a JSON array, one object per project, in creation
// order:
//
//	[
//	  {"name": "Alpha", "num_source_schemas": 3, "target_schema": "json"},
//	  {"name": "Beta", "num_source_schemas": 0, "target_schema": "csv"}
//	]
//
// Unknown keys are ignored on load and not written back.
//
// The store does no file locking. Two processes saving to the same file
// race and the last save wins; Watch makes such writes visible.
package registry

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/fyrsmithlabs/projreg/internal/project"
)

// Errors for registry operations.
var (
	ErrRegistryCorrupted = errors.New("registry file corrupted")
	ErrStorageRead       = errors.New("registry file unreadable")
	ErrStorageWrite      = errors.New("registry write failed")
	ErrInvalidState      = errors.New("refusing to save invalid registry")
)

var _ project.Store = (*Store)(nil)

// record is the on-disk shape of a project. Pointer fields tell a missing
// key apart from a zero value.
type record struct {
	Name              *string `json:"name"`
	SourceSchemaCount *int    `json:"num_source_schemas"`
	TargetSchema      *string `json:"target_schema"`
}

// Store reads and writes the registry file.
type Store struct {
	path    string
	metrics *Metrics

	mu     sync.Mutex
	digest string // blake3 of the bytes last loaded or written
}

// NewStore returns a store backed by the file at path. The file is not
// touched until Load or Save.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("registry path cannot be empty")
	}
	return &Store{
		path:    filepath.Clean(path),
		metrics: NewMetrics(),
	}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Digest returns the hex blake3 digest of the file contents this store last
// loaded or wrote, or "" if it has done neither or the file was absent.
func (s *Store) Digest() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.digest
}

// Load reads the registry file. A missing file yields an empty collection
// and is not created. Any unparseable content or invalid record fails the
// whole load with ErrRegistryCorrupted.
func (s *Store) Load() ([]project.Project, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.setDigest("")
		s.metrics.LoadsTotal.WithLabelValues("missing").Inc()
		return []project.Project{}, nil
	}
	if err != nil {
		s.metrics.LoadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrStorageRead, err)
	}

	projects, err := decode(data)
	if err != nil {
		s.metrics.LoadsTotal.WithLabelValues("corrupt").Inc()
		return nil, fmt.Errorf("%w: %s: %w", ErrRegistryCorrupted, s.path, err)
	}

	s.setDigest(digestOf(data))
	s.metrics.LoadsTotal.WithLabelValues("ok").Inc()
	return projects, nil
}

// Save replaces the file contents with projects. The collection is
// validated first and nothing is written if it is invalid. The new
// contents go to a temporary file in the same directory which is then
// renamed over the backing file.
func (s *Store) Save(projects []project.Project) error {
	if err := project.ValidateAll(projects); err != nil {
		s.metrics.SavesTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}

	data, err := encode(projects)
	if err != nil {
		s.metrics.SavesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Publish the digest before the rename so Watch never reports our own
	// write as external.
	prev := s.digest
	s.digest = digestOf(data)

	if err := writeAtomic(s.path, data); err != nil {
		s.digest = prev
		s.metrics.SavesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}

	s.metrics.SavesTotal.WithLabelValues("ok").Inc()
	return nil
}

func (s *Store) setDigest(d string) {
	s.mu.Lock()
	s.digest = d
	s.mu.Unlock()
}

func decode(data []byte) ([]project.Project, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.New("expected a JSON array of projects")
	}

	var records []record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, err
	}

	projects := make([]project.Project, 0, len(records))
	for i, r := range records {
		switch {
		case r.Name == nil:
			return nil, fmt.Errorf("project %d: missing field %q", i, "name")
		case r.SourceSchemaCount == nil:
			return nil, fmt.Errorf("project %d: missing field %q", i, "num_source_schemas")
		case r.TargetSchema == nil:
			return nil, fmt.Errorf("project %d: missing field %q", i, "target_schema")
		}
		projects = append(projects, project.Project{
			Name:              *r.Name,
			SourceSchemaCount: *r.SourceSchemaCount,
			TargetSchema:      *r.TargetSchema,
		})
	}

	if err := project.ValidateAll(projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func encode(projects []project.Project) ([]byte, error) {
	// A nil slice would marshal as null.
	out := make([]project.Project, len(projects))
	copy(out, projects)

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal registry: %w", err)
	}
	return append(data, '\n'), nil
}

func writeAtomic(path string, data []byte) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close registry: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod registry: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename registry: %w", err)
	}
	return nil
}

func digestOf(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
