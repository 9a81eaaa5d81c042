package project

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/projreg/internal/logging"
)

// Store persists the full project collection.
//
// Load returns the persisted collection in insertion order. Save replaces
// the persisted collection with projects.
type Store interface {
	Load() ([]Project, error)
	Save(projects []Project) error
}

// Service validates project changes and writes them through to a Store.
type Service struct {
	store    Store
	logger   *logging.Logger
	metrics  *Metrics
	projects []Project

	// stale is set when the last write-through failed and the store no
	// longer matches memory.
	stale bool
}

// Open loads the registry from store and returns a Service over it.
// A nil logger falls back to the logger stored in ctx.
func Open(ctx context.Context, store Store, logger *logging.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if logger == nil {
		logger = logging.FromContext(ctx)
	}

	projects, err := store.Load()
	if err != nil {
		logger.Error(ctx, "failed to load project registry", zap.Error(err))
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}

	s := &Service{
		store:    store,
		logger:   logger.Named("project"),
		metrics:  NewMetrics(),
		projects: projects,
	}
	s.metrics.setProjects(len(projects))
	s.logger.Info(ctx, "project registry opened", zap.Int("projects", len(projects)))
	return s, nil
}

// List returns the projects in creation order.
// The returned slice is a copy; changing it does not affect the registry.
func (s *Service) List(ctx context.Context) []Project {
	out := make([]Project, len(s.projects))
	copy(out, s.projects)
	s.logger.Trace(ctx, "listing projects", zap.Int("count", len(out)))
	return out
}

// Get returns the project with the given name.
func (s *Service) Get(ctx context.Context, name string) (Project, error) {
	i := s.indexOf(name)
	if i < 0 {
		return Project{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s.projects[i], nil
}

// Create validates and appends a new project, then saves the registry.
//
// Validation failures return ErrInvalidInput or ErrDuplicateName and leave
// the registry untouched. If the save fails the project stays in memory and
// the storage error is returned.
func (s *Service) Create(ctx context.Context, name string, sourceSchemaCount int, targetSchema string) (Project, error) {
	ctx = logging.WithProject(ctx, name)
	p := Project{
		Name:              name,
		SourceSchemaCount: sourceSchemaCount,
		TargetSchema:      targetSchema,
	}

	if err := s.validateNew(p, -1); err != nil {
		s.metrics.record("create", resultFor(err))
		s.logger.Debug(ctx, "project rejected", zap.Error(err))
		return Project{}, err
	}

	s.projects = append(s.projects, p)
	s.metrics.setProjects(len(s.projects))

	if err := s.persist(ctx, "create"); err != nil {
		return p, err
	}

	s.logger.Info(ctx, "project created",
		zap.Int("source_schemas", p.SourceSchemaCount),
		zap.String("target_schema", p.TargetSchema))
	return p, nil
}

// Update replaces the project called name with p, keeping its position.
// p may carry a new name as long as no other project uses it.
func (s *Service) Update(ctx context.Context, name string, p Project) (Project, error) {
	ctx = logging.WithProject(ctx, name)

	i := s.indexOf(name)
	if i < 0 {
		s.metrics.record("update", resultNotFound)
		return Project{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err := s.validateNew(p, i); err != nil {
		s.metrics.record("update", resultFor(err))
		s.logger.Debug(ctx, "project update rejected", zap.Error(err))
		return Project{}, err
	}

	s.projects[i] = p

	if err := s.persist(ctx, "update"); err != nil {
		return p, err
	}

	s.logger.Info(ctx, "project updated", zap.String("new_name", p.Name))
	return p, nil
}

// Delete removes the project called name and returns it.
func (s *Service) Delete(ctx context.Context, name string) (Project, error) {
	ctx = logging.WithProject(ctx, name)

	i := s.indexOf(name)
	if i < 0 {
		s.metrics.record("delete", resultNotFound)
		return Project{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	removed := s.projects[i]
	s.projects = append(s.projects[:i], s.projects[i+1:]...)
	s.metrics.setProjects(len(s.projects))

	if err := s.persist(ctx, "delete"); err != nil {
		return removed, err
	}

	s.logger.Info(ctx, "project deleted")
	return removed, nil
}

// Stale reports whether the last write-through failed.
func (s *Service) Stale() bool {
	return s.stale
}

// Close flushes the registry if the last write-through failed.
// It is a no-op when the store already matches memory.
func (s *Service) Close(ctx context.Context) error {
	if !s.stale {
		return nil
	}
	s.logger.Warn(ctx, "flushing stale registry on close", zap.Int("projects", len(s.projects)))
	if err := s.store.Save(s.projects); err != nil {
		s.logger.Error(ctx, "failed to flush registry on close", zap.Error(err))
		return fmt.Errorf("failed to flush registry: %w", err)
	}
	s.stale = false
	return nil
}

// validateNew checks p against every project except the one at skip, then
// against the field constraints. A taken name wins over other field errors.
func (s *Service) validateNew(p Project, skip int) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: project name cannot be empty", ErrInvalidInput)
	}
	for i, existing := range s.projects {
		if i != skip && existing.Name == p.Name {
			return fmt.Errorf("%w: %s", ErrDuplicateName, p.Name)
		}
	}
	return p.Validate()
}

// persist writes the in-memory collection through to the store.
func (s *Service) persist(ctx context.Context, op string) error {
	if err := s.store.Save(s.projects); err != nil {
		s.stale = true
		s.metrics.record(op, resultStorageError)
		s.logger.Error(ctx, "registry write failed; change kept in memory only",
			zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s not persisted: %w", op, err)
	}
	s.stale = false
	s.metrics.record(op, resultOK)
	return nil
}

func (s *Service) indexOf(name string) int {
	for i, p := range s.projects {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func resultFor(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateName):
		return resultDuplicate
	case errors.Is(err, ErrNotFound):
		return resultNotFound
	case errors.Is(err, ErrInvalidInput):
		return resultInvalid
	default:
		return resultStorageError
	}
}
