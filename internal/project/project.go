package project

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Common errors.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrDuplicateName = errors.New("project already exists")
	ErrNotFound      = errors.New("project not found")
)

// Project describes a data transformation project.
type Project struct {
	// Name is the unique project name.
	Name string `json:"name" yaml:"name" toml:"name"`

	// SourceSchemaCount is the number of source schemas the project consumes.
	SourceSchemaCount int `json:"num_source_schemas" yaml:"num_source_schemas" toml:"num_source_schemas"`

	// TargetSchema names the schema the project produces.
	TargetSchema string `json:"target_schema" yaml:"target_schema" toml:"target_schema"`
}

// Validate checks the field constraints of a single project.
func (p Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: project name cannot be empty", ErrInvalidInput)
	}
	if p.SourceSchemaCount < 0 {
		return fmt.Errorf("%w: source schema count must be non-negative, got %d", ErrInvalidInput, p.SourceSchemaCount)
	}
	if strings.TrimSpace(p.TargetSchema) == "" {
		return fmt.Errorf("%w: target schema cannot be empty", ErrInvalidInput)
	}
	return nil
}

// String renders the project the way listings show it.
func (p Project) String() string {
	return fmt.Sprintf("%s (sources: %d, target: %s)", p.Name, p.SourceSchemaCount, p.TargetSchema)
}

// ValidateAll checks every project and the name uniqueness invariant.
func ValidateAll(projects []Project) error {
	seen := make(map[string]int, len(projects))
	for i, p := range projects {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("project %d: %w", i, err)
		}
		if j, ok := seen[p.Name]; ok {
			return fmt.Errorf("project %d: %w: %q also at %d", i, ErrDuplicateName, p.Name, j)
		}
		seen[p.Name] = i
	}
	return nil
}

// Input is raw front-end text converted to typed project fields.
type Input struct {
	Name              string
	SourceSchemaCount int
	TargetSchema      string
}

// Project returns the project described by the input.
func (in Input) Project() Project {
	return Project{
		Name:              in.Name,
		SourceSchemaCount: in.SourceSchemaCount,
		TargetSchema:      in.TargetSchema,
	}
}

// ParseInput converts the three raw text fields a prompt or form collects.
// Surrounding whitespace is trimmed from every field.
func ParseInput(name, count, targetSchema string) (Input, error) {
	in := Input{
		Name:         strings.TrimSpace(name),
		TargetSchema: strings.TrimSpace(targetSchema),
	}
	if in.Name == "" {
		return Input{}, fmt.Errorf("%w: project name cannot be empty", ErrInvalidInput)
	}
	n, err := ParseSchemaCount(count)
	if err != nil {
		return Input{}, err
	}
	in.SourceSchemaCount = n
	if in.TargetSchema == "" {
		return Input{}, fmt.Errorf("%w: target schema cannot be empty", ErrInvalidInput)
	}
	return in, nil
}

// ParseSchemaCount parses a source schema count typed by a user.
// Only base-10 non-negative integers are accepted.
func ParseSchemaCount(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: source schema count is required", ErrInvalidInput)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: source schema count %q is not an integer", ErrInvalidInput, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: source schema count must be non-negative, got %d", ErrInvalidInput, n)
	}
	return n, nil
}
