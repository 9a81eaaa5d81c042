package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fyrsmithlabs/projreg/internal/project"
)

// ProjectRequest is the body for POST /api/v1/projects and
// PUT /api/v1/projects/:name.
//
// The schema count is accepted as a JSON number or a numeric string and goes
// through the same parser as the form and prompt input.
type ProjectRequest struct {
	Name              string          `json:"name"`
	SourceSchemaCount json.RawMessage `json:"num_source_schemas"`
	TargetSchema      string          `json:"target_schema"`
}

func (r ProjectRequest) input() (project.Input, error) {
	count, err := schemaCountText(r.SourceSchemaCount)
	if err != nil {
		return project.Input{}, err
	}
	return project.ParseInput(r.Name, count, r.TargetSchema)
}

// schemaCountText turns the raw count into the text ParseSchemaCount expects.
// A missing or null count becomes "" and is reported as required.
func schemaCountText(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}

	var n int64
	if err := json.Unmarshal(trimmed, &n); err == nil {
		return strconv.FormatInt(n, 10), nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s, nil
	}
	return "", fmt.Errorf("%w: source schema count must be an integer, got %s", project.ErrInvalidInput, trimmed)
}

// ProjectResponse is one project in API responses.
type ProjectResponse struct {
	Name              string `json:"name"`
	SourceSchemaCount int    `json:"num_source_schemas"`
	TargetSchema      string `json:"target_schema"`
}

func toResponse(p project.Project) ProjectResponse {
	return ProjectResponse{
		Name:              p.Name,
		SourceSchemaCount: p.SourceSchemaCount,
		TargetSchema:      p.TargetSchema,
	}
}

// ListResponse is the body for GET /api/v1/projects.
type ListResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	Status   string `json:"status"` // "ok", or "stale" after a failed write
	Projects int    `json:"projects"`

	// Telemetry is "ok" or "degraded"; omitted when no exporter health is wired.
	Telemetry        string   `json:"telemetry,omitempty"`
	TelemetryReasons []string `json:"telemetry_reasons,omitempty"`
}

// indexPage is the data for the HTML page.
type indexPage struct {
	Projects []project.Project
	Created  string
	Error    string
	Form     formValues
	External *externalChange
}

type formValues struct {
	Name, Count, Target string
}

type externalChange struct {
	Removed bool
	At      string
}
