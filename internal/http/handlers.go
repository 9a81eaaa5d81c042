package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/projreg/internal/project"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, project.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, project.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, project.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// messageFor turns a service error into text for the user. Storage failures
// keep the change in memory, which the message says.
func messageFor(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		return "The change was kept but could not be saved: " + err.Error()
	}
	return err.Error()
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	status := "ok"
	if s.svc.Stale() {
		status = "stale"
	}
	resp := HealthResponse{
		Status:   status,
		Projects: len(s.svc.List(ctx)),
	}
	if s.telemetryHealth != nil {
		h := s.telemetryHealth()
		resp.Telemetry = "ok"
		if h.Degraded {
			resp.Telemetry = "degraded"
			resp.TelemetryReasons = h.Reasons
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleIndex(c echo.Context) error {
	page := s.page(c)
	if created := c.QueryParam("created"); created != "" {
		if _, err := s.svc.Get(c.Request().Context(), created); err == nil {
			page.Created = created
		}
	}
	return c.Render(http.StatusOK, "index.html", page)
}

func (s *Server) handleFormCreate(c echo.Context) error {
	ctx := c.Request().Context()
	form := formValues{
		Name:   c.FormValue("name"),
		Count:  c.FormValue("num_source_schemas"),
		Target: c.FormValue("target_schema"),
	}

	fail := func(err error) error {
		page := s.page(c)
		page.Form = form
		page.Error = messageFor(err)
		return c.Render(statusFor(err), "index.html", page)
	}

	in, err := project.ParseInput(form.Name, form.Count, form.Target)
	if err != nil {
		return fail(err)
	}
	p, err := s.svc.Create(ctx, in.Name, in.SourceSchemaCount, in.TargetSchema)
	if err != nil {
		return fail(err)
	}

	return c.Redirect(http.StatusSeeOther, "/?created="+url.QueryEscape(p.Name))
}

func (s *Server) handleList(c echo.Context) error {
	projects := s.svc.List(c.Request().Context())
	resp := ListResponse{Projects: make([]ProjectResponse, 0, len(projects))}
	for _, p := range projects {
		resp.Projects = append(resp.Projects, toResponse(p))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCreate(c echo.Context) error {
	var req ProjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	in, err := req.input()
	if err != nil {
		return apiError(err)
	}

	p, err := s.svc.Create(c.Request().Context(), in.Name, in.SourceSchemaCount, in.TargetSchema)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusCreated, toResponse(p))
}

func (s *Server) handleGet(c echo.Context) error {
	name, err := projectName(c)
	if err != nil {
		return err
	}
	p, err := s.svc.Get(c.Request().Context(), name)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, toResponse(p))
}

func (s *Server) handleUpdate(c echo.Context) error {
	name, err := projectName(c)
	if err != nil {
		return err
	}
	var req ProjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	in, err := req.input()
	if err != nil {
		return apiError(err)
	}

	p, err := s.svc.Update(c.Request().Context(), name, in.Project())
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, toResponse(p))
}

func (s *Server) handleDelete(c echo.Context) error {
	name, err := projectName(c)
	if err != nil {
		return err
	}
	if _, err := s.svc.Delete(c.Request().Context(), name); err != nil {
		return apiError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// projectName returns the :name path parameter as the client meant it.
// echo matches on the raw path when the request has one (for example a name
// containing an escaped "/"), and then leaves the parameter escaped.
func projectName(c echo.Context) (string, error) {
	name := c.Param("name")
	if c.Request().URL.RawPath == "" {
		return name, nil
	}
	unescaped, err := url.PathUnescape(name)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid project name in path")
	}
	return unescaped, nil
}

func (s *Server) page(c echo.Context) indexPage {
	return indexPage{
		Projects: s.svc.List(c.Request().Context()),
		External: s.external.Load(),
	}
}

func apiError(err error) error {
	return echo.NewHTTPError(statusFor(err), messageFor(err))
}
