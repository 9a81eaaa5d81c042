// Package tui is the interactive prompt front end: a project list, a detail
// view, and sequential prompts for the three project fields.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fyrsmithlabs/projreg/internal/project"
)

// Registry is the part of project.Service the prompt loop uses.
type Registry interface {
	List(ctx context.Context) []project.Project
	Create(ctx context.Context, name string, sourceSchemaCount int, targetSchema string) (project.Project, error)
	Update(ctx context.Context, name string, p project.Project) (project.Project, error)
	Delete(ctx context.Context, name string) (project.Project, error)
}

type view int

const (
	viewList view = iota
	viewForm
	viewDetail
	viewConfirmDelete
)

// Form fields, prompted in order.
const (
	fieldName = iota
	fieldCount
	fieldTarget
	numFields
)

var prompts = [numFields]string{
	"Project name",
	"Number of source schemas",
	"Target schema",
}

// Model is the bubbletea model for the prompt loop.
type Model struct {
	ctx context.Context
	reg Registry

	view     view
	projects []project.Project
	cursor   int

	inputs  [numFields]textinput.Model
	field   int
	editing string // name of the project being edited, "" when creating

	message string
	isError bool
	quit    bool
}

// New returns a model showing the current project list.
func New(ctx context.Context, reg Registry) Model {
	m := Model{ctx: ctx, reg: reg}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.CharLimit = 256
		m.inputs[i] = ti
	}
	m.inputs[fieldCount].Placeholder = "0"
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Quitting reports whether the user asked to leave.
func (m Model) Quitting() bool {
	return m.quit
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.view == viewForm {
			var cmd tea.Cmd
			m.inputs[m.field], cmd = m.inputs[m.field].Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if key.Type == tea.KeyCtrlC {
		m.quit = true
		return m, tea.Quit
	}

	switch m.view {
	case viewForm:
		return m.updateForm(key)
	case viewDetail:
		return m.updateDetail(key)
	case viewConfirmDelete:
		return m.updateConfirm(key)
	default:
		return m.updateList(key)
	}
}

func (m Model) updateList(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "q", "esc":
		m.quit = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.projects)-1 {
			m.cursor++
		}
	case "n", "c":
		return m.startForm("", project.Project{})
	case "enter":
		if len(m.projects) > 0 {
			m.view = viewDetail
			m.clearMessage()
		}
	}
	return m, nil
}

func (m Model) updateDetail(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	p, ok := m.selected()
	if !ok {
		m.view = viewList
		return m, nil
	}

	switch key.String() {
	case "esc", "q", "backspace":
		m.view = viewList
	case "e":
		return m.startForm(p.Name, p)
	case "d":
		m.view = viewConfirmDelete
	}
	return m, nil
}

func (m Model) updateConfirm(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	p, ok := m.selected()
	if !ok {
		m.view = viewList
		return m, nil
	}

	switch key.String() {
	case "y", "Y":
		_, err := m.reg.Delete(m.ctx, p.Name)
		m.refresh()
		m.view = viewList
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.setOK(fmt.Sprintf("Project %q deleted.", p.Name))
	case "n", "N", "esc":
		m.view = viewDetail
	}
	return m, nil
}

func (m Model) updateForm(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		m.view = viewList
		m.clearMessage()
		return m, nil
	case tea.KeyEnter:
		return m.submitField()
	}

	var cmd tea.Cmd
	m.inputs[m.field], cmd = m.inputs[m.field].Update(key)
	return m, cmd
}

// submitField checks the current answer and moves to the next prompt, or
// sends the whole form once the last prompt is answered.
func (m Model) submitField() (tea.Model, tea.Cmd) {
	value := m.inputs[m.field].Value()

	var err error
	switch m.field {
	case fieldName:
		if strings.TrimSpace(value) == "" {
			err = fmt.Errorf("%w: project name cannot be empty", project.ErrInvalidInput)
		}
	case fieldCount:
		_, err = project.ParseSchemaCount(value)
	case fieldTarget:
		if strings.TrimSpace(value) == "" {
			err = fmt.Errorf("%w: target schema cannot be empty", project.ErrInvalidInput)
		}
	}
	if err != nil {
		m.setError(err)
		return m, nil
	}

	m.clearMessage()
	if m.field < numFields-1 {
		cmd := m.focus(m.field + 1)
		return m, cmd
	}
	return m.save()
}

func (m Model) save() (tea.Model, tea.Cmd) {
	in, err := project.ParseInput(
		m.inputs[fieldName].Value(),
		m.inputs[fieldCount].Value(),
		m.inputs[fieldTarget].Value(),
	)
	if err != nil {
		m.setError(err)
		cmd := m.focus(fieldName)
		return m, cmd
	}

	var verb string
	if m.editing == "" {
		_, err = m.reg.Create(m.ctx, in.Name, in.SourceSchemaCount, in.TargetSchema)
		verb = "created"
	} else {
		_, err = m.reg.Update(m.ctx, m.editing, in.Project())
		verb = "updated"
	}

	switch {
	case errors.Is(err, project.ErrDuplicateName), errors.Is(err, project.ErrInvalidInput):
		// Re-prompt from the name; the other answers are kept.
		m.setError(err)
		cmd := m.focus(fieldName)
		return m, cmd
	case errors.Is(err, project.ErrNotFound):
		m.refresh()
		m.view = viewList
		m.setError(err)
		return m, nil
	case err != nil:
		m.refresh()
		m.view = viewList
		m.setError(fmt.Errorf("project %q %s but not saved to disk: %w", in.Name, verb, err))
		return m, nil
	}

	m.refresh()
	m.selectName(in.Name)
	m.view = viewList
	m.setOK(fmt.Sprintf("Project %q %s.", in.Name, verb))
	return m, nil
}

func (m Model) startForm(editing string, p project.Project) (tea.Model, tea.Cmd) {
	m.view = viewForm
	m.editing = editing
	m.clearMessage()

	values := [numFields]string{}
	if editing != "" {
		values = [numFields]string{p.Name, fmt.Sprint(p.SourceSchemaCount), p.TargetSchema}
	}
	for i := range m.inputs {
		m.inputs[i].SetValue(values[i])
		m.inputs[i].CursorEnd()
	}
	cmd := m.focus(fieldName)
	return m, cmd
}

func (m *Model) focus(field int) tea.Cmd {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.field = field
	return m.inputs[field].Focus()
}

func (m *Model) refresh() {
	m.projects = m.reg.List(m.ctx)
	if m.cursor >= len(m.projects) {
		m.cursor = max(len(m.projects)-1, 0)
	}
}

func (m *Model) selectName(name string) {
	for i, p := range m.projects {
		if p.Name == name {
			m.cursor = i
			return
		}
	}
}

func (m Model) selected() (project.Project, bool) {
	if m.cursor < 0 || m.cursor >= len(m.projects) {
		return project.Project{}, false
	}
	return m.projects[m.cursor], true
}

func (m *Model) setOK(msg string) {
	m.message, m.isError = msg, false
}

func (m *Model) setError(err error) {
	m.message, m.isError = err.Error(), true
}

func (m *Model) clearMessage() {
	m.message, m.isError = "", false
}
