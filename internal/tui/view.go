package tui

import (
	"fmt"
	"strings"
)

func (m Model) View() string {
	if m.quit {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Project Registry"))
	b.WriteString("\n\n")

	switch m.view {
	case viewForm:
		m.viewForm(&b)
	case viewDetail, viewConfirmDelete:
		m.viewDetail(&b)
	default:
		m.viewList(&b)
	}

	if m.message != "" {
		b.WriteString("\n")
		if m.isError {
			b.WriteString(errStyle.Render(m.message))
		} else {
			b.WriteString(okStyle.Render(m.message))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help()))
	b.WriteString("\n")
	return b.String()
}

func (m Model) viewList(b *strings.Builder) {
	b.WriteString(sectionStyle.Render("Projects"))
	b.WriteString("\n")
	if len(m.projects) == 0 {
		b.WriteString(dimStyle.Render("  No projects yet."))
		b.WriteString("\n")
		return
	}
	for i, p := range m.projects {
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + p.String()))
		} else {
			b.WriteString("  " + p.String())
		}
		b.WriteString("\n")
	}
}

func (m Model) viewForm(b *strings.Builder) {
	title := "Create a new project"
	if m.editing != "" {
		title = fmt.Sprintf("Edit project %q", m.editing)
	}
	b.WriteString(sectionStyle.Render(title))
	b.WriteString("\n\n")

	for i := 0; i <= m.field; i++ {
		b.WriteString(prompts[i])
		b.WriteString("\n")
		if i == m.field {
			b.WriteString(m.inputs[i].View())
		} else {
			b.WriteString(dimStyle.Render("  " + m.inputs[i].Value()))
		}
		b.WriteString("\n")
	}
}

func (m Model) viewDetail(b *strings.Builder) {
	p, ok := m.selected()
	if !ok {
		return
	}
	b.WriteString(sectionStyle.Render(p.Name))
	b.WriteString("\n")
	fmt.Fprintf(b, "  Source schemas: %d\n", p.SourceSchemaCount)
	fmt.Fprintf(b, "  Target schema:  %s\n", p.TargetSchema)

	if m.view == viewConfirmDelete {
		b.WriteString("\n")
		b.WriteString(errStyle.Render(fmt.Sprintf("Delete %q? (y/n)", p.Name)))
		b.WriteString("\n")
	}
}

func (m Model) help() string {
	switch m.view {
	case viewForm:
		return "enter: next • esc: cancel • ctrl+c: quit"
	case viewDetail:
		return "e: edit • d: delete • esc: back"
	case viewConfirmDelete:
		return "y: delete • n: keep"
	default:
		return "↑/↓: select • enter: details • n: new project • q: quit"
	}
}
