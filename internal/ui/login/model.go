// Package login is the console sign-in form.
package login

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/task-tracker/internal/theme"
)

// SubmitMsg carries the entered credentials.
type SubmitMsg struct {
	Email    string
	Password string
}

// CancelMsg is sent when the user aborts sign-in.
type CancelMsg struct{}

type credentials struct {
	email    string
	password string
}

// Model is the sign-in form.
type Model struct {
	form   *huh.Form
	creds  *credentials
	err    string
	width  int
	height int
}

// New returns an empty sign-in form.
func New(width, height int) Model {
	return Model{creds: &credentials{}, width: width, height: height}
}

// Start resets the form, keeping the last email, and shows errMsg above it.
func (m *Model) Start(errMsg string) tea.Cmd {
	m.err = errMsg
	m.creds.password = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&m.creds.email),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.creds.password),
		),
	).WithWidth(min(max(m.width-4, 30), 60))
	return m.form.Init()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		out := SubmitMsg{Email: strings.TrimSpace(m.creds.email), Password: m.creds.password}
		return m, func() tea.Msg { return out }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the form centred in the content area.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Sign in")

	parts := []string{title}
	if m.err != "" {
		parts = append(parts, theme.OverdueStyle.Render(m.err), "")
	}
	if m.form != nil {
		parts = append(parts, m.form.View())
	} else {
		parts = append(parts, theme.HelpStyle.Render("Signing in..."))
	}

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		theme.DetailPanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...)))
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
