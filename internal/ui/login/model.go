package login

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/hvu/crmdesk/internal/api"
	"github.com/hvu/crmdesk/internal/theme"
)

// loginTimeout bounds the credential exchange with the backend.
const loginTimeout = 15 * time.Second

// Authenticator is the subset of the CRM client the login view needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*api.LoginResult, error)
}

// ResultMsg carries the outcome of a login attempt. On success the app
// stores the session and switches to the feed; on failure it is routed
// back here so the form can show the error.
type ResultMsg struct {
	Result *api.LoginResult
	Err    error
}

// Model is the login form view. The field values live behind pointers
// because Bubble Tea copies the model on every Update while huh keeps
// writing through the pointers it was given.
type Model struct {
	auth Authenticator

	form     *huh.Form
	email    *string
	password *string

	submitting bool
	spinner    spinner.Model
	errMsg     string

	width, height int
}

// New creates a new login view model.
func New(auth Authenticator, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		auth:     auth,
		email:    new(string),
		password: new(string),
		spinner:  sp,
		width:    width,
		height:   height,
	}
	m.form = m.buildForm()
	return m
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// buildForm constructs the credential form. Rebuilt after a failed
// attempt so the user can retry; the password is never pre-filled.
func (m *Model) buildForm() *huh.Form {
	*m.password = ""

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(m.email).
				Validate(validateRequired("Email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(m.password).
				Validate(validateRequired("Password")),
		),
	).WithWidth(m.formWidth())
}

// Update handles messages for the login view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if m.submitting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case ResultMsg:
		// Successful results are consumed by the app; only failures
		// come back here.
		m.submitting = false
		if msg.Err != nil {
			m.errMsg = msg.Err.Error()
		}
		m.form = m.buildForm()
		return m, m.form.Init()
	}

	if m.submitting {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.submitting = true
		m.errMsg = ""
		return m, tea.Batch(m.spinner.Tick, m.submit())
	}
	if m.form.State == huh.StateAborted {
		m.form = m.buildForm()
		return m, m.form.Init()
	}

	return m, cmd
}

// submit returns a command that exchanges credentials for a session.
func (m Model) submit() tea.Cmd {
	auth := m.auth
	email := *m.email
	password := *m.password
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
		defer cancel()

		result, err := auth.Login(ctx, email, password)
		return ResultMsg{Result: result, Err: err}
	}
}

// View renders the login view.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Sign in to CRM Desk"))
	b.WriteString("\n\n")

	if m.submitting {
		b.WriteString(fmt.Sprintf("%s Signing in...", m.spinner.View()))
	} else {
		if m.errMsg != "" {
			b.WriteString(theme.NoticeStyle.Render(m.errMsg))
			b.WriteString("\n\n")
		}
		b.WriteString(m.form.View())
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(b.String())
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
