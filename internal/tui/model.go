// Package tui provides the interactive terminal chat for lore. A single
// question is in flight at a time: submitting shows a spinner, and the
// answer with its citations is appended to a scrollable transcript.
package tui

import (
	"context"
	"errors"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/lorebot/lore/internal/bot"
	"github.com/lorebot/lore/internal/query"
)

// State is the TUI state machine.
type State int

// States.
const (
	StateInput    State = iota // awaiting user input
	StateThinking              // question in flight
)

// maxMessages bounds the transcript.
const maxMessages = 100

// Message roles.
const (
	roleUser      = "user"
	roleAssistant = "assistant"
	roleError     = "error"
)

// Layout constants for viewport height calculation.
const (
	separatorLines = 2
	promptLines    = 1
	minViewport    = 3
)

// Asker is the query entry point the TUI drives.
type Asker interface {
	AskWithRetry(ctx context.Context, question string) (*query.Result, error)
}

// Message is one transcript entry.
type Message struct {
	Role string
	Text string
}

type answerMsg struct{ res *query.Result }
type answerErrMsg struct{ err error }

// Styles holds the lipgloss styles for the transcript.
type Styles struct {
	Prompt    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Error     lipgloss.Style
	Separator lipgloss.Style
}

// DefaultStyles returns the default color scheme.
func DefaultStyles() Styles {
	return Styles{
		Prompt:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		User:      lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		Assistant: lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Separator: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// Model is the Bubble Tea model for the chat interface.
type Model struct {
	engine Asker
	ctx    context.Context

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	state    State
	messages []Message

	width  int
	height int

	styles   Styles
	markdown *markdownRenderer
}

// New creates a chat model. ctx must be the context passed to
// tea.WithContext so cancellation behaves consistently.
func New(ctx context.Context, engine Asker) (*Model, error) {
	if engine == nil {
		return nil, errors.New("tui.New: engine is required")
	}
	if ctx == nil {
		return nil, errors.New("tui.New: ctx is required")
	}

	ta := textarea.New()
	ta.Placeholder = "Ask about the docs or the code..."
	ta.SetHeight(1)
	ta.SetWidth(120)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(20))
	vp.MouseWheelEnabled = true
	vp.SoftWrap = true
	vp.KeyMap = viewport.KeyMap{}

	return &Model{
		engine:   engine,
		ctx:      ctx,
		input:    ta,
		viewport: vp,
		spinner:  sp,
		styles:   DefaultStyles(),
		markdown: newMarkdownRenderer(80),
		width:    80,
	}, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.input.Focus())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		fixedHeight := separatorLines + m.input.Height() + promptLines
		m.viewport.SetWidth(msg.Width)
		m.viewport.SetHeight(max(msg.Height-fixedHeight, minViewport))
		m.input.SetWidth(msg.Width - 4)
		m.markdown.UpdateWidth(msg.Width)

		m.rebuildViewport()
		return m, nil

	case tea.MouseWheelMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state == StateThinking {
			m.rebuildViewport()
		}
		return m, cmd

	case answerMsg:
		m.state = StateInput
		m.addMessage(Message{Role: roleAssistant, Text: bot.FormatAnswer(msg.res)})
		m.rebuildViewport()
		m.viewport.GotoBottom()
		return m, m.input.Focus()

	case answerErrMsg:
		m.state = StateInput
		m.addMessage(Message{Role: roleError, Text: msg.err.Error()})
		m.rebuildViewport()
		m.viewport.GotoBottom()
		return m, m.input.Focus()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "enter":
		if m.state == StateThinking {
			return m, nil
		}
		question := strings.TrimSpace(m.input.Value())
		if question == "" {
			return m, nil
		}
		m.input.Reset()
		m.addMessage(Message{Role: roleUser, Text: question})
		m.state = StateThinking
		m.rebuildViewport()
		m.viewport.GotoBottom()
		return m, tea.Batch(m.spinner.Tick, m.askCmd(question))

	case "pgup":
		m.viewport.PageUp()
		return m, nil

	case "pgdown":
		m.viewport.PageDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// askCmd runs the question off the event loop and reports back as a
// message. The retry policy lives in the engine.
func (m *Model) askCmd(question string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.engine.AskWithRetry(m.ctx, question)
		if err != nil {
			return answerErrMsg{err: err}
		}
		return answerMsg{res: res}
	}
}

// View implements tea.Model.
func (m *Model) View() tea.View {
	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderSeparator())
	b.WriteString("\n")
	b.WriteString(m.styles.Prompt.Render("> "))
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.renderSeparator())

	v := tea.NewView(b.String())
	v.AltScreen = true
	v.MouseMode = tea.MouseModeCellMotion
	return v
}

func (m *Model) renderSeparator() string {
	return m.styles.Separator.Render(strings.Repeat("─", max(m.width, 1)))
}

func (m *Model) addMessage(msg Message) {
	m.messages = append(m.messages, msg)
	if len(m.messages) > maxMessages {
		m.messages = m.messages[len(m.messages)-maxMessages:]
	}
}

// rebuildViewport reconstructs the transcript from messages and state.
func (m *Model) rebuildViewport() {
	var b strings.Builder
	for _, msg := range m.messages {
		switch msg.Role {
		case roleUser:
			b.WriteString(m.styles.User.Render("You> "))
			b.WriteString(msg.Text)
		case roleAssistant:
			b.WriteString(m.styles.Assistant.Render("lore> "))
			b.WriteString(m.markdown.Render(msg.Text))
		case roleError:
			b.WriteString(m.styles.Error.Render("Error: " + msg.Text))
		}
		b.WriteString("\n\n")
	}

	if m.state == StateThinking {
		b.WriteString(m.spinner.View())
		b.WriteString(" Searching the knowledge base...\n")
	}

	m.viewport.SetContent(b.String())
}

// Run starts the chat interface and blocks until the user exits.
func Run(ctx context.Context, engine Asker) error {
	model, err := New(ctx, engine)
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
