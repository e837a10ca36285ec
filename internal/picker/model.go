// Package picker implements the interactive tag picker: a text input over
// the queue's tags, narrowed as the user types.
package picker

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/runger/tally/internal/storage"
	"github.com/runger/tally/internal/suggest"
)

// pickerState represents the current state of the picker's state machine.
type pickerState int

const (
	stateIdle      pickerState = iota // Initial state before first load
	stateLoading                      // Snapshot load in progress
	stateLoaded                       // Suggestions available (len > 0)
	stateEmpty                        // Nothing matches the current input
	stateError                        // Load failed
	stateCancelled                    // User cancelled (Esc / Ctrl+C)
)

// loadDoneMsg is sent when an async Source.GlobalTags call completes.
type loadDoneMsg struct {
	requestID uint64
	stats     []storage.TagStat
	err       error
}

// initMsg is sent by Init() to trigger the first load via Update(),
// ensuring state mutations are visible to the Bubble Tea runtime.
type initMsg struct{}

// Options configures a picker session.
type Options struct {
	QueueID   int64
	QueueName string
	// Limit caps the number of rows shown. Zero shows as many as fit.
	Limit int
	// Initial pre-fills the input.
	Initial string
}

// Model is the Bubble Tea model for the tag picker TUI.
type Model struct {
	state     pickerState
	opts      Options
	source    Source
	filter    *suggest.Filter
	items     []storage.TagStat
	selection int // Index into items; -1 when empty
	input     textinput.Model
	err       error

	requestID   uint64 // Monotonic counter for stale detection
	cancelFetch context.CancelFunc

	width  int
	height int

	result   string
	accepted bool
}

// NewModel creates a picker over the tags of opts.QueueID.
func NewModel(source Source, opts Options) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.PromptStyle = queryStyle
	input.Placeholder = "tag"
	input.SetValue(opts.Initial)
	input.CursorEnd()
	input.Focus()

	return Model{
		state:     stateIdle,
		opts:      opts,
		source:    source,
		selection: -1,
		input:     input,
	}
}

// Result returns the chosen tag name and true, or "" and false when the
// picker was cancelled.
func (m Model) Result() (string, bool) {
	return m.result, m.accepted
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return initMsg{} },
		textinput.Blink,
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadDoneMsg:
		return m.handleLoadDone(msg), nil

	case initMsg:
		return m, m.startLoad()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.state = stateCancelled
		m.cancelInflight()
		return m, tea.Quit

	case tea.KeyEnter:
		var name string
		if m.selection >= 0 && m.selection < len(m.items) {
			name = m.items[m.selection].Tag.Name
		} else {
			name = storage.NormalizeTagName(m.input.Value())
		}
		if name == "" {
			return m, nil
		}
		m.result = name
		m.accepted = true
		m.cancelInflight()
		return m, tea.Quit

	case tea.KeyUp:
		if m.selection > 0 {
			m.selection--
		}
		return m, nil

	case tea.KeyDown:
		if m.selection < len(m.items)-1 {
			m.selection++
		}
		return m, nil

	case tea.KeyTab:
		if m.selection >= 0 && m.selection < len(m.items) {
			m.input.SetValue(m.items[m.selection].Tag.Name)
			m.input.CursorEnd()
			m.applyFilter()
		}
		return m, nil

	case tea.KeyCtrlR:
		return m, m.startLoad()
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.applyFilter()
	}
	return m, cmd
}

func (m Model) handleLoadDone(msg loadDoneMsg) Model {
	if msg.requestID != m.requestID {
		return m
	}
	m.cancelFetch = nil

	if msg.err != nil {
		m.state = stateError
		m.err = msg.err
		m.items = nil
		m.selection = -1
		return m
	}

	m.err = nil
	m.filter = suggest.NewFilter(msg.stats)
	m.applyFilter()
	return m
}

// applyFilter narrows the snapshot to the current input.
func (m *Model) applyFilter() {
	if m.filter == nil {
		return
	}

	// An empty input is the empty query, which suggests every tag.
	m.items = suggest.Limit(m.filter.Update(m.input.Value()), m.rowLimit())

	if len(m.items) == 0 {
		m.state = stateEmpty
	} else {
		m.state = stateLoaded
	}
	m.clampSelection()
}

// startLoad cancels any in-flight load, increments requestID, and returns
// a tea.Cmd that reads the snapshot from the source.
func (m *Model) startLoad() tea.Cmd {
	m.cancelInflight()
	m.requestID++
	m.state = stateLoading

	reqID := m.requestID
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelFetch = cancel

	src := m.source
	queueID := m.opts.QueueID
	return func() tea.Msg {
		stats, err := src.GlobalTags(ctx, queueID)
		return loadDoneMsg{requestID: reqID, stats: stats, err: err}
	}
}

func (m *Model) cancelInflight() {
	if m.cancelFetch != nil {
		m.cancelFetch()
		m.cancelFetch = nil
	}
}

func (m *Model) clampSelection() {
	if len(m.items) == 0 {
		m.selection = -1
		return
	}
	if m.selection < 0 {
		m.selection = 0
	}
	if m.selection >= len(m.items) {
		m.selection = len(m.items) - 1
	}
}

// rowLimit is the smaller of the configured limit and the rows that fit.
func (m Model) rowLimit() int {
	h := m.listHeight()
	if m.opts.Limit > 0 && m.opts.Limit < h {
		return m.opts.Limit
	}
	return h
}

// listHeight returns the number of visible list rows (terminal height minus
// header, input and footer).
func (m Model) listHeight() int {
	const chrome = 3
	h := m.height - chrome
	if h < 1 {
		h = 20 // Sensible default before first WindowSizeMsg
	}
	return h
}

// --- View rendering ---

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	queryStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.viewHeader())
	b.WriteRune('\n')
	b.WriteString(m.viewContent())
	b.WriteRune('\n')
	b.WriteString(m.input.View())
	b.WriteRune('\n')
	b.WriteString(dimStyle.Render("enter select · tab complete · esc cancel"))

	return b.String()
}

func (m Model) viewHeader() string {
	name := m.opts.QueueName
	if name == "" {
		name = fmt.Sprintf("queue %d", m.opts.QueueID)
	}
	return headerStyle.Render(" Tags in " + SanitizeName(name) + " ")
}

func (m Model) viewContent() string {
	switch m.state {
	case stateIdle, stateLoading:
		return dimStyle.Render("Loading...")

	case stateEmpty:
		if typed := storage.NormalizeTagName(m.input.Value()); typed != "" {
			return dimStyle.Render(fmt.Sprintf("No matches, enter creates %q", typed))
		}
		return dimStyle.Render("No tags yet")

	case stateError:
		msg := "Error"
		if m.err != nil {
			msg = fmt.Sprintf("Error: %s", m.err)
		}
		return errorStyle.Render(msg)

	case stateCancelled:
		return dimStyle.Render("Cancelled")

	case stateLoaded:
		return m.viewList()

	default:
		return ""
	}
}

func (m Model) viewList() string {
	width := m.width - 2
	if width < 8 {
		width = 78
	}

	rows := make([]string, 0, len(m.items))
	for i, stat := range m.items {
		row := Row(SanitizeName(stat.Tag.Name), stat.Count, width)
		if i == m.selection {
			rows = append(rows, selectedStyle.Render("> "+row))
		} else {
			rows = append(rows, normalStyle.Render("  "+row))
		}
	}
	return strings.Join(rows, "\n")
}
