package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/stefanpenner/goalgraph/pkg/engine"
	"github.com/stefanpenner/goalgraph/pkg/graph"
	"github.com/stefanpenner/goalgraph/pkg/validate"
)

// FileChangedMsg is sent when the file watcher detects changes.
type FileChangedMsg struct{}

// SyncDoneMsg is sent when git sync completes.
type SyncDoneMsg struct {
	Err error
}

// Options wires the TUI to its surroundings. Every field is optional.
type Options struct {
	DataDir string
	// Reload re-reads the backing storage after an external change.
	Reload func() error
	Sync   func(ctx context.Context) error
	Logger *slog.Logger
}

type inputKind int

const (
	inputNone inputKind = iota
	inputAddChild
	inputAddRoot
	inputDeadline
	inputLink
)

// Model is the Bubble Tea model for the goal graph browser.
type Model struct {
	coord         *engine.Coordinator
	opts          Options
	keys          KeyMap
	width         int
	height        int
	snapshot      *Snapshot
	visibleItems  []TreeItem
	expandedState map[string]bool
	cursor        int
	focusedPane   int // 0 = tree, 1 = details
	detailScroll  int

	// Modal state
	showHelpModal     bool
	showDeleteConfirm bool
	deleteTarget      graph.GoalID

	// Single-line prompts (add, deadline, link)
	input       inputKind
	textInput   textinput.Model
	inputTarget graph.GoalID

	// Description editor
	isEditing  bool
	editor     textarea.Model
	editTarget graph.GoalID

	// Family filter; nil shows the whole graph
	family   graph.IDSet
	familyOf graph.GoalID

	statusMsg      string
	statusRejected bool
	statusTimeout  time.Time

	// Cached glamour renderer (expensive to create)
	glamourRenderer *glamour.TermRenderer
	glamourWidth    int

	allExpanded bool
	now         func() time.Time
}

// NewModel creates a new TUI model over c.
func NewModel(c *engine.Coordinator, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ti := textinput.New()
	ti.CharLimit = 256

	ed := textarea.New()
	ed.ShowLineNumbers = false

	return Model{
		coord:         c,
		opts:          opts,
		keys:          DefaultKeyMap(),
		expandedState: make(map[string]bool),
		textInput:     ti,
		editor:        ed,
		now:           time.Now,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.getGlamourRenderer(m.detailWidth() - 2)
		if m.isEditing {
			m.editor.SetWidth(m.detailWidth())
			m.editor.SetHeight(max(3, msg.Height-10))
		}
		m.reload()
		return m, tea.ClearScreen

	case FileChangedMsg:
		if m.opts.Reload != nil {
			if err := m.opts.Reload(); err != nil {
				m.setStatus("Reload failed: " + err.Error())
				return m, nil
			}
		}
		m.reload()
		return m, nil

	case SyncDoneMsg:
		if msg.Err != nil {
			m.setStatus("Sync failed: " + msg.Err.Error())
		} else {
			m.setStatus("Synced successfully")
			m.reload()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	if m.input != inputNone {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	if m.isEditing {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.input != inputNone {
		return m.handleInput(msg)
	}
	if m.isEditing {
		return m.handleEditMode(msg)
	}

	if m.showHelpModal {
		switch msg.String() {
		case "esc", "enter", "?", "q":
			m.showHelpModal = false
		}
		return m, nil
	}

	if m.showDeleteConfirm {
		switch msg.String() {
		case "y", "Y":
			if err := m.coord.Delete(context.Background(), m.deleteTarget); err != nil {
				m.report(err)
			} else {
				m.setStatus(fmt.Sprintf("Deleted #%d", m.deleteTarget))
				m.reload()
			}
			m.showDeleteConfirm = false
		case "n", "N", "esc":
			m.showDeleteConfirm = false
		}
		return m, nil
	}

	item, hasItem := m.selected()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.focusedPane == 1 {
			if m.detailScroll > 0 {
				m.detailScroll--
			}
		} else if m.cursor > 0 {
			m.cursor--
			m.detailScroll = 0
		}

	case key.Matches(msg, m.keys.Down):
		if m.focusedPane == 1 {
			m.detailScroll++
		} else if m.cursor < len(m.visibleItems)-1 {
			m.cursor++
			m.detailScroll = 0
		}

	case key.Matches(msg, m.keys.Right):
		if hasItem && item.HasChildren {
			m.expandedState[item.Key] = true
			m.rebuildVisible()
		}

	case key.Matches(msg, m.keys.Left):
		if hasItem && item.IsExpanded {
			m.expandedState[item.Key] = false
			m.rebuildVisible()
		}

	case key.Matches(msg, m.keys.Enter):
		if hasItem && item.HasChildren {
			m.expandedState[item.Key] = !m.expandedState[item.Key]
			m.rebuildVisible()
		}

	case key.Matches(msg, m.keys.Space):
		if hasItem {
			g := item.Goal.Clone()
			m.apply(m.coord.SetAchieved(context.Background(), g, !g.Achieved), "")
		}

	case key.Matches(msg, m.keys.Color):
		if hasItem {
			g := item.Goal.Clone()
			m.apply(m.coord.SetColor(context.Background(), g, NextColor(g.Color)), "")
		}

	case key.Matches(msg, m.keys.Tab):
		m.focusedPane = (m.focusedPane + 1) % 2

	case key.Matches(msg, m.keys.Edit):
		if hasItem {
			m.enterEditMode(item.Goal)
			return m, textarea.Blink
		}

	case key.Matches(msg, m.keys.AddTop):
		cmd := m.prompt(inputAddRoot, 0, "top-level goal", "")
		return m, cmd

	case key.Matches(msg, m.keys.Add):
		if !hasItem {
			cmd := m.prompt(inputAddRoot, 0, "top-level goal", "")
			return m, cmd
		}
		m.expandedState[item.Key] = true
		m.rebuildVisible()
		cmd := m.prompt(inputAddChild, item.Goal.ID, "sub-goal of "+item.Name(), "")
		return m, cmd

	case key.Matches(msg, m.keys.Deadline):
		if hasItem {
			current := ""
			if item.Goal.Deadline != nil {
				current = item.Goal.Deadline.Local().Format(time.DateOnly)
			}
			cmd := m.prompt(inputDeadline, item.Goal.ID, "YYYY-MM-DD, empty clears", current)
			return m, cmd
		}

	case key.Matches(msg, m.keys.Link):
		if hasItem {
			cmd := m.prompt(inputLink, item.Goal.ID, "parent goal ID", "")
			return m, cmd
		}

	case key.Matches(msg, m.keys.Unlink):
		if hasItem {
			if item.Parent == 0 {
				m.setStatus("Not linked to a parent here")
				break
			}
			err := m.coord.RemoveParentEdge(context.Background(), item.Parent, item.Goal.ID)
			m.apply(err, fmt.Sprintf("Unlinked #%d from #%d", item.Goal.ID, item.Parent))
		}

	case key.Matches(msg, m.keys.Delete):
		if hasItem {
			m.deleteTarget = item.Goal.ID
			m.showDeleteConfirm = true
		}

	case key.Matches(msg, m.keys.Family):
		if m.family != nil {
			m.family = nil
			m.familyOf = 0
			m.rebuildVisible()
			break
		}
		if hasItem {
			m.familyOf = item.Goal.ID
			m.refreshFamily()
			m.rebuildVisible()
		}

	case key.Matches(msg, m.keys.ToggleExpand):
		if m.allExpanded {
			m.expandedState = make(map[string]bool)
		} else {
			m.expandedState = ExpandAll(m.snapshot, m.family)
		}
		m.allExpanded = !m.allExpanded
		m.rebuildVisible()

	case key.Matches(msg, m.keys.Reload):
		if m.opts.Reload != nil {
			if err := m.opts.Reload(); err != nil {
				m.setStatus("Reload failed: " + err.Error())
				break
			}
		}
		m.reload()
		m.setStatus("Reloaded")

	case key.Matches(msg, m.keys.Sync):
		return m, m.doSync()

	case key.Matches(msg, m.keys.Help):
		m.showHelpModal = !m.showHelpModal
	}

	return m, nil
}

func (m *Model) prompt(kind inputKind, target graph.GoalID, placeholder, value string) tea.Cmd {
	m.input = kind
	m.inputTarget = target
	m.textInput.Reset()
	m.textInput.Placeholder = placeholder
	m.textInput.SetValue(value)
	m.textInput.Focus()
	return textinput.Blink
}

func (m Model) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.input = inputNone
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.textInput.Value())
		kind := m.input
		m.input = inputNone
		m.submit(kind, value)
		return m, nil
	}
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *Model) submit(kind inputKind, value string) {
	ctx := context.Background()
	target := m.inputTarget

	switch kind {
	case inputAddRoot, inputAddChild:
		if value == "" {
			return
		}
		g := &graph.Goal{Description: value}
		if err := m.coord.Commit(ctx, g); err != nil {
			m.report(err)
			return
		}
		if kind == inputAddChild {
			if err := m.coord.AddChildEdge(ctx, target, g.ID); err != nil {
				// The new goal would be orphaned; drop it.
				_ = m.coord.Delete(ctx, g.ID)
				m.report(err)
				m.reload()
				return
			}
		}
		m.setStatus(fmt.Sprintf("Created #%d", g.ID))
		m.reload()
		m.moveCursorToGoal(g.ID)

	case inputDeadline:
		deadline, err := ParseDeadline(value, time.Local)
		if err != nil {
			m.setStatus("Error: " + err.Error())
			return
		}
		g, err := m.coord.Goal(ctx, target)
		if err != nil {
			m.report(err)
			return
		}
		m.apply(m.coord.SetDeadline(ctx, g, deadline), "")

	case inputLink:
		n, err := strconv.ParseInt(strings.TrimPrefix(value, "#"), 10, 64)
		if err != nil || n <= 0 {
			m.setStatus("Error: not a goal ID: " + value)
			return
		}
		parent := graph.GoalID(n)
		m.apply(m.coord.AddParentEdge(ctx, parent, target), fmt.Sprintf("Linked #%d under #%d", target, parent))
	}
}

func (m *Model) enterEditMode(g *graph.Goal) {
	m.isEditing = true
	m.editTarget = g.ID
	m.editor.SetValue(g.Description)
	m.editor.SetWidth(m.detailWidth())
	m.editor.SetHeight(max(3, m.height-10))
	m.editor.Focus()
}

func (m Model) handleEditMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.isEditing = false
		m.editor.Blur()
		m.setStatus("Edit cancelled")
		return m, nil
	case tea.KeyEsc, tea.KeyCtrlS:
		ctx := context.Background()
		g, err := m.coord.Goal(ctx, m.editTarget)
		if err != nil {
			m.report(err)
		} else {
			m.apply(m.coord.SetDescription(ctx, g, m.editor.Value()), "Saved")
		}
		if msg.Type == tea.KeyEsc {
			m.isEditing = false
			m.editor.Blur()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

// ParseDeadline reads a date (YYYY-MM-DD, in loc) or an RFC 3339 timestamp.
// An empty string means no deadline.
func ParseDeadline(value string, loc *time.Location) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, value, loc); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("deadline %q: want YYYY-MM-DD or RFC 3339", value)
	}
	return &t, nil
}

// apply reports the outcome of a mutation and reloads on success.
func (m *Model) apply(err error, okMsg string) {
	if err != nil {
		m.report(err)
		return
	}
	if okMsg != "" {
		m.setStatus(okMsg)
	}
	m.reload()
}

// report puts err on the status line. Rejected mutations show their reason.
func (m *Model) report(err error) {
	if reason, ok := validate.ReasonOf(err); ok {
		m.setStatus("Rejected: " + string(reason))
		m.statusRejected = true
		m.opts.Logger.Debug("tui mutation rejected", slog.String("reason", string(reason)))
		return
	}
	if errors.Is(err, graph.ErrNotFound) {
		m.setStatus("Error: no such goal")
		return
	}
	m.setStatus("Error: " + err.Error())
}

func (m Model) selected() (TreeItem, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visibleItems) {
		return TreeItem{}, false
	}
	return m.visibleItems[m.cursor], true
}

func (m *Model) moveCursorToGoal(id graph.GoalID) {
	for i, item := range m.visibleItems {
		if item.Goal.ID == id {
			m.cursor = i
			return
		}
	}
}

func (m *Model) reload() {
	if m.coord == nil {
		return
	}
	snap, err := LoadSnapshot(context.Background(), m.coord)
	if err != nil {
		m.setStatus("Load error: " + err.Error())
		return
	}
	m.snapshot = snap
	m.refreshFamily()
	m.rebuildVisible()
}

func (m *Model) refreshFamily() {
	if m.familyOf == 0 {
		return
	}
	fam, err := m.coord.FamilyOf(context.Background(), m.familyOf)
	if err != nil {
		m.family = nil
		m.familyOf = 0
		return
	}
	m.family = fam
}

func (m *Model) rebuildVisible() {
	var curKey string
	if item, ok := m.selected(); ok {
		curKey = item.Key
	}

	m.visibleItems = FlattenVisibleItems(m.snapshot, m.expandedState, m.family)

	if curKey != "" {
		for i, item := range m.visibleItems {
			if item.Key == curKey {
				m.cursor = i
				break
			}
		}
	}
	if m.cursor >= len(m.visibleItems) {
		m.cursor = len(m.visibleItems) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) detailWidth() int {
	left := max(20, m.width/3)
	return max(20, m.width-left-1)
}

// getGlamourRenderer returns a cached glamour renderer, creating one if needed
// or if the width changed.
func (m *Model) getGlamourRenderer(width int) *glamour.TermRenderer {
	if m.glamourRenderer != nil && m.glamourWidth == width {
		return m.glamourRenderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	m.glamourRenderer = r
	m.glamourWidth = width
	return r
}

func (m *Model) setStatus(msg string) {
	m.statusMsg = msg
	m.statusRejected = false
	m.statusTimeout = m.now().Add(3 * time.Second)
}

func (m Model) doSync() tea.Cmd {
	sync := m.opts.Sync
	if sync == nil {
		return func() tea.Msg {
			return SyncDoneMsg{Err: errors.New("sync is not configured")}
		}
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		return SyncDoneMsg{Err: sync(ctx)}
	}
}
