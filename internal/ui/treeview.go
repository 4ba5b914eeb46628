package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"surveyor/internal/event"
	"surveyor/internal/tree"
	"surveyor/internal/workspace"
)

// ExternalEditMsg tells the view that the model file changed on disk. The
// watcher sends it with Program.Send so the reload runs on the UI loop.
type ExternalEditMsg struct{}

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Expand   key.Binding
	Collapse key.Binding
	Toggle   key.Binding
	Complete key.Binding
	Reload   key.Binding
	Save     key.Binding
	Open     key.Binding
	Back     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Expand:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "expand")),
		Collapse: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "collapse")),
		Toggle:   key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "toggle")),
		Complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Save:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		Open:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "details")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) short() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Expand, k.Collapse, k.Complete, k.Reload, k.Save, k.Open, k.Quit}
}

// row is one visible line of the flattened tree.
type row struct {
	id    tree.NodeID
	depth int
	// guides[i] is true when the ancestor at depth i+1 has siblings below
	guides []bool
	last   bool
	item   tree.Item
}

// TreeModel is the Bubble Tea display adapter. It is the only subscriber to
// the change bus in the TUI: scoped changes re-flatten the node's subtree,
// unscoped ones rebuild from the roots.
type TreeModel struct {
	ctx context.Context
	ws  *workspace.Workspace

	rows     []row
	expanded map[tree.NodeID]bool
	cursor   int

	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	width    int
	height   int

	details  bool
	status   string
	failed   bool
	watching string

	subs []*event.Subscription
}

// NewTreeModel builds the view over ws. watching is shown in the header when
// a file watcher feeds ExternalEditMsg.
func NewTreeModel(ctx context.Context, ws *workspace.Workspace, watching string) *TreeModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	m := &TreeModel{
		ctx:      ctx,
		ws:       ws,
		expanded: make(map[tree.NodeID]bool),
		viewport: viewport.New(80, 20),
		spinner:  sp,
		help:     help.New(),
		keys:     defaultKeys(),
		width:    80,
		height:   24,
		watching: watching,
	}
	m.subs = append(m.subs,
		ws.Changes.Subscribe(m.onChange),
		ws.Reloads.Subscribe(m.onReload),
	)
	m.rebuild()
	return m
}

// Close unsubscribes from the workspace buses.
func (m *TreeModel) Close() {
	for _, s := range m.subs {
		s.Unsubscribe()
	}
	m.subs = nil
}

func (m *TreeModel) Init() tea.Cmd {
	if m.watching == "" {
		return nil
	}
	return m.spinner.Tick
}

func (m *TreeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.height = msg.Height
			m.viewport.Width = msg.Width
			m.viewport.Height = max(msg.Height-4, 3)
			m.help.Width = msg.Width
			m.render()
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case ExternalEditMsg:
		if _, err := m.ws.HandleExternalEdit(m.ctx); err != nil {
			m.setError("reload failed: %v", err)
		}
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *TreeModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.details {
		switch {
		case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Open):
			m.details = false
			m.render()
		case key.Matches(msg, m.keys.Quit):
			return tea.Quit
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return cmd
		}
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.Expand):
		m.setExpanded(true)
	case key.Matches(msg, m.keys.Collapse):
		m.collapseOrParent()
	case key.Matches(msg, m.keys.Toggle):
		if r, ok := m.selected(); ok {
			m.setExpanded(!m.isExpanded(r.id, r.item))
		}
	case key.Matches(msg, m.keys.Complete):
		m.complete()
	case key.Matches(msg, m.keys.Reload):
		if err := m.ws.Reload(m.ctx); err != nil {
			m.setError("reload failed: %v", err)
		}
	case key.Matches(msg, m.keys.Save):
		if err := m.ws.Shutdown(m.ctx); err != nil {
			m.setError("save failed: %v", err)
		} else {
			m.setStatus("saved %s", m.ws.Service.Path())
		}
	case key.Matches(msg, m.keys.Open):
		m.openDetails()
	}
	return nil
}

func (m *TreeModel) onChange(c tree.Change) {
	if c.Unscoped() {
		m.rebuild()
		return
	}
	m.reflatten(c.Node)
}

func (m *TreeModel) onReload(e workspace.ReloadEvent) {
	if e.Err != nil {
		m.setError("reload failed: %v", e.Err)
		return
	}
	origin := "reloaded"
	if e.External {
		origin = "model changed on disk, reloaded"
	}
	m.setStatus("%s (%d configurations)", origin, e.Configurations)
}

func (m *TreeModel) setStatus(format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.failed = false
}

func (m *TreeModel) setError(format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.failed = true
}

func (m *TreeModel) selected() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

func (m *TreeModel) isExpanded(id tree.NodeID, item tree.Item) bool {
	if v, ok := m.expanded[id]; ok {
		return v
	}
	return item.Collapse == tree.CollapseExpanded
}

// rebuild flattens the whole tree from the roots. Expansion state of nodes
// that no longer exist is dropped.
func (m *TreeModel) rebuild() {
	var cur tree.NodeID
	if r, ok := m.selected(); ok {
		cur = r.id
	}
	m.rows = m.rows[:0]
	roots := m.ws.Tree.Roots()
	for i, id := range roots {
		m.flatten(id, 0, nil, i == len(roots)-1, &m.rows)
	}
	for id := range m.expanded {
		if m.ws.Tree.State(id) == tree.StateDeleted {
			delete(m.expanded, id)
		}
	}
	m.restoreCursor(cur)
	m.render()
}

// reflatten replaces the rows of id's subtree; a node that is not visible
// needs no work.
func (m *TreeModel) reflatten(id tree.NodeID) {
	idx := -1
	for i, r := range m.rows {
		if r.id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	head := m.rows[idx]
	end := idx + 1
	for end < len(m.rows) && m.rows[end].depth > head.depth {
		end++
	}
	var sub []row
	m.flatten(id, head.depth, head.guides, head.last, &sub)

	var cur tree.NodeID
	if r, ok := m.selected(); ok {
		cur = r.id
	}
	rows := make([]row, 0, len(m.rows)-(end-idx)+len(sub))
	rows = append(rows, m.rows[:idx]...)
	rows = append(rows, sub...)
	rows = append(rows, m.rows[end:]...)
	m.rows = rows
	m.restoreCursor(cur)
	m.render()
}

func (m *TreeModel) flatten(id tree.NodeID, depth int, guides []bool, last bool, out *[]row) {
	item := m.ws.Tree.Item(id)
	*out = append(*out, row{id: id, depth: depth, guides: guides, last: last, item: item})
	if !m.isExpanded(id, item) {
		return
	}
	kids := m.ws.Tree.Children(id)
	next := append(append([]bool(nil), guides...), !last)
	for i, child := range kids {
		m.flatten(child, depth+1, next, i == len(kids)-1, out)
	}
}

func (m *TreeModel) restoreCursor(id tree.NodeID) {
	for i, r := range m.rows {
		if r.id == id {
			m.cursor = i
			return
		}
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *TreeModel) move(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.rows)-1)
	m.render()
}

func (m *TreeModel) setExpanded(open bool) {
	r, ok := m.selected()
	if !ok {
		return
	}
	if open && r.item.Collapse == tree.CollapseNone {
		return
	}
	m.expanded[r.id] = open
	m.reflatten(r.id)
}

func (m *TreeModel) collapseOrParent() {
	r, ok := m.selected()
	if !ok {
		return
	}
	if r.item.Collapse != tree.CollapseNone && m.isExpanded(r.id, r.item) {
		m.setExpanded(false)
		return
	}
	parent := m.ws.Tree.Parent(r.id)
	for i, pr := range m.rows {
		if pr.id == parent {
			m.cursor = i
			m.render()
			return
		}
	}
}

func (m *TreeModel) complete() {
	r, ok := m.selected()
	if !ok {
		return
	}
	if m.ws.Tree.Kind(r.id) != tree.KindHint {
		m.setError("select an issue to mark it complete")
		m.render()
		return
	}
	if err := m.ws.MarkComplete(r.id); err != nil {
		m.setError("%v", err)
		m.render()
		return
	}
	m.setStatus("marked complete: %s", r.item.Label)
	m.render()
}

func (m *TreeModel) openDetails() {
	r, ok := m.selected()
	if !ok {
		return
	}
	tgt, err := m.ws.Tree.Open(r.id)
	if err != nil {
		m.setError("%v", err)
		m.render()
		return
	}
	var b strings.Builder
	if err := RenderDetails(&b, tgt); err != nil {
		m.setError("%v", err)
		return
	}
	m.details = true
	m.viewport.SetContent(b.String())
	m.viewport.GotoTop()
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	guideStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	statusFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	completeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	configStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
)

// render refreshes the viewport content and keeps the cursor visible.
func (m *TreeModel) render() {
	if m.details {
		return
	}
	var b strings.Builder
	if len(m.rows) == 0 {
		b.WriteString(guideStyle.Render("no configurations; use `surveyor load` to add one"))
	}
	for i, r := range m.rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderRow(r, i == m.cursor))
	}
	m.viewport.SetContent(b.String())

	if m.cursor < m.viewport.YOffset {
		m.viewport.SetYOffset(m.cursor)
	} else if bottom := m.viewport.YOffset + m.viewport.Height - 1; m.cursor > bottom {
		m.viewport.SetYOffset(m.cursor - m.viewport.Height + 1)
	}
}

func (m *TreeModel) renderRow(r row, selected bool) string {
	var prefix strings.Builder
	for _, more := range r.guides[min(1, len(r.guides)):] {
		if more {
			prefix.WriteString("│   ")
		} else {
			prefix.WriteString("    ")
		}
	}
	if r.depth > 0 {
		if r.last {
			prefix.WriteString("└── ")
		} else {
			prefix.WriteString("├── ")
		}
	}

	indicator := " "
	switch {
	case r.item.Collapse == tree.CollapseNone:
	case m.isExpanded(r.id, r.item):
		indicator = "▾"
	default:
		indicator = "▸"
	}

	width := m.width - len([]rune(prefix.String())) - 4
	label := truncate(r.item.Label, width)
	line := indicator + " " + Glyph(r.item) + " " + label
	if selected {
		line = cursorStyle.Render(line)
	} else {
		switch r.item.Context {
		case tree.ContextIssueComplete:
			line = completeStyle.Render(line)
		case tree.ContextError:
			line = errorStyle.Render(line)
		case tree.ContextConfiguration:
			line = configStyle.Render(line)
		}
	}
	return guideStyle.Render(prefix.String()) + line
}

func (m *TreeModel) View() string {
	var b strings.Builder
	header := "surveyor"
	if m.watching != "" {
		header = fmt.Sprintf("%s surveyor · watching %s", m.spinner.View(), m.watching)
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	switch {
	case m.status == "":
	case m.failed:
		b.WriteString(statusFailed.Render(m.status))
	default:
		b.WriteString(statusOK.Render(m.status))
	}
	b.WriteString("\n")
	if m.details {
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.Back, m.keys.Quit}))
	} else {
		b.WriteString(m.help.ShortHelpView(m.keys.short()))
	}
	return b.String()
}
