package ui

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"

	"surveyor/internal/model"
	"surveyor/internal/service"
	"surveyor/internal/tree"
	"surveyor/internal/workspace"
)

func fixtureWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ctx := context.Background()
	ws := workspace.New(workspace.Options{
		Service: service.Options{Path: filepath.Join(t.TempDir(), "model.json")},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err := ws.Start(ctx); err != nil {
		t.Fatal(err)
	}
	c, _, err := ws.LoadConfiguration(ctx, service.Descriptor{Name: "C1"})
	if err != nil {
		t.Fatal(err)
	}
	err = ws.Service.ApplyResults(c.ID, model.Summary{ExecutedTimestamp: "T1", ReportPath: "/out/index.html"}, []*model.Hint{
		{ID: "h1", Title: "Replace JMS", RuleID: "jms-01", Location: model.Location{File: "/src/A.java", Line: 2}},
		{ID: "h2", Title: "Remove EJB", RuleID: "ejb-02", Report: "EJB 2 is gone.",
			Quickfixes: []model.Quickfix{{ID: "q1", Type: model.QuickfixReplace, Title: "use CDI", Search: "@EJB", Replacement: "@Inject"}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Service.MarkComplete(c.ID, "h1"); err != nil {
		t.Fatal(err)
	}
	ws.Tree.Reset()
	return ws
}

func noColor(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestPrintFullyExpanded(t *testing.T) {
	noColor(t)
	ws := fixtureWorkspace(t)
	var buf bytes.Buffer
	if err := Print(&buf, ws.Tree, PrintOptions{}); err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"◆ C1",
		"└── ▣ Analysis Results (T1)",
		"    ├── ≡ Report",
		"    ├── ✓ Replace JMS [rule-id: jms-01]",
		"    └── ○ Remove EJB [rule-id: ejb-02]",
		"        └── ⚑ Quickfixes",
		"            └── ⚑ use CDI",
	}, "\n") + "\n"
	if got := buf.String(); got != want {
		t.Fatalf("Print output:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrintDepthAndEmpty(t *testing.T) {
	noColor(t)
	ws := fixtureWorkspace(t)
	var buf bytes.Buffer
	if err := Print(&buf, ws.Tree, PrintOptions{Depth: 1}); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "◆ C1\n" {
		t.Fatalf("depth 1 = %q", got)
	}

	empty := workspace.New(workspace.Options{Service: service.Options{Path: filepath.Join(t.TempDir(), "m.json")}})
	buf.Reset()
	if err := Print(&buf, empty.Tree, PrintOptions{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "no configurations") {
		t.Fatalf("empty = %q", buf.String())
	}
}

func TestRenderDetails(t *testing.T) {
	ws := fixtureWorkspace(t)
	id, err := ws.FindHint("C1", "h2")
	if err != nil {
		t.Fatal(err)
	}
	tgt, err := ws.Tree.Open(id)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := RenderDetails(&buf, tgt); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Issue:         Remove EJB", "Status:        open", "EJB 2 is gone.", "use CDI [REPLACE]", `"@EJB" -> "@Inject"`} {
		if !strings.Contains(out, want) {
			t.Errorf("details missing %q:\n%s", want, out)
		}
	}
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func labels(m *TreeModel) []string {
	out := make([]string, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r.item.Label)
	}
	return out
}

func TestTreeModelExpandAndComplete(t *testing.T) {
	ws := fixtureWorkspace(t)
	m := NewTreeModel(context.Background(), ws, "")
	defer m.Close()
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	if got := labels(m); len(got) != 1 || got[0] != "C1" {
		t.Fatalf("initial rows = %v", got)
	}
	m.Update(keyPress("right"))
	want := []string{"C1", "Analysis Results (T1)", "Report", "Replace JMS [rule-id: jms-01]", "Remove EJB [rule-id: ejb-02]"}
	if got := labels(m); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("expanded rows = %v", got)
	}

	for range 4 {
		m.Update(keyPress("down"))
	}
	if m.cursor != 4 {
		t.Fatalf("cursor = %d", m.cursor)
	}
	m.Update(keyPress("c"))
	if r := m.rows[4]; r.item.Context != tree.ContextIssueComplete {
		t.Fatalf("row after complete = %+v (status %q)", r.item, m.status)
	}
	c, _ := ws.Configuration("C1")
	if !c.IsIssueComplete("h2") {
		t.Fatal("model not updated")
	}

	m.Update(keyPress("left"))
	if m.cursor != 1 {
		t.Fatalf("left on a collapsed issue should move to its parent, cursor = %d", m.cursor)
	}
	m.Update(keyPress("left"))
	if got := len(m.rows); got != 2 {
		t.Fatalf("rows after collapsing results = %d", got)
	}
}

func TestTreeModelReloadAndDetails(t *testing.T) {
	ws := fixtureWorkspace(t)
	if err := ws.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	m := NewTreeModel(context.Background(), ws, ws.Service.Path())
	defer m.Close()

	m.Update(keyPress("r"))
	if m.failed || !strings.Contains(m.status, "reloaded (1 configurations)") {
		t.Fatalf("status = %q", m.status)
	}
	m.Update(ExternalEditMsg{})
	if len(m.rows) != 1 {
		t.Fatalf("rows = %v", labels(m))
	}

	m.Update(keyPress("o"))
	if !m.details || !strings.Contains(m.viewport.View(), "Report:        /out/index.html") {
		t.Fatalf("details view = %q", m.viewport.View())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.details {
		t.Fatal("esc did not close details")
	}
	if !strings.Contains(m.View(), "C1") {
		t.Fatalf("view = %q", m.View())
	}
}
