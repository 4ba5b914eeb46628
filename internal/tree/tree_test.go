package tree

import (
	"errors"
	"slices"
	"testing"

	"surveyor/internal/model"
)

type fakeSource struct {
	m *model.Model
	// onModel runs once, on the next Model call
	onModel func()
}

func (f *fakeSource) Model() *model.Model {
	if fn := f.onModel; fn != nil {
		f.onModel = nil
		fn()
	}
	return f.m
}

func (f *fakeSource) MarkComplete(configID, hintID string) error {
	c := f.m.Configuration(configID)
	if c == nil {
		return model.ErrUnknownConfiguration
	}
	return c.SetComplete(hintID)
}

func newFixture(t *testing.T) (*fakeSource, *model.Configuration) {
	t.Helper()
	c := model.NewConfiguration("c1", "C1")
	c.ApplyResults(model.Summary{ExecutedTimestamp: "T1", ReportPath: "/out/index.html"}, []*model.Hint{
		{ID: "h1", Title: "Replace JNDI lookup", RuleID: "jndi-01", Location: model.Location{File: "/src/a/Lookup.java", Line: 9}},
		{ID: "h2", Title: "Remove EJB descriptor", RuleID: "ejb-02", Location: model.Location{File: "/src/b/ejb-jar.xml"},
			Quickfixes: []model.Quickfix{{ID: "q1", Type: model.QuickfixDelete, Title: "Delete descriptor"}}},
	})
	if err := c.SetComplete("h1"); err != nil {
		t.Fatalf("SetComplete: %v", err)
	}
	m := model.New()
	m.Add(c)
	return &fakeSource{m: m}, c
}

func resultsNode(t *testing.T, tr *Tree) NodeID {
	t.Helper()
	roots := tr.Roots()
	if len(roots) == 0 {
		t.Fatal("no roots")
	}
	kids := tr.Children(roots[0])
	if len(kids) != 1 || tr.Kind(kids[0]) != KindResults {
		t.Fatalf("configuration children = %v, want one results node", kids)
	}
	return kids[0]
}

func kinds(tr *Tree, ids []NodeID) []Kind {
	out := make([]Kind, 0, len(ids))
	for _, id := range ids {
		out = append(out, tr.Kind(id))
	}
	return out
}

func TestResultsNodeScenario(t *testing.T) {
	src, _ := newFixture(t)
	tr := New(src, Options{})
	res := resultsNode(t, tr)

	item := tr.CreateItem(res)
	if item.Label != "Analysis Results (T1)" {
		t.Fatalf("label = %q", item.Label)
	}
	if item.Collapse != CollapseExpanded {
		t.Fatalf("collapse = %v, want expanded", item.Collapse)
	}
	kids := tr.Children(res)
	want := []Kind{KindReport, KindHint, KindHint}
	if got := kinds(tr, kids); !slices.Equal(got, want) {
		t.Fatalf("children kinds = %v, want %v", got, want)
	}
	if got := tr.Item(kids[0]).Label; got != "Report" {
		t.Fatalf("report label = %q", got)
	}
	if got := tr.Item(kids[1]).Label; got != "Replace JNDI lookup [rule-id: jndi-01]" {
		t.Fatalf("hint label = %q", got)
	}
	if got := tr.Item(kids[1]).Context; got != ContextIssueComplete {
		t.Fatalf("completed hint context = %q", got)
	}
	if got := tr.Item(kids[2]).Context; got != ContextIssue {
		t.Fatalf("open hint context = %q", got)
	}
	if tr.Parent(kids[1]) != res {
		t.Fatalf("hint parent = %d, want %d", tr.Parent(kids[1]), res)
	}
}

func TestCreateItemReusesChildren(t *testing.T) {
	src, _ := newFixture(t)
	tr := New(src, Options{})
	res := resultsNode(t, tr)

	tr.CreateItem(res)
	first := tr.Children(res)
	live := tr.Len()
	tr.CreateItem(res)
	second := tr.Children(res)

	if !slices.Equal(first, second) {
		t.Fatalf("children changed identity: %v vs %v", first, second)
	}
	if tr.Len() != live {
		t.Fatalf("live nodes %d -> %d, children were registered twice", live, tr.Len())
	}
}

func TestRefreshIsIdempotentAndEmitsOncePerCall(t *testing.T) {
	src, _ := newFixture(t)
	tr := New(src, Options{})
	res := resultsNode(t, tr)
	tr.CreateItem(res)

	var changes []Change
	tr.Bus().Subscribe(func(c Change) { changes = append(changes, c) })

	tr.Refresh(res)
	item1, kids1 := tr.Item(res), tr.Children(res)
	if len(changes) != 1 {
		t.Fatalf("first refresh emitted %d changes", len(changes))
	}
	tr.Refresh(res)
	item2, kids2 := tr.Item(res), tr.Children(res)
	if len(changes) != 2 {
		t.Fatalf("second refresh emitted %d changes in total", len(changes))
	}
	if item1 != item2 {
		t.Fatalf("item changed: %+v vs %+v", item1, item2)
	}
	if !slices.Equal(kids1, kids2) {
		t.Fatalf("children changed: %v vs %v", kids1, kids2)
	}
	for _, c := range changes {
		if c.Node != res {
			t.Fatalf("change scoped to %d, want %d", c.Node, res)
		}
	}
}

func TestRefreshScoped(t *testing.T) {
	src, _ := newFixture(t)
	tr := New(src, Options{})
	res := resultsNode(t, tr)
	root := tr.Roots()[0]

	var got []Change
	tr.Bus().Subscribe(func(c Change) { got = append(got, c) })
	tr.RefreshScoped(res, root)
	if len(got) != 1 || got[0].Node != root {
		t.Fatalf("changes = %v, want one scoped to %d", got, root)
	}
}

func TestSetCompleteUpdatesFlagAndLedger(t *testing.T) {
	src, c := newFixture(t)
	tr := New(src, Options{})
	res := resultsNode(t, tr)
	hint := tr.Children(res)[2]

	var got []Change
	tr.Bus().Subscribe(func(ch Change) { got = append(got, ch) })
	if err := tr.SetComplete(hint); err != nil {
		t.Fatalf("SetComplete: %v", err)
	}
	h := c.Hint("h2")
	if !h.Complete || !c.IsIssueComplete("h2") {
		t.Fatalf("complete flag %v, ledger %v", h.Complete, c.IsIssueComplete("h2"))
	}
	if tr.Item(hint).Context != ContextIssueComplete {
		t.Fatalf("context = %q after completion", tr.Item(hint).Context)
	}
	if len(got) != 1 || got[0].Node != hint {
		t.Fatalf("changes = %v, want one for %d", got, hint)
	}
}

func TestSetCompleteRejectsOtherKinds(t *testing.T) {
	src, _ := newFixture(t)
	tr := New(src, Options{})
	res := resultsNode(t, tr)
	if err := tr.SetComplete(res); !errors.Is(err, ErrNotHint) {
		t.Fatalf("err = %v, want ErrNotHint", err)
	}
}

func TestComputationPanicIsContained(t *testing.T) {
	src, c := newFixture(t)
	broken := model.NewConfiguration("c2", "Broken")
	broken.Summary = &model.Summary{ExecutedTimestamp: "T9"}
	broken.Hints = []*model.Hint{{ID: "x"}, nil}
	src.m.Add(broken)

	tr := New(src, Options{})
	roots := tr.Roots()
	if len(roots) != 2 {
		t.Fatalf("roots = %v", roots)
	}
	bad := tr.Children(roots[1])[0]
	item := tr.CreateItem(bad)
	if item.Context != ContextError {
		t.Fatalf("broken results context = %q", item.Context)
	}
	if kids := tr.Children(bad); len(kids) != 0 {
		t.Fatalf("broken results has children %v", kids)
	}
	if tr.State(bad) != StateMaterialized {
		t.Fatalf("state = %v", tr.State(bad))
	}

	good := resultsNode(t, tr)
	if n := len(tr.Children(good)); n != 1+len(c.Hints) {
		t.Fatalf("sibling results has %d children", n)
	}
}

func TestVanishedHintDegradesToError(t *testing.T) {
	src, c := newFixture(t)
	tr := New(src, Options{})
	res := resultsNode(t, tr)
	kids := tr.Children(res)
	gone, kept := kids[2], kids[1]
	tr.Children(gone) // materialize the quickfixes container

	c.Hints = c.Hints[:1]
	tr.Refresh(gone)
	if tr.Item(gone).Context != ContextError {
		t.Fatalf("context = %q", tr.Item(gone).Context)
	}
	if tr.HasMoreChildren(gone) {
		t.Fatal("errored node kept its children")
	}
	if tr.Item(kept).Context != ContextIssueComplete {
		t.Fatalf("sibling context = %q", tr.Item(kept).Context)
	}
}

func TestResultsRebuildOnNewTimestamp(t *testing.T) {
	src, c := newFixture(t)
	tr := New(src, Options{})
	res := resultsNode(t, tr)
	report := tr.Children(res)[0]

	c.ApplyResults(model.Summary{ExecutedTimestamp: "T2"}, []*model.Hint{{ID: "h3", Title: "New", RuleID: "r3"}})
	tr.Refresh(tr.Roots()[0])

	if got := tr.Item(res).Label; got != "Analysis Results (T2)" {
		t.Fatalf("label = %q", got)
	}
	kids := tr.Children(res)
	if len(kids) != 2 || kids[0] != report {
		t.Fatalf("children = %v, want report %d reused plus one hint", kids, report)
	}
	if got := tr.Item(kids[1]).Label; got != "New [rule-id: r3]" {
		t.Fatalf("hint label = %q", got)
	}
}

func TestRebuildIgnoresUnchangedTimestamp(t *testing.T) {
	src, c := newFixture(t)
	tr := New(src, Options{})
	res := resultsNode(t, tr)
	root := tr.Roots()[0]

	c.ApplyResults(*c.Summary, []*model.Hint{{ID: "h3", Title: "New", RuleID: "r3"}})
	tr.Refresh(root)
	if kids := tr.Children(res); len(kids) != 3 {
		t.Fatalf("plain refresh rebuilt children: %v", kids)
	}

	var changes []Change
	tr.Bus().Subscribe(func(ch Change) { changes = append(changes, ch) })
	tr.Rebuild(root)
	kids := tr.Children(res)
	if len(kids) != 2 || tr.Item(kids[1]).Label != "New [rule-id: r3]" {
		t.Fatalf("children after rebuild = %v", kids)
	}
	if len(changes) != 1 || changes[0].Node != root {
		t.Fatalf("changes = %v", changes)
	}
}

func TestReentrantRefreshIsAbsorbed(t *testing.T) {
	src, _ := newFixture(t)
	tr := New(src, Options{})
	res := resultsNode(t, tr)

	count := 0
	tr.Bus().Subscribe(func(c Change) {
		count++
		tr.Refresh(c.Node)
		tr.Refresh(NoNode)
	})
	tr.Refresh(res)
	if count != 2 {
		// one for res, one for the unscoped refresh the handler started
		t.Fatalf("handler ran %d times", count)
	}
}

func TestChildrenWhileComputingIsEmpty(t *testing.T) {
	src, _ := newFixture(t)
	tr := New(src, Options{})
	root := tr.Roots()[0]

	var during []NodeID
	called := false
	src.onModel = func() {
		called = true
		during = tr.Children(root)
	}
	after := tr.Children(root)
	if !called {
		t.Fatal("model was not consulted")
	}
	if len(during) != 0 {
		t.Fatalf("children during computation = %v", during)
	}
	if len(after) != 1 {
		t.Fatalf("children after computation = %v", after)
	}
}

func TestModelSwapDuringComputation(t *testing.T) {
	src, _ := newFixture(t)
	tr := New(src, Options{})
	root := tr.Roots()[0]

	replacement, _ := newFixture(t)
	src.onModel = func() { src.m = replacement.m }
	if kids := tr.Children(root); len(kids) != 1 {
		t.Fatalf("children = %v", kids)
	}
	if src.Model() != replacement.m {
		t.Fatal("model was not swapped")
	}
}

func TestFolderGrouping(t *testing.T) {
	c := model.NewConfiguration("c1", "C1")
	c.Options.Input = []string{"/src"}
	c.ApplyResults(model.Summary{ExecutedTimestamp: "T1"}, []*model.Hint{
		{ID: "h1", Title: "deep", RuleID: "r", Location: model.Location{File: "/src/a/b/X.java"}},
		{ID: "h2", Title: "mid", RuleID: "r", Location: model.Location{File: "/src/a/Y.java"},
			Quickfixes: []model.Quickfix{{ID: "q", Type: model.QuickfixReplace}}},
		{ID: "h3", Title: "top", RuleID: "r", Location: model.Location{File: "/src/Z.java"}},
		{ID: "h4", Title: "nowhere", RuleID: "r"},
	})
	m := model.New()
	m.Add(c)
	tr := New(&fakeSource{m: m}, Options{Grouping: GroupFolders})
	res := resultsNode(t, tr)

	top := tr.Children(res)
	want := []Kind{KindReport, KindFolder, KindFile, KindHint}
	if got := kinds(tr, top); !slices.Equal(got, want) {
		t.Fatalf("top kinds = %v, want %v", got, want)
	}
	if got := tr.Item(top[1]).Label; got != "a" {
		t.Fatalf("folder label = %q", got)
	}
	if got := tr.Item(top[1]).Context; got != ContextQuickfixContainer {
		t.Fatalf("folder context = %q", got)
	}
	if got := tr.Item(top[2]).Label; got != "Z.java" {
		t.Fatalf("file label = %q", got)
	}

	inA := tr.Children(top[1])
	if got := kinds(tr, inA); !slices.Equal(got, []Kind{KindFolder, KindFile}) {
		t.Fatalf("folder a kinds = %v", got)
	}
	if got := tr.Item(inA[0]).Label; got != "b" {
		t.Fatalf("nested folder label = %q", got)
	}
	hints := tr.Children(inA[1])
	if len(hints) != 1 || tr.HintID(hints[0]) != "h2" {
		t.Fatalf("file children = %v", hints)
	}

	tgt, err := tr.Open(inA[1])
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if tgt.File != "/src/a/Y.java" {
		t.Fatalf("open file = %q", tgt.File)
	}
}

func TestDeleteIsTerminal(t *testing.T) {
	src, _ := newFixture(t)
	tr := New(src, Options{})
	res := resultsNode(t, tr)
	root := tr.Roots()[0]
	kids := tr.Children(res)
	before := tr.Len()

	tr.Delete(res)
	if tr.State(res) != StateDeleted || tr.State(kids[1]) != StateDeleted {
		t.Fatal("subtree not deleted")
	}
	if slices.Contains(tr.Children(root), res) {
		t.Fatal("parent still lists deleted child")
	}
	if tr.Len() != before-1-len(kids) {
		t.Fatalf("live nodes %d -> %d", before, tr.Len())
	}

	emitted := 0
	tr.Bus().Subscribe(func(Change) { emitted++ })
	tr.Refresh(res)
	tr.Delete(res)
	if emitted != 0 || tr.Children(res) != nil || tr.Item(res) != (Item{}) {
		t.Fatal("deleted node is still active")
	}
}

func TestUnscopedRefreshReconcilesRoots(t *testing.T) {
	src, _ := newFixture(t)
	tr := New(src, Options{})
	first := tr.Roots()[0]

	src.m.Add(model.NewConfiguration("c2", "C2"))
	var got []Change
	tr.Bus().Subscribe(func(c Change) { got = append(got, c) })
	tr.Refresh(NoNode)

	if len(got) != 1 || !got[0].Unscoped() {
		t.Fatalf("changes = %v, want one unscoped", got)
	}
	roots := tr.Roots()
	if len(roots) != 2 || roots[0] != first {
		t.Fatalf("roots = %v", roots)
	}
	if got := tr.Item(roots[1]); got.Label != "C2" || got.Collapse != CollapseNone {
		t.Fatalf("new root item = %+v", got)
	}
}

func TestResetDropsAllNodes(t *testing.T) {
	src, _ := newFixture(t)
	tr := New(src, Options{})
	res := resultsNode(t, tr)
	old := tr.Roots()[0]

	tr.Reset()
	if tr.Len() != 0 || tr.State(res) != StateDeleted {
		t.Fatalf("live nodes after reset = %d", tr.Len())
	}
	roots := tr.Roots()
	if len(roots) != 1 || roots[0] == old {
		t.Fatalf("roots after reset = %v", roots)
	}
}

func TestOpenHintAndQuickfix(t *testing.T) {
	src, _ := newFixture(t)
	tr := New(src, Options{})
	res := resultsNode(t, tr)
	hint := tr.Children(res)[2]

	tgt, err := tr.Open(hint)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if tgt.Kind != KindHint || tgt.Hint == nil || tgt.Hint.ID != "h2" || tgt.Report != "/out/index.html" {
		t.Fatalf("target = %+v", tgt)
	}
	if cmd := tr.Item(hint).Command; cmd == nil || cmd.Name != CommandOpenIssue || cmd.Arg != hint {
		t.Fatalf("command = %+v", cmd)
	}

	qfs := tr.Children(hint)
	if len(qfs) != 1 || tr.Kind(qfs[0]) != KindQuickfixes {
		t.Fatalf("hint children = %v", qfs)
	}
	qf := tr.Children(qfs[0])
	if len(qf) != 1 || tr.Item(qf[0]).Label != "Delete descriptor" {
		t.Fatalf("quickfix children = %v", qf)
	}
	tgt, err = tr.Open(qf[0])
	if err != nil || tgt.Quickfix == nil || tgt.File != "/src/b/ejb-jar.xml" {
		t.Fatalf("quickfix target = %+v, %v", tgt, err)
	}
}

func TestParseGrouping(t *testing.T) {
	tests := []struct {
		in   string
		want Grouping
		ok   bool
	}{
		{"", GroupFlat, true},
		{"flat", GroupFlat, true},
		{" Folders ", GroupFolders, true},
		{"tree", GroupFlat, false},
	}
	for _, tt := range tests {
		got, err := ParseGrouping(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseGrouping(%q) = %v, %v", tt.in, got, err)
		}
	}
}
