package tree

import (
	"fmt"
	"path"

	"surveyor/internal/model"
)

// entity is the resolved domain data behind a node.
type entity struct {
	config   *model.Configuration
	hint     *model.Hint
	quickfix *model.Quickfix
}

// behavior is one row of the dispatch table: how a kind derives its label,
// which children it produces and how its item is decorated.
type behavior struct {
	label    func(t *Tree, n *node, e entity) (string, error)
	children func(t *Tree, n *node, e entity) []key
	decorate func(t *Tree, n *node, e entity, item *Item)
	// rebuild reports whether a refresh must recompute the child set.
	rebuild func(n *node, e entity) bool
	// expanded kinds open by default when they have children
	expanded bool
}

var behaviors map[Kind]behavior

func init() {
	behaviors = map[Kind]behavior{
		KindConfiguration: {
			label:    func(_ *Tree, _ *node, e entity) (string, error) { return e.config.Name, nil },
			children: configurationChildren,
			decorate: func(_ *Tree, n *node, _ entity, item *Item) {
				item.Icon = "configuration"
				item.Context = ContextConfiguration
				item.Command = &Command{Name: CommandOpenConfiguration, Title: "Open Configuration", Arg: n.id}
			},
			// results appeared or went away
			rebuild: func(n *node, e entity) bool { return (e.config.Summary != nil) != (len(n.children) > 0) },
		},
		KindResults: {
			label:    resultsLabel,
			children: resultsChildren,
			decorate: func(_ *Tree, _ *node, e entity, item *Item) {
				item.Icon = "results"
				item.Context = ContextResults
				item.Tooltip = fmt.Sprintf("%d issues, %d quickfixes", len(e.config.Hints), quickfixCount(e.config))
			},
			// timestamp equality is the change-detection key
			rebuild:  func(n *node, e entity) bool { return n.stamp != e.config.Summary.ExecutedTimestamp },
			expanded: true,
		},
		KindReport: {
			label:    func(*Tree, *node, entity) (string, error) { return "Report", nil },
			children: none,
			decorate: func(_ *Tree, n *node, e entity, item *Item) {
				item.Icon = "report"
				item.Context = ContextReport
				item.Tooltip = e.config.Summary.ReportPath
				item.Command = &Command{Name: CommandOpenReport, Title: "Open Report", Arg: n.id}
			},
			rebuild: never,
		},
		KindFolder: {
			label:    func(_ *Tree, n *node, _ entity) (string, error) { return path.Base(n.key.ref), nil },
			children: func(t *Tree, n *node, e entity) []key { return t.groupChildren(e.config, n.key.ref) },
			decorate: func(t *Tree, n *node, e entity, item *Item) {
				item.Icon = "folder"
				if t.hasQuickfixesUnder(e.config, n.key.ref, false) {
					item.Context = ContextQuickfixContainer
				}
			},
			rebuild: never,
		},
		KindFile: {
			label:    func(_ *Tree, n *node, _ entity) (string, error) { return path.Base(n.key.ref), nil },
			children: func(t *Tree, n *node, e entity) []key { return t.fileChildren(e.config, n.key.ref) },
			decorate: func(t *Tree, n *node, e entity, item *Item) {
				item.Icon = "file"
				item.Context = ContextFile
				if t.hasQuickfixesUnder(e.config, n.key.ref, true) {
					item.Context = ContextQuickfixContainer
				}
				item.Tooltip = n.key.ref
				item.Command = &Command{Name: CommandOpenFile, Title: "Open File", Arg: n.id}
			},
			rebuild: never,
		},
		KindHint: {
			label:    func(_ *Tree, _ *node, e entity) (string, error) { return hintLabel(e.hint), nil },
			children: hintChildren,
			decorate: func(_ *Tree, n *node, e entity, item *Item) {
				item.Icon = "issue"
				item.Context = ContextIssue
				if e.hint.Complete {
					item.Icon = "complete"
					item.Context = ContextIssueComplete
				}
				if loc := e.hint.Location; loc.File != "" {
					item.Tooltip = fmt.Sprintf("%s:%d:%d", loc.File, loc.Line+1, loc.Column+1)
				}
				item.Command = &Command{Name: CommandOpenIssue, Title: "Open Issue", Arg: n.id}
			},
			rebuild: never,
		},
		KindQuickfixes: {
			label: func(*Tree, *node, entity) (string, error) { return "Quickfixes", nil },
			children: func(_ *Tree, _ *node, e entity) []key {
				out := make([]key, 0, len(e.hint.Quickfixes))
				for _, q := range e.hint.Quickfixes {
					out = append(out, key{kind: KindQuickfix, config: e.config.ID, hint: e.hint.ID, ref: q.ID})
				}
				return out
			},
			decorate: func(_ *Tree, _ *node, _ entity, item *Item) {
				item.Icon = "quickfix"
				item.Context = ContextQuickfixContainer
			},
			rebuild: never,
		},
		KindQuickfix: {
			label: func(_ *Tree, _ *node, e entity) (string, error) {
				if e.quickfix.Title != "" {
					return e.quickfix.Title, nil
				}
				return string(e.quickfix.Type), nil
			},
			children: none,
			decorate: func(_ *Tree, n *node, e entity, item *Item) {
				item.Icon = "quickfix"
				item.Context = ContextQuickfix
				item.Tooltip = string(e.quickfix.Type)
				item.Command = &Command{Name: CommandPreviewQuickfix, Title: "Preview Quickfix", Arg: n.id}
			},
			rebuild: never,
		},
	}
}

func never(*node, entity) bool { return false }

func none(*Tree, *node, entity) []key { return nil }

func hintLabel(h *model.Hint) string {
	return fmt.Sprintf("%s [rule-id: %s]", h.Title, h.RuleID)
}

func resultsLabel(_ *Tree, _ *node, e entity) (string, error) {
	return fmt.Sprintf("Analysis Results (%s)", e.config.Summary.ExecutedTimestamp), nil
}

func configurationChildren(_ *Tree, _ *node, e entity) []key {
	if e.config.Summary == nil {
		return nil
	}
	return []key{{kind: KindResults, config: e.config.ID}}
}

func resultsChildren(t *Tree, _ *node, e entity) []key {
	out := []key{{kind: KindReport, config: e.config.ID}}
	if t.grouping == GroupFolders {
		return append(out, t.groupChildren(e.config, "")...)
	}
	for _, h := range e.config.Hints {
		out = append(out, key{kind: KindHint, config: e.config.ID, hint: h.ID})
	}
	return out
}

func hintChildren(_ *Tree, _ *node, e entity) []key {
	if len(e.hint.Quickfixes) == 0 {
		return nil
	}
	return []key{{kind: KindQuickfixes, config: e.config.ID, hint: e.hint.ID}}
}

func quickfixCount(c *model.Configuration) int {
	n := 0
	for _, h := range c.Hints {
		n += len(h.Quickfixes)
	}
	return n
}

// resolve looks the node's entity up in the current model.
func (t *Tree) resolve(n *node) (entity, error) {
	var e entity
	m := t.src.Model()
	e.config = m.Configuration(n.key.config)
	if e.config == nil {
		return e, fmt.Errorf("configuration %q no longer exists", n.key.config)
	}
	switch n.key.kind {
	case KindResults, KindReport, KindFolder, KindFile:
		if e.config.Summary == nil {
			return e, fmt.Errorf("configuration %q has no results", e.config.Name)
		}
	case KindHint, KindQuickfixes, KindQuickfix:
		e.hint = e.config.Hint(n.key.hint)
		if e.hint == nil {
			return e, fmt.Errorf("hint %q no longer exists in %q", n.key.hint, e.config.Name)
		}
		if n.key.kind == KindQuickfix {
			for i := range e.hint.Quickfixes {
				if e.hint.Quickfixes[i].ID == n.key.ref {
					e.quickfix = &e.hint.Quickfixes[i]
					break
				}
			}
			if e.quickfix == nil {
				return e, fmt.Errorf("quickfix %q no longer exists", n.key.ref)
			}
		}
	}
	return e, nil
}
