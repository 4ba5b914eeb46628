package tree

import (
	"fmt"

	"surveyor/internal/model"
)

// Target is the payload of a node's open action. Collaborators inspect Kind
// and use whichever fields apply; the tree performs no navigation.
type Target struct {
	Node     NodeID
	Kind     Kind
	ConfigID string
	Config   string // configuration name
	// File and Location point at source for file, hint and quickfix nodes.
	File     string
	Location model.Location
	Hint     *model.Hint
	Quickfix *model.Quickfix
	Report   string
}

// Open resolves the node's current domain data for its open action.
func (t *Tree) Open(id NodeID) (Target, error) {
	n := t.nodes.get(id)
	if n == nil || n.state == StateDeleted {
		return Target{}, fmt.Errorf("node %d does not exist", id)
	}
	e, err := t.resolve(n)
	if err != nil {
		return Target{}, err
	}
	tgt := Target{Node: id, Kind: n.key.kind, ConfigID: e.config.ID, Config: e.config.Name}
	if e.config.Summary != nil {
		tgt.Report = e.config.Summary.ReportPath
	}
	switch n.key.kind {
	case KindFile:
		for _, h := range e.config.Hints {
			if relPath(e.config, h.Location.File) == n.key.ref {
				tgt.File = h.Location.File
				break
			}
		}
	case KindHint, KindQuickfixes:
		tgt.Hint = e.hint
		tgt.File = e.hint.Location.File
		tgt.Location = e.hint.Location
	case KindQuickfix:
		tgt.Hint = e.hint
		tgt.Quickfix = e.quickfix
		tgt.File = e.quickfix.File
		if tgt.File == "" {
			tgt.File = e.hint.Location.File
		}
		tgt.Location = e.hint.Location
	}
	return tgt, nil
}
