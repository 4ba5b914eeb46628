// Package tree materializes the domain model as a lazily computed tree of
// nodes. Nodes live in an arena owned by one Tree per session; a child keeps
// its parent's ID, never a pointer. Every kind shares the same contract and
// differs only through its row in the dispatch table (kinds.go).
package tree

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"surveyor/internal/event"
	"surveyor/internal/model"
	"surveyor/internal/trace"
)

// ErrNotHint is returned by hint-only operations called on another kind.
var ErrNotHint = errors.New("node is not an issue")

// ModelSource is the single source of truth nodes read from.
// *service.Service satisfies it.
type ModelSource interface {
	Model() *model.Model
	MarkComplete(configID, hintID string) error
}

// Grouping selects how issues are arranged under a results node.
type Grouping uint8

const (
	// GroupFlat lists issues directly under the results node in model order.
	GroupFlat Grouping = iota
	// GroupFolders arranges issues in a folder/file hierarchy.
	GroupFolders
)

func (g Grouping) String() string {
	if g == GroupFolders {
		return "folders"
	}
	return "flat"
}

// ParseGrouping parses "flat" or "folders"; empty means flat.
func ParseGrouping(s string) (Grouping, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "flat":
		return GroupFlat, nil
	case "folders", "folder":
		return GroupFolders, nil
	default:
		return GroupFlat, fmt.Errorf("unknown grouping %q (want flat or folders)", s)
	}
}

// Options configures a Tree.
type Options struct {
	Grouping Grouping
	// Bus receives a Change after every refresh; a private bus is created when nil.
	Bus    *event.Bus[Change]
	Logger *slog.Logger
	Tracer trace.Tracer
}

// Tree is the session context every node operation runs against.
type Tree struct {
	src      ModelSource
	bus      *event.Bus[Change]
	nodes    *arena
	grouping Grouping
	log      *slog.Logger
	tracer   trace.Tracer

	roots      []NodeID
	rootsBuilt bool
	refreshing bool // unscoped refresh in progress
}

// New creates an empty tree over src.
func New(src ModelSource, opts Options) *Tree {
	bus := opts.Bus
	if bus == nil {
		bus = event.NewBus[Change]()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	tr := opts.Tracer
	if tr == nil {
		tr = trace.Nop
	}
	return &Tree{
		src:      src,
		bus:      bus,
		nodes:    newArena(0),
		grouping: opts.Grouping,
		log:      log,
		tracer:   tr,
	}
}

// Bus returns the change bus shared by all nodes of this tree.
func (t *Tree) Bus() *event.Bus[Change] { return t.bus }

// Grouping returns the configured issue grouping.
func (t *Tree) Grouping() Grouping { return t.grouping }

// Len reports the number of live nodes.
func (t *Tree) Len() int { return t.nodes.Len() }

// Roots returns one node per configuration, reconciled against the model on
// first use and after each unscoped refresh.
func (t *Tree) Roots() []NodeID {
	if !t.rootsBuilt {
		t.reconcileRoots()
	}
	return append([]NodeID(nil), t.roots...)
}

func (t *Tree) reconcileRoots() {
	m := t.src.Model()
	keys := make([]key, 0, len(m.Configurations))
	for _, c := range m.Configurations {
		keys = append(keys, key{kind: KindConfiguration, config: c.ID})
	}
	t.roots = t.reconcile(NoNode, t.roots, keys)
	t.rootsBuilt = true
}

// Reset deletes every node. Roots are rebuilt lazily from the current model.
// An unscoped refresh in progress no longer covers the new nodes, so the
// next Refresh(NoNode) runs and publishes even when called from a subscriber.
func (t *Tree) Reset() {
	t.refreshing = false
	for _, id := range t.roots {
		if n := t.nodes.get(id); n != nil {
			t.releaseSubtree(n)
		}
	}
	t.roots = nil
	t.rootsBuilt = false
}

// Item returns the node's display item, computing it on first use.
func (t *Tree) Item(id NodeID) Item {
	n := t.nodes.get(id)
	if n == nil || n.state == StateDeleted {
		return Item{}
	}
	if n.state == StateUncomputed {
		return t.CreateItem(id)
	}
	return n.item
}

// CreateItem synchronously recomputes the node's item and its immediate
// children from current domain state. Children are matched by identity key,
// so repeated calls reuse the same nodes instead of registering new ones.
// A call while the node is computing returns the previous item unchanged.
func (t *Tree) CreateItem(id NodeID) Item {
	n := t.nodes.get(id)
	if n == nil || n.state == StateDeleted {
		return Item{}
	}
	if n.state == StateComputing {
		return n.item
	}
	t.compute(n, true)
	return n.item
}

// Children returns the cached child sequence. An uncomputed node is computed
// first; a node that is computing yields nothing rather than re-entering.
func (t *Tree) Children(id NodeID) []NodeID {
	n := t.nodes.get(id)
	if n == nil {
		return nil
	}
	switch n.state {
	case StateDeleted, StateComputing:
		return nil
	case StateUncomputed:
		t.compute(n, true)
	}
	return append([]NodeID(nil), n.children...)
}

// HasMoreChildren reports whether the cached child sequence is non-empty.
// It never triggers computation.
func (t *Tree) HasMoreChildren(id NodeID) bool {
	n := t.nodes.get(id)
	return n != nil && n.state != StateDeleted && len(n.children) > 0
}

// Refresh recomputes the node's display state, delegates to its materialized
// children and publishes one Change for the node. Refresh(NoNode) refreshes
// the whole tree and publishes one unscoped Change.
func (t *Tree) Refresh(id NodeID) {
	t.RefreshScoped(id, NoNode)
}

// RefreshScoped is Refresh with the published Change scoped to scope instead
// of the refreshed node. A refresh of a node that is already refreshing is
// absorbed without publishing.
func (t *Tree) RefreshScoped(id, scope NodeID) {
	t.refresh(id, scope, false)
}

// Rebuild is Refresh that also rebuilds the child sets of the node and of its
// materialized descendants, whatever their change detection says. Use it
// after replacing domain state wholesale, where identity keys may survive but
// stamps do not move.
func (t *Tree) Rebuild(id NodeID) {
	t.refresh(id, NoNode, true)
}

func (t *Tree) refresh(id, scope NodeID, force bool) {
	if !id.IsValid() {
		t.refreshAll()
		return
	}
	n := t.nodes.get(id)
	if n == nil || n.state == StateDeleted {
		return
	}
	if n.refreshing || n.state == StateComputing {
		t.log.Debug("reentrant refresh absorbed", "node", id, "kind", n.key.kind)
		return
	}
	span := trace.Begin(t.tracer, trace.ScopeTree, "refresh", 0).WithExtra("node", n.key.kind.String())
	n.refreshing = true
	defer func() { n.refreshing = false }()

	t.refreshLocal(n, force)
	target := id
	if scope.IsValid() {
		target = scope
	}
	span.End("")
	t.bus.Publish(Change{Node: target})
}

func (t *Tree) refreshAll() {
	if t.refreshing {
		t.log.Debug("reentrant refresh absorbed", "node", "root")
		return
	}
	span := trace.Begin(t.tracer, trace.ScopeTree, "refresh", 0).WithExtra("node", "root")
	t.refreshing = true
	defer func() { t.refreshing = false }()

	t.reconcileRoots()
	for _, id := range t.roots {
		if n := t.nodes.get(id); n != nil && n.state == StateMaterialized {
			t.refreshLocal(n, false)
		}
	}
	span.End("")
	t.bus.Publish(Change{Node: NoNode})
}

// refreshLocal recomputes n and walks its materialized children. Children of
// a node whose child set was rebuilt are rebuilt too.
func (t *Tree) refreshLocal(n *node, force bool) {
	rebuilt := t.compute(n, force)
	for _, id := range append([]NodeID(nil), n.children...) {
		child := t.nodes.get(id)
		if child != nil && child.state == StateMaterialized {
			t.refreshLocal(child, rebuilt)
		}
	}
}

// compute runs the node's behavior and reports whether the child set was
// rebuilt. Errors, panics included, leave the node materialized with no
// children; they never escape to siblings or callers.
func (t *Tree) compute(n *node, force bool) bool {
	prev := n.state
	n.state = StateComputing
	span := trace.Begin(t.tracer, trace.ScopeNode, "compute", 0).WithExtra("kind", n.key.kind.String())

	res, err := t.produce(n, force || prev == StateUncomputed)
	if n.state == StateDeleted {
		span.End("deleted")
		return false
	}
	if err != nil {
		t.log.Warn("node computation failed", "node", n.id, "kind", n.key.kind, "err", err)
		trace.Error(t.tracer, trace.ScopeNode, "compute", err)
		t.dropChildren(n)
		label := n.item.Label
		if label == "" {
			label = n.key.kind.String()
		}
		n.item = Item{Label: label, Icon: "error", Tooltip: err.Error(), Context: ContextError}
		n.state = StateMaterialized
		span.End(err.Error())
		return false
	}

	if res.rebuilt {
		n.children = t.reconcile(n.id, n.children, res.keys)
		n.stamp = res.stamp
	}
	res.item.Collapse = CollapseNone
	if len(n.children) > 0 {
		res.item.Collapse = CollapseCollapsed
		if behaviors[n.key.kind].expanded {
			res.item.Collapse = CollapseExpanded
		}
	}
	n.item = res.item
	n.state = StateMaterialized
	span.End("")
	return res.rebuilt
}

type production struct {
	item    Item
	keys    []key
	stamp   string
	rebuilt bool
}

func (t *Tree) produce(n *node, rebuild bool) (res production, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s node: %v", n.key.kind, r)
		}
	}()
	b, ok := behaviors[n.key.kind]
	if !ok {
		return res, fmt.Errorf("no behavior for node kind %d", n.key.kind)
	}
	e, err := t.resolve(n)
	if err != nil {
		return res, err
	}
	label, err := b.label(t, n, e)
	if err != nil {
		return res, err
	}
	res.item.Label = label
	b.decorate(t, n, e, &res.item)

	if rebuild || b.rebuild(n, e) {
		res.keys = b.children(t, n, e)
		res.rebuilt = true
		if e.config.Summary != nil {
			res.stamp = e.config.Summary.ExecutedTimestamp
		}
	}
	return res, nil
}

// reconcile maps keys onto existing children, allocating only for new keys
// and deleting children whose key is no longer produced.
func (t *Tree) reconcile(parent NodeID, current []NodeID, keys []key) []NodeID {
	existing := make(map[key]NodeID, len(current))
	for _, id := range current {
		if n := t.nodes.get(id); n != nil && n.state != StateDeleted {
			existing[n.key] = id
		}
	}
	out := make([]NodeID, 0, len(keys))
	seen := make(map[key]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			t.log.Warn("duplicate node key skipped", "parent", parent, "kind", k.kind, "config", k.config, "hint", k.hint, "ref", k.ref)
			continue
		}
		seen[k] = struct{}{}
		if id, ok := existing[k]; ok {
			out = append(out, id)
			delete(existing, k)
			continue
		}
		out = append(out, t.nodes.alloc(parent, k))
	}
	for _, id := range existing {
		t.releaseSubtree(t.nodes.get(id))
	}
	return out
}

// Delete releases the node and its subtree and detaches it from its parent.
// Deletion is terminal; later calls on the ID are no-ops.
func (t *Tree) Delete(id NodeID) {
	n := t.nodes.get(id)
	if n == nil || n.state == StateDeleted {
		return
	}
	if p := t.nodes.get(n.parent); p != nil {
		p.children = without(p.children, id)
	} else {
		t.roots = without(t.roots, id)
	}
	t.releaseSubtree(n)
}

func (t *Tree) dropChildren(n *node) {
	for _, id := range n.children {
		if child := t.nodes.get(id); child != nil {
			t.releaseSubtree(child)
		}
	}
	n.children = nil
}

func (t *Tree) releaseSubtree(n *node) {
	if n == nil || n.state == StateDeleted {
		return
	}
	t.dropChildren(n)
	t.nodes.release(n)
}

func without(ids []NodeID, id NodeID) []NodeID {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// SetComplete marks the hint behind id complete in the model and refreshes
// the node. Flag and ledger change together inside the model.
func (t *Tree) SetComplete(id NodeID) error {
	n := t.nodes.get(id)
	if n == nil || n.state == StateDeleted {
		return fmt.Errorf("node %d does not exist", id)
	}
	if n.key.kind != KindHint {
		return fmt.Errorf("%w: %s", ErrNotHint, n.key.kind)
	}
	if err := t.src.MarkComplete(n.key.config, n.key.hint); err != nil {
		return err
	}
	t.Refresh(id)
	return nil
}

// Parent returns the parent ID, NoNode for roots and unknown IDs.
func (t *Tree) Parent(id NodeID) NodeID {
	if n := t.nodes.get(id); n != nil {
		return n.parent
	}
	return NoNode
}

// Kind returns the node's kind, 0 for unknown IDs.
func (t *Tree) Kind(id NodeID) Kind {
	if n := t.nodes.get(id); n != nil {
		return n.key.kind
	}
	return 0
}

// State returns the node's lifecycle state. Unknown IDs report StateDeleted.
func (t *Tree) State(id NodeID) State {
	if n := t.nodes.get(id); n != nil {
		return n.state
	}
	return StateDeleted
}

// ConfigID returns the ID of the configuration the node belongs to.
func (t *Tree) ConfigID(id NodeID) string {
	if n := t.nodes.get(id); n != nil {
		return n.key.config
	}
	return ""
}

// HintID returns the hint behind a hint or quickfix node, "" otherwise.
func (t *Tree) HintID(id NodeID) string {
	if n := t.nodes.get(id); n != nil {
		return n.key.hint
	}
	return ""
}
