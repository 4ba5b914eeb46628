package tree

// NodeID addresses a node in the tree arena. The zero value means "no node".
type NodeID uint32

// NoNode is the sentinel ID; as a Change payload it means "whole tree".
const NoNode NodeID = 0

// IsValid reports whether id refers to an allocated slot.
func (id NodeID) IsValid() bool { return id != NoNode }

// Kind tags the domain entity a node wraps.
type Kind uint8

const (
	KindConfiguration Kind = iota + 1
	KindResults
	KindReport
	KindFolder
	KindFile
	KindHint
	KindQuickfixes
	KindQuickfix
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindResults:
		return "results"
	case KindReport:
		return "report"
	case KindFolder:
		return "folder"
	case KindFile:
		return "file"
	case KindHint:
		return "hint"
	case KindQuickfixes:
		return "quickfixes"
	case KindQuickfix:
		return "quickfix"
	default:
		return "unknown"
	}
}

// State is the lifecycle of one node.
//
//	uncomputed -> computing -> materialized (-> computing -> materialized ...)
//	any -> deleted (terminal)
type State uint8

const (
	StateUncomputed State = iota
	StateComputing
	StateMaterialized
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateUncomputed:
		return "uncomputed"
	case StateComputing:
		return "computing"
	case StateMaterialized:
		return "materialized"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Collapse is the expand affordance a display adapter should offer.
type Collapse uint8

const (
	CollapseNone Collapse = iota
	CollapseCollapsed
	CollapseExpanded
)

// Command names understood by external collaborators.
const (
	CommandOpenConfiguration = "openConfiguration"
	CommandOpenReport        = "openReport"
	CommandOpenFile          = "openFile"
	CommandOpenIssue         = "openIssue"
	CommandPreviewQuickfix   = "previewQuickfix"
)

// Context tags tell the host which contextual actions apply.
const (
	ContextConfiguration     = "configuration"
	ContextResults           = "results"
	ContextReport            = "report"
	ContextFile              = "file"
	ContextIssue             = "issue"
	ContextIssueComplete     = "issueComplete"
	ContextQuickfixContainer = "quickfixContainer"
	ContextQuickfix          = "quickfix"
	ContextError             = "error"
)

// Command is the "open" action attached to an item; Arg is the node itself.
type Command struct {
	Name  string
	Title string
	Arg   NodeID
}

// Item is everything a display adapter needs to render one row.
type Item struct {
	Label    string
	Icon     string
	Tooltip  string
	Collapse Collapse
	Context  string
	Command  *Command
}

// Change is published on the bus after a refresh. Node == NoNode means the
// whole tree may be stale and should be re-rendered from the roots.
type Change struct {
	Node NodeID
}

// Unscoped reports whether the change covers the whole tree.
func (c Change) Unscoped() bool { return c.Node == NoNode }

// key identifies the domain entity behind a node, relative to its parent.
// Recomputing children reuses nodes whose key is unchanged.
type key struct {
	kind   Kind
	config string
	hint   string
	ref    string // folder/file path or quickfix ID
}

type node struct {
	id       NodeID
	parent   NodeID
	key      key
	state    State
	item     Item
	children []NodeID
	// stamp is the summary timestamp the children of a results node were built from
	stamp string
	// refreshing guards Refresh, including the publish that follows it
	refreshing bool
}
