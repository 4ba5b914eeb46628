package trace

import "time"

// Kind is what happened: a span boundary, an instant or a failure.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	// KindError is recorded at every level except off.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Scope is the layer an event comes from. Coarser layers have lower values.
type Scope uint8

const (
	// ScopeSession covers CLI commands and the TUI session.
	ScopeSession Scope = iota + 1
	// ScopeService covers model open/save/reload.
	ScopeService
	// ScopeTree covers tree-wide refresh and reset.
	ScopeTree
	// ScopeNode covers one node's computation.
	ScopeNode
)

func (s Scope) String() string {
	switch s {
	case ScopeSession:
		return "session"
	case ScopeService:
		return "service"
	case ScopeTree:
		return "tree"
	case ScopeNode:
		return "node"
	default:
		return "unknown"
	}
}

// Attr is one key-value annotation. Attributes keep the order they were added in.
type Attr struct {
	Key   string
	Value string
}

// Event is one trace record.
type Event struct {
	Time     time.Time
	Seq      uint64 // assigned by the sink that stores the event
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	Name     string
	Detail   string
	Elapsed  time.Duration // set on span end
	Attrs    []Attr
}

// passes applies the level filter; failures pass whenever tracing is on.
func passes(level Level, ev *Event) bool {
	if ev.Kind == KindError {
		return level > LevelOff
	}
	return level.ShouldEmit(ev.Scope)
}
