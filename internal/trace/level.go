package trace

import (
	"fmt"
	"strings"
)

// Level is how much gets recorded.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // failures only
	LevelPhase        // session and service
	LevelDetail       // plus tree-wide operations
	LevelDebug        // plus every node computation
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

// deepest scope recorded per level; LevelError records spans of no scope
var levelScope = [...]Scope{0, 0, ScopeService, ScopeTree, ScopeNode}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel is case-insensitive; empty means off.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelOff, nil
	}
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
}

// ShouldEmit reports whether spans and points of scope are recorded at l.
func (l Level) ShouldEmit(scope Scope) bool {
	if int(l) >= len(levelScope) {
		return false
	}
	return scope != 0 && scope <= levelScope[l]
}
