package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrUnknownHint is returned when a hint ID does not belong to the configuration.
	ErrUnknownHint = errors.New("unknown hint")
	// ErrUnknownConfiguration is returned when no configuration has the given ID.
	ErrUnknownConfiguration = errors.New("unknown configuration")
)

// Location points at the code an issue was reported for.
// Line and Column are zero-based.
type Location struct {
	File   string
	Line   int
	Column int
	Length int
}

// QuickfixType describes the kind of remediation.
type QuickfixType string

const (
	QuickfixReplace   QuickfixType = "REPLACE"
	QuickfixDelete    QuickfixType = "DELETE"
	QuickfixInsert    QuickfixType = "INSERT"
	QuickfixTransform QuickfixType = "TRANSFORM"
)

// Quickfix is a proposed automated remediation attached to a hint.
type Quickfix struct {
	ID          string
	Type        QuickfixType
	Title       string
	File        string
	Search      string
	Replacement string
}

// Hint is one finding from an analysis run.
type Hint struct {
	ID         string
	Title      string
	RuleID     string
	Category   string
	Effort     int
	Location   Location
	Report     string
	Complete   bool
	Quickfixes []Quickfix
}

// Summary holds aggregate result metadata; ExecutedTimestamp identifies the run.
type Summary struct {
	ExecutedTimestamp string
	ReportPath        string
	OutputLocation    string
	HintCount         int
	QuickfixCount     int
}

// Options are the analysis settings of a configuration.
type Options struct {
	Input  []string
	Target []string
	Source []string
	Output string
}

// Configuration is a named analysis run definition with its own result set.
type Configuration struct {
	ID      string
	Name    string
	Options Options
	Summary *Summary
	Hints   []*Hint

	// ledger of completed hint IDs; kept in step with Hint.Complete by SetComplete.
	completed map[string]struct{}
}

// NewConfiguration creates an empty configuration. An empty id gets a fresh UUID.
func NewConfiguration(id, name string) *Configuration {
	if id == "" {
		id = uuid.NewString()
	}
	return &Configuration{
		ID:        id,
		Name:      name,
		completed: make(map[string]struct{}),
	}
}

// Hint returns the hint with the given ID or nil.
func (c *Configuration) Hint(id string) *Hint {
	for _, h := range c.Hints {
		if h.ID == id {
			return h
		}
	}
	return nil
}

// SetComplete marks the hint complete and records it in the configuration ledger.
// Either both change or neither does.
func (c *Configuration) SetComplete(hintID string) error {
	h := c.Hint(hintID)
	if h == nil {
		return fmt.Errorf("%w %q in configuration %q", ErrUnknownHint, hintID, c.Name)
	}
	if c.completed == nil {
		c.completed = make(map[string]struct{})
	}
	c.completed[hintID] = struct{}{}
	h.Complete = true
	return nil
}

// IsIssueComplete reports whether the ledger lists the hint as complete.
func (c *Configuration) IsIssueComplete(hintID string) bool {
	_, ok := c.completed[hintID]
	return ok
}

// CompletedIssues returns the ledger in sorted order.
func (c *Configuration) CompletedIssues() []string {
	out := make([]string, 0, len(c.completed))
	for id := range c.completed {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Sync reconciles the ledger with the per-hint flags after decoding: a hint is
// complete if either side says so. IDs are assigned to hints and quickfixes that lack one.
func (c *Configuration) Sync(ledger []string) {
	if c.completed == nil {
		c.completed = make(map[string]struct{}, len(ledger))
	}
	for _, id := range ledger {
		c.completed[id] = struct{}{}
	}
	for _, h := range c.Hints {
		if h.ID == "" {
			h.ID = uuid.NewString()
		}
		for i := range h.Quickfixes {
			if h.Quickfixes[i].ID == "" {
				h.Quickfixes[i].ID = uuid.NewString()
			}
		}
		if h.Complete {
			c.completed[h.ID] = struct{}{}
		} else if _, ok := c.completed[h.ID]; ok {
			h.Complete = true
		}
	}
}

// ApplyResults installs the output of an analysis run. Hints keep their
// completion state when their ID survives the run.
func (c *Configuration) ApplyResults(summary Summary, hints []*Hint) {
	qf := 0
	for _, h := range hints {
		qf += len(h.Quickfixes)
	}
	summary.HintCount = len(hints)
	summary.QuickfixCount = qf
	c.Summary = &summary
	c.Hints = hints
	c.Sync(nil)
}

// Model is the full in-memory domain model.
type Model struct {
	Configurations []*Configuration
}

// New returns an empty model.
func New() *Model {
	return &Model{Configurations: make([]*Configuration, 0)}
}

// Configuration returns the configuration with the given ID or nil.
func (m *Model) Configuration(id string) *Configuration {
	if m == nil {
		return nil
	}
	for _, c := range m.Configurations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// ConfigurationByName looks a configuration up by name. Names are compared in NFC form.
func (m *Model) ConfigurationByName(name string) *Configuration {
	if m == nil {
		return nil
	}
	want := NormalizeName(name)
	for _, c := range m.Configurations {
		if NormalizeName(c.Name) == want {
			return c
		}
	}
	return nil
}

// Add appends a configuration.
func (m *Model) Add(c *Configuration) {
	m.Configurations = append(m.Configurations, c)
}

// Remove deletes the configuration with the given ID.
func (m *Model) Remove(id string) error {
	for i, c := range m.Configurations {
		if c.ID == id {
			m.Configurations = append(m.Configurations[:i], m.Configurations[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w %q", ErrUnknownConfiguration, id)
}

// NormalizeName trims and NFC-normalises a configuration name.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
