// Package observ aggregates wall-clock timings of model service phases for
// the --timings report.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Timer accumulates durations per phase name. A TUI session reloads many
// times, so repeated phases are folded into one row. A nil *Timer is valid
// and records nothing.
type Timer struct {
	mu     sync.Mutex
	order  []string
	phases map[string]*phase
}

type phase struct {
	runs  int
	total time.Duration
	max   time.Duration
	note  string // from the latest run
}

func NewTimer() *Timer {
	return &Timer{phases: make(map[string]*phase)}
}

// Begin starts a run of the named phase. The returned func ends it; note
// annotates the row.
func (t *Timer) Begin(name string) func(note string) {
	if t == nil {
		return func(string) {}
	}
	start := time.Now()
	return func(note string) {
		t.record(name, time.Since(start), note)
	}
}

func (t *Timer) record(name string, d time.Duration, note string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.phases[name]
	if !ok {
		p = &phase{}
		t.phases[name] = p
		t.order = append(t.order, name)
	}
	p.runs++
	p.total += d
	p.max = max(p.max, d)
	p.note = note
}

// PhaseReport is one row of the report.
type PhaseReport struct {
	Name    string  `json:"name"`
	Runs    int     `json:"runs"`
	TotalMS float64 `json:"total_ms"`
	MaxMS   float64 `json:"max_ms"`
	Note    string  `json:"note,omitempty"`
}

// Report lists phases in the order they first ran.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var rep Report
	for _, name := range t.order {
		p := t.phases[name]
		rep.Phases = append(rep.Phases, PhaseReport{
			Name:    name,
			Runs:    p.runs,
			TotalMS: millis(p.total),
			MaxMS:   millis(p.max),
			Note:    p.note,
		})
		rep.TotalMS += millis(p.total)
	}
	return rep
}

// Summary renders the report as an aligned table.
func (t *Timer) Summary() string {
	rep := t.Report()
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range rep.Phases {
		fmt.Fprintf(&b, "  %-12s %4dx %9.2f ms", p.Name, p.Runs, p.TotalMS)
		if p.Runs > 1 {
			fmt.Fprintf(&b, "  (max %.2f ms)", p.MaxMS)
		}
		if p.Note != "" {
			b.WriteString("  // " + p.Note)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-12s       %9.2f ms\n", "total", rep.TotalMS)
	return b.String()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
