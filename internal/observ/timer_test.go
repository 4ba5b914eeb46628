package observ

import (
	"strings"
	"testing"
)

func TestTimerFoldsRepeatedPhases(t *testing.T) {
	tm := NewTimer()
	tm.Begin("open")("1 configurations")
	for range 3 {
		tm.Begin("reload")("")
	}
	tm.Begin("reload")("2 configurations")

	rep := tm.Report()
	if len(rep.Phases) != 2 || rep.Phases[0].Name != "open" || rep.Phases[1].Name != "reload" {
		t.Fatalf("unexpected phases %+v", rep.Phases)
	}
	if r := rep.Phases[1]; r.Runs != 4 || r.Note != "2 configurations" || r.MaxMS > r.TotalMS {
		t.Fatalf("unexpected reload row %+v", r)
	}
	sum := tm.Summary()
	for _, want := range []string{"open", "4x", "max", "total"} {
		if !strings.Contains(sum, want) {
			t.Fatalf("summary missing %q:\n%s", want, sum)
		}
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	tm.Begin("save")("ignored")
	if rep := tm.Report(); len(rep.Phases) != 0 {
		t.Fatalf("expected empty report")
	}
}
