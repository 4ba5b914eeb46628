package trace

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestLevelFiltersScopes(t *testing.T) {
	ring := NewRingTracer(16, LevelPhase)
	Begin(ring, ScopeService, "reload", 0).End("")
	Begin(ring, ScopeNode, "compute", 0).End("")
	Error(ring, ScopeNode, "compute", errors.New("boom"))

	events := ring.Snapshot()
	if len(events) != 3 {
		t.Fatalf("expected 3 events (service begin/end + error), got %d", len(events))
	}
	if events[2].Kind != KindError || events[2].Detail != "boom" {
		t.Fatalf("unexpected last event %+v", events[2])
	}
	for i, ev := range events {
		if ev.Seq != uint64(i+1) {
			t.Fatalf("event %d has seq %d", i, ev.Seq)
		}
	}
}

func TestErrorLevelRecordsOnlyFailures(t *testing.T) {
	ring := NewRingTracer(8, LevelError)
	Begin(ring, ScopeSession, "start", 0).End("")
	Point(ring, ScopeSession, "note", "")
	Error(ring, ScopeService, "save", errors.New("disk full"))
	if events := ring.Snapshot(); len(events) != 1 || events[0].Kind != KindError {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestRingWrapsInOrder(t *testing.T) {
	ring := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(ring, ScopeNode, name, "")
	}
	events := ring.Snapshot()
	if len(events) != 2 || events[0].Name != "b" || events[1].Name != "c" {
		t.Fatalf("unexpected snapshot %+v", events)
	}
}

func TestStreamNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelDetail, Mode: ModeStream, Format: FormatNDJSON, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	Begin(tr, ScopeTree, "reset", 0).WithExtra("nodes", "4").End("done")
	if err := tr.Flush(); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if !strings.Contains(lines[1], `"nodes":"4"`) || !strings.Contains(lines[1], `"kind":"end"`) {
		t.Fatalf("unexpected end line %s", lines[1])
	}
}

func TestBothModeKeepsRing(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf, RingSize: 4})
	if err != nil {
		t.Fatal(err)
	}
	Point(tr, ScopeService, "open", "model.json")
	ring, ok := Ring(tr)
	if !ok {
		t.Fatal("no ring in both mode")
	}
	var dump bytes.Buffer
	if err := ring.Dump(&dump, FormatText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dump.String(), "• service:open (model.json)") {
		t.Fatalf("dump = %q", dump.String())
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "service:open") {
		t.Fatalf("stream = %q", buf.String())
	}
}

func TestFromContextDefaultsToNop(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("expected Nop")
	}
	ring := NewRingTracer(4, LevelDebug)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Fatalf("tracer not propagated")
	}
}

func TestParseLevel(t *testing.T) {
	if l, err := ParseLevel("DETAIL"); err != nil || l != LevelDetail {
		t.Fatalf("ParseLevel: %v %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error")
	}
	if LevelDebug.String() != "debug" || !LevelDebug.ShouldEmit(ScopeNode) || LevelDetail.ShouldEmit(ScopeNode) {
		t.Fatal("level table out of order")
	}
}
