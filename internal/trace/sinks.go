package trace

import (
	"bufio"
	"io"
	"sync"
)

// level is embedded by every sink.
type level Level

func (l level) Level() Level  { return Level(l) }
func (l level) Enabled() bool { return Level(l) > LevelOff }

// StreamTracer writes every event as it arrives. Output is buffered until
// Flush or Close.
type StreamTracer struct {
	level
	format Format

	mu  sync.Mutex
	out io.Writer
	buf *bufio.Writer
	seq uint64
}

// NewStreamTracer writes events at or below lvl to w.
func NewStreamTracer(w io.Writer, lvl Level, format Format) *StreamTracer {
	return &StreamTracer{level: level(lvl), format: format, out: w, buf: bufio.NewWriter(w)}
}

func (t *StreamTracer) Emit(ev *Event) {
	if !passes(Level(t.level), ev) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	rec := *ev
	rec.Seq = t.seq
	// a failed trace write never fails the traced operation
	_, _ = t.buf.Write(FormatEvent(&rec, t.format))
}

func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.Flush()
}

// Close flushes and closes the destination when it is closable.
func (t *StreamTracer) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	if c, ok := t.out.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// RingTracer keeps the most recent events in memory.
type RingTracer struct {
	level

	mu    sync.Mutex
	slots []Event
	next  int // slot the next event goes to
	count int
	seq   uint64
}

// NewRingTracer keeps up to size events; size <= 0 means DefaultRingSize.
func NewRingTracer(size int, lvl Level) *RingTracer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingTracer{level: level(lvl), slots: make([]Event, size)}
}

func (t *RingTracer) Emit(ev *Event) {
	if !passes(Level(t.level), ev) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.slots[t.next] = *ev
	t.slots[t.next].Seq = t.seq
	t.next = (t.next + 1) % len(t.slots)
	if t.count < len(t.slots) {
		t.count++
	}
}

// Snapshot returns the stored events oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	start := (t.next - t.count + len(t.slots)) % len(t.slots)
	out := make([]Event, 0, t.count)
	for i := 0; i < t.count; i++ {
		out = append(out, t.slots[(start+i)%len(t.slots)])
	}
	return out
}

// Dump writes the stored events to w, oldest first.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	bw := bufio.NewWriter(w)
	for _, ev := range t.Snapshot() {
		if _, err := bw.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (t *RingTracer) Flush() error { return nil }
func (t *RingTracer) Close() error { return nil }

// tee sends every event to a stream and a ring.
type tee struct {
	level
	sinks []Tracer
}

func (t *tee) Emit(ev *Event) {
	for _, s := range t.sinks {
		s.Emit(ev)
	}
}

func (t *tee) Flush() error {
	var first error
	for _, s := range t.sinks {
		if err := s.Flush(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t *tee) Close() error {
	var first error
	for _, s := range t.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Ring returns the ring sink of a ring or ring+stream tracer.
func Ring(t Tracer) (*RingTracer, bool) {
	switch v := t.(type) {
	case *RingTracer:
		return v, true
	case *tee:
		for _, s := range v.sinks {
			if r, ok := s.(*RingTracer); ok {
				return r, true
			}
		}
	}
	return nil, false
}
