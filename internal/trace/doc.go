// Package trace records spans and point events for the model service and the
// node tree, so slow loads and refresh storms can be diagnosed after the fact.
//
//	surveyor view --trace=trace.ndjson --trace-level=detail
//
// Events go to a sink chosen by StorageMode: a stream (file or stderr), a ring
// of the last N events that the CLI dumps when a command fails, or both.
//
// LevelPhase records session and service events (open, save, reload),
// LevelDetail adds tree refresh and reset, LevelDebug adds per-node
// computation. Failures recorded with Error pass at every level but off.
//
// The tracer travels in the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeService, "reload", 0)
//	defer span.End("")
package trace
