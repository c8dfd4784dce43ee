// Package trace records structured spans for the escript driver.
//
// A Tracer receives begin/end/point events. StreamTracer writes them as they
// arrive (text or NDJSON), RingTracer keeps the most recent ones in memory for
// dumping after a failure, and MultiTracer fans out to several tracers.
//
//	t, _ := trace.New(trace.Config{Level: trace.LevelPhase, Mode: trace.ModeStream})
//	ctx = trace.WithTracer(ctx, t)
//
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "compile", 0)
//	defer span.End("")
//
// Scopes from coarse to fine: driver (one CLI command), pass (lex, compile,
// assemble, execute), unit (one source file), func (one VM call).
package trace
