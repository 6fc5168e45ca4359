// Package echolog bridges Echo's request and server lifecycle to a
// structured zap logger.
//
// # Overview
//
// The plugin subscribes to lifecycle events and emits exactly one structured
// record per event, or suppresses it:
//   - request start and request completion (middleware)
//   - request errors (wrapped HTTP error handler)
//   - server started/stopped
//   - tagged application log calls on a request channel and a server channel
//
// Tagged calls carry caller-chosen string labels instead of a level name.
// Each tag maps to a level; multi-tag events resolve to the highest-severity
// mapped level, falling back to the catch-all level when no tag matches.
//
// # Usage
//
//	p, err := echolog.New(echolog.Options{
//	    IgnorePaths:     []string{"/health"},
//	    LogRequestStart: echolog.Always,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	e := echo.New()
//	p.Attach(e)
//
//	e.GET("/work", func(c echo.Context) error {
//	    echolog.Logger(c).Info("working")
//	    p.RequestLog(c, []string{"audit"}, map[string]any{"step": 1})
//	    return c.NoContent(http.StatusOK)
//	})
//
//	p.Start(e, ":8080")
//
// # Per-request loggers
//
// Every non-ignored request gets a child logger carrying the bindings from
// Options.GetChildBindings (default: the serialized request under "req").
// Ignored requests get a no-op logger, so handler code can log
// unconditionally through Logger(c).
//
// # Request field placement
//
// When the start record is emitted, it carries the serialized request and
// the completion record does not; otherwise the request rides on the child
// bindings and appears on the completion record. Across the two records of
// one request the "req" key appears at most once. This holds even when
// custom bindings omit "req" (the start record still injects the default
// serialization) and when they supply their own "req" (that value moves
// onto the start record instead of being replaced).
//
// # Concurrency
//
// A Plugin is immutable after New and safe for concurrent use. Per-request
// state lives on the request's echo.Context; nothing is shared between
// in-flight requests.
package echolog
