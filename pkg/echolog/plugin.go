package echolog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/echolog/internal/logging"
)

// Channel names used in metrics labels.
const (
	channelRequest   = "request"
	channelServer    = "server"
	channelLifecycle = "lifecycle"
)

// Plugin routes lifecycle events to the sink. Immutable after New; safe for
// concurrent use.
type Plugin struct {
	opts Options
	log  *zap.Logger

	tagLevels map[string]zapcore.Level
	catchAll  zapcore.Level

	serializers serializerSet

	ignorePaths map[string]bool
	ignoreTags  map[string]bool

	requestTagFilter map[string]bool
	serverTagFilter  map[string]bool

	events  map[string]bool
	metrics *routerMetrics
}

// New validates opts, snapshots them, and builds the router. Any tag mapped
// to an unrecognized level, an unrecognized catch-all level, or an unknown
// event name fails with a *ConfigurationError before anything is wired.
func New(opts Options) (*Plugin, error) {
	opts = opts.clone()
	if opts.MessageKey == "" {
		opts.MessageKey = "msg"
	}
	if opts.AllTags == "" {
		opts.AllTags = "info"
	}

	tagLevels, err := buildTagLevels(opts.Tags)
	if err != nil {
		return nil, err
	}

	catchAll, err := logging.LevelFromString(opts.AllTags)
	if err != nil {
		return nil, &ConfigurationError{Option: "allTags", Reason: "unrecognized catch-all level", Err: err}
	}

	events := make(map[string]bool, 4)
	if opts.LogEvents == nil {
		events[EventResponse] = true
		events[EventRequestError] = true
		events[EventServerStart] = true
		events[EventServerStop] = true
	} else {
		for _, ev := range opts.LogEvents {
			switch ev {
			case EventResponse, EventRequestError, EventServerStart, EventServerStop:
				events[ev] = true
			default:
				return nil, &ConfigurationError{Option: "logEvents", Reason: fmt.Sprintf("unknown event %q", ev)}
			}
		}
	}

	sink := opts.Instance
	if sink == nil {
		cfg := logging.NewDefaultConfig()
		cfg.MessageKey = opts.MessageKey
		if opts.Level != "" {
			lvl, lerr := logging.LevelFromString(opts.Level)
			if lerr != nil {
				return nil, &ConfigurationError{Option: "level", Reason: "unrecognized level", Err: lerr}
			}
			cfg.Level = lvl
		}
		cfg.Redaction.Fields = append(cfg.Redaction.Fields, opts.Redact...)
		built, berr := logging.NewLoggerWithWriter(cfg, opts.Stream, nil)
		if berr != nil {
			return nil, &ConfigurationError{Option: "stream", Reason: "failed to build logger", Err: berr}
		}
		sink = built.Underlying()
	}

	p := &Plugin{
		opts:             opts,
		log:              sink,
		tagLevels:        tagLevels,
		catchAll:         catchAll,
		serializers:      newSerializerSet(opts),
		ignorePaths:      toSet(opts.IgnorePaths),
		ignoreTags:       toSet(opts.IgnoreTags),
		requestTagFilter: eventTagSet(opts.IgnoredEventTags.Request),
		serverTagFilter:  eventTagSet(opts.IgnoredEventTags.Server),
		events:           events,
	}
	p.metrics = newRouterMetrics(sink)
	return p, nil
}

// Attach wires the plugin into an Echo instance: the request middleware plus
// the wrapped HTTP error handler.
func (p *Plugin) Attach(e *echo.Echo) {
	e.Use(p.Middleware())
	e.HTTPErrorHandler = p.ErrorHandler(e.HTTPErrorHandler)
}

// Middleware returns the request lifecycle middleware. Handler errors are
// routed through the (wrapped) error handler before the completion record,
// so completion logs the final status.
func (p *Plugin) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			st := p.onRequestStart(c)
			if err := next(c); err != nil {
				c.Error(err)
			}
			p.onRequestComplete(c, st)
			return nil
		}
	}
}

// ErrorHandler wraps an HTTP error handler with the request-error record.
func (p *Plugin) ErrorHandler(next echo.HTTPErrorHandler) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		p.onRequestError(c, err)
		if next != nil {
			next(err, c)
		}
	}
}

func (p *Plugin) onRequestStart(c echo.Context) *requestState {
	st := &requestState{receivedAt: time.Now()}
	c.Set(stateKey, st)

	if p.ignored(c) {
		st.ignored = true
		st.logger = zap.NewNop()
		p.metrics.recordSuppressed(c.Request().Context(), "ignored-request")
		return st
	}

	if p.opts.LogPayload {
		st.capturePayload(c.Request())
	}
	res := c.Response()
	if p.opts.Log4xxResponseErrors {
		st.resBody = &bytes.Buffer{}
		res.Writer = &bodyCaptureWriter{ResponseWriter: res.Writer, buf: st.resBody}
	}
	res.After(func() { st.completedAt = time.Now() })

	bindings := p.childBindings(c)
	startEnabled := p.opts.LogRequestStart != nil && p.opts.LogRequestStart(c)
	var startReq zap.Field
	if startEnabled {
		// The start record carries the request; strip it from the child
		// bindings so the completion record does not repeat it. Custom
		// bindings own the representation, so a caller-supplied "req"
		// moves onto the start record instead of being replaced.
		startReq = zap.Any("req", p.serializers.req(c.Request()))
		for _, f := range bindings {
			if f.Key == "req" {
				startReq = f
				break
			}
		}
		bindings = withoutField(bindings, "req")
	}
	st.logger = p.log.With(bindings...)

	// Expose the request logger to code that only sees a context.Context.
	req := c.Request()
	c.SetRequest(req.WithContext(logging.WithLogger(req.Context(), logging.Wrap(st.logger))))

	if startEnabled {
		msg := "request start"
		if p.opts.CustomRequestStartMessage != nil {
			msg = p.opts.CustomRequestStartMessage(c)
		}
		st.logger.Info(msg, startReq)
		st.startEmitted = true
		p.metrics.recordEmitted(req.Context(), "info", channelRequest)
	}
	return st
}

func (p *Plugin) onRequestComplete(c echo.Context, st *requestState) {
	if st.ignored || st.completeEmitted {
		return
	}
	st.respondedAt = time.Now()
	ctx := c.Request().Context()

	if !p.events[EventResponse] {
		p.metrics.recordSuppressed(ctx, "disabled")
		return
	}
	if p.opts.LogRequestComplete != nil && !p.opts.LogRequestComplete(c) {
		p.metrics.recordSuppressed(ctx, "predicate")
		return
	}

	// Prefer the response-written timestamp: it covers premature
	// connection close, where the handler return time is misleading.
	end := st.completedAt
	if end.IsZero() {
		end = st.respondedAt
	}

	fields := []zap.Field{
		zap.Any("res", p.serializers.res(c.Response())),
		zap.Int64("responseTime", end.Sub(st.receivedAt).Milliseconds()),
	}
	if p.opts.LogPayload && st.payload != nil {
		fields = append(fields, st.payloadField())
	}
	if p.opts.LogQueryParams {
		if q := c.QueryParams(); len(q) > 0 {
			fields = append(fields, zap.Any("queryParams", map[string][]string(q)))
		}
	}
	if p.opts.LogPathParams {
		if params := pathParams(c); params != nil {
			fields = append(fields, zap.Any("pathParams", params))
		}
	}
	if p.opts.LogRouteTags {
		if tags := p.routeTags(c); len(tags) > 0 {
			fields = append(fields, zap.Strings("routeTags", tags))
		}
	}
	if p.opts.Log4xxResponseErrors && st.resBody != nil {
		if status := c.Response().Status; status >= 400 && status < 500 && st.resBody.Len() > 0 {
			fields = append(fields, zap.String("responseError", st.resBody.String()))
		}
	}

	msg := "request completed"
	if p.opts.CustomRequestCompleteMessage != nil {
		msg = p.opts.CustomRequestCompleteMessage(c)
	}
	st.logger.Info(msg, fields...)
	st.completeEmitted = true
	p.metrics.recordEmitted(ctx, "info", channelRequest)
}

func (p *Plugin) onRequestError(c echo.Context, err error) {
	st := stateFrom(c)
	if st != nil && (st.ignored || st.errorEmitted) {
		return
	}
	ctx := c.Request().Context()
	if !p.events[EventRequestError] {
		p.metrics.recordSuppressed(ctx, "disabled")
		return
	}

	lg := p.log
	if st != nil && st.logger != nil {
		lg = st.logger
	}
	msg := err.Error()
	if p.opts.CustomRequestErrorMessage != nil {
		msg = p.opts.CustomRequestErrorMessage(c)
	}
	lg.Error(msg, zap.Any("err", p.serializers.err(err)))
	if st != nil {
		st.errorEmitted = true
	}
	p.metrics.recordEmitted(ctx, "error", channelRequest)
}

// Log routes a tagged record through the server channel.
func (p *Plugin) Log(tags []string, data any) {
	p.logEvent(context.Background(), p.log, channelServer, p.serverTagFilter, tags, data, nil)
}

// LogError routes an error record through the server channel. The record
// always lands at error level regardless of tag mappings.
func (p *Plugin) LogError(tags []string, err error, data any) {
	p.logEvent(context.Background(), p.log, channelServer, p.serverTagFilter, tags, data, err)
}

// RequestLog routes a tagged record through the request channel, on the
// request's child logger. Ignored requests emit nothing.
func (p *Plugin) RequestLog(c echo.Context, tags []string, data any) {
	p.requestLogEvent(c, tags, data, nil)
}

// RequestLogError is the error-carrying form of RequestLog.
func (p *Plugin) RequestLogError(c echo.Context, tags []string, err error, data any) {
	p.requestLogEvent(c, tags, data, err)
}

func (p *Plugin) requestLogEvent(c echo.Context, tags []string, data any, err error) {
	ctx := c.Request().Context()
	st := stateFrom(c)
	if st == nil || st.ignored {
		p.metrics.recordSuppressed(ctx, "ignored-request")
		return
	}
	p.logEvent(ctx, st.logger, channelRequest, p.requestTagFilter, tags, data, err)
}

// logEvent is the shared tagged-event path: per-channel tag suppression,
// error short-circuit, level resolution, payload shaping.
func (p *Plugin) logEvent(ctx context.Context, lg *zap.Logger, channel string, filter map[string]bool, tags []string, data any, err error) {
	if suppressedByEventTags(filter, tags) {
		p.metrics.recordSuppressed(ctx, "event-tags")
		return
	}
	if err != nil {
		fields := []zap.Field{
			zap.Any("err", p.serializers.err(err)),
			zap.Strings("tags", tags),
		}
		if data != nil {
			fields = append(fields, zap.Any("data", data))
		}
		lg.Error(err.Error(), fields...)
		p.metrics.recordEmitted(ctx, "error", channel)
		return
	}

	lvl := resolveLevel(p.tagLevels, p.catchAll, tags)
	if lvl > zapcore.ErrorLevel {
		// Fatal and panic levels carry terminating hooks in zap. Tagged
		// events are fire-and-forget records, so clamp to error.
		lvl = zapcore.ErrorLevel
	}
	msg, fields := p.eventPayload(tags, data)
	lg.Log(lvl, msg, fields...)
	p.metrics.recordEmitted(ctx, logging.LevelName(lvl), channel)
}

// eventPayload shapes a tagged event's payload. Merge mode spreads map
// payloads at the top level and carries primitives under the message key;
// otherwise everything nests under "data".
func (p *Plugin) eventPayload(tags []string, data any) (string, []zap.Field) {
	if !p.opts.MergeLogData {
		return "", []zap.Field{zap.Strings("tags", tags), zap.Any("data", data)}
	}
	switch d := data.(type) {
	case nil:
		return "", []zap.Field{zap.Strings("tags", tags)}
	case map[string]any:
		fields := make([]zap.Field, 0, len(d)+1)
		for k, v := range d {
			fields = append(fields, zap.Any(k, v))
		}
		fields = append(fields, zap.Strings("tags", tags))
		return "", fields
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return fmt.Sprint(d), []zap.Field{zap.Strings("tags", tags)}
	default:
		return "", []zap.Field{zap.Strings("tags", tags), zap.Any("data", d)}
	}
}

// childBindings computes the per-request logger bindings.
func (p *Plugin) childBindings(c echo.Context) []zap.Field {
	if p.opts.GetChildBindings != nil {
		return p.opts.GetChildBindings(c)
	}
	return []zap.Field{zap.Any("req", p.serializers.req(c.Request()))}
}

// withoutField filters a binding with the given key.
func withoutField(fields []zap.Field, key string) []zap.Field {
	out := fields[:0:0]
	for _, f := range fields {
		if f.Key != key {
			out = append(out, f)
		}
	}
	return out
}

// ServerInfo describes a listening server for lifecycle records.
type ServerInfo struct {
	Host string
	Port int
	URI  string
}

func serverFields(info ServerInfo) []zap.Field {
	return []zap.Field{
		zap.String("host", info.Host),
		zap.Int("port", info.Port),
		zap.String("uri", info.URI),
	}
}

func serverInfoFromAddr(addr string) ServerInfo {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return ServerInfo{URI: addr}
	}
	if host == "" {
		host = "0.0.0.0"
	}
	port, _ := strconv.Atoi(portStr)
	return ServerInfo{
		Host: host,
		Port: port,
		URI:  "http://" + net.JoinHostPort(host, portStr),
	}
}

// ServerStarted emits the "server started" record when enabled.
func (p *Plugin) ServerStarted(info ServerInfo) {
	if !p.events[EventServerStart] {
		p.metrics.recordSuppressed(context.Background(), "disabled")
		return
	}
	p.log.Info("server started", serverFields(info)...)
	p.metrics.recordEmitted(context.Background(), "info", channelLifecycle)
}

// ServerStopped emits the "server stopped" record when enabled.
func (p *Plugin) ServerStopped(info ServerInfo) {
	if !p.events[EventServerStop] {
		p.metrics.recordSuppressed(context.Background(), "disabled")
		return
	}
	p.log.Info("server stopped", serverFields(info)...)
	p.metrics.recordEmitted(context.Background(), "info", channelLifecycle)
}

// Start runs the Echo server on addr, emitting the lifecycle records around
// it. A graceful shutdown (http.ErrServerClosed) emits "server stopped" and
// returns the error unchanged.
func (p *Plugin) Start(e *echo.Echo, addr string) error {
	info := serverInfoFromAddr(addr)
	p.ServerStarted(info)
	err := e.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		p.ServerStopped(info)
	}
	return err
}

// Shutdown gracefully stops an Echo server started with Start. The "server
// stopped" record is emitted by Start as it unwinds, so pairing Start with
// Shutdown yields exactly one stopped record.
func (p *Plugin) Shutdown(ctx context.Context, e *echo.Echo) error {
	return e.Shutdown(ctx)
}
