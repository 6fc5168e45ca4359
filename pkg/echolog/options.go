package echolog

import (
	"fmt"
	"io"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Lifecycle events that can be toggled through Options.LogEvents.
const (
	// EventResponse is the "request completed" record.
	EventResponse = "response"
	// EventRequestError is the error-level record for failing requests.
	EventRequestError = "request-error"
	// EventServerStart is the "server started" record.
	EventServerStart = "server-start"
	// EventServerStop is the "server stopped" record.
	EventServerStop = "server-stop"
)

// Wildcard in an event-tag suppression set means "suppress nothing".
const Wildcard = "*"

// NoEvents disables all lifecycle events when assigned to Options.LogEvents.
var NoEvents = []string{}

// Predicate decides a per-request toggle. Use Always or Never for the
// static variants.
type Predicate func(c echo.Context) bool

// Always is a Predicate that is true for every request.
func Always(echo.Context) bool { return true }

// Never is a Predicate that is false for every request.
func Never(echo.Context) bool { return false }

// MessageFunc builds a record message for a request.
type MessageFunc func(c echo.Context) string

// Serializer transforms a raw value (request, response, error) into the
// shape attached to log records.
type Serializer func(v any) any

// Serializers holds the per-kind serializers. Each is independently
// overridable; see Options.RawSerializers for wrapping semantics.
type Serializers struct {
	Req Serializer
	Res Serializer
	Err Serializer
}

// EventTagFilter suppresses tagged log events per channel. An event whose
// tags intersect the channel's set is dropped before level resolution.
// A nil set, or one containing Wildcard, suppresses nothing.
type EventTagFilter struct {
	Request []string
	Server  []string
}

// Options configures a Plugin. The zero value is usable: completion records
// at info level for every request, start records off, default tag table,
// catch-all "info", JSON sink on stdout.
//
// Options are snapshotted by New; mutating them afterwards has no effect.
type Options struct {
	// Stream is the sink for a plugin-built logger. Defaults to stdout.
	// Ignored when Instance is set.
	Stream io.Writer

	// Instance is a pre-built sink. Its level set and encoder settings
	// (including the message key) take precedence over Stream, Level,
	// MessageKey and Redact.
	Instance *zap.Logger

	// Level is the minimum level for a plugin-built logger ("trace",
	// "debug", "info", "warn", "error"). Defaults to "info".
	Level string

	// Tags overlays the default tag table (each standard severity name
	// mapped to itself). Values must be recognized level names.
	Tags map[string]string

	// AllTags is the catch-all level used when none of an event's tags
	// match the tag table. Defaults to "info".
	AllTags string

	// Serializers overrides the req/res/err serializers.
	Serializers Serializers

	// RawSerializers hands custom serializers the raw value instead of the
	// default-serialized form. By default a custom serializer wraps the
	// default one and receives its output.
	RawSerializers bool

	// LogEvents lists the enabled lifecycle events (EventResponse,
	// EventRequestError, EventServerStart, EventServerStop). Nil enables
	// all; NoEvents disables all.
	LogEvents []string

	// MergeLogData spreads a tagged event's map payload at the top level of
	// the record instead of nesting it under "data". Primitive payloads are
	// carried under the message key.
	MergeLogData bool

	// MessageKey names the encoder's message key for a plugin-built logger.
	// Defaults to "msg".
	MessageKey string

	// GetChildBindings computes the per-request logger bindings. Defaults
	// to binding the serialized request under "req".
	GetChildBindings func(c echo.Context) []zap.Field

	// LogRequestStart gates the "request start" record. Nil means off.
	LogRequestStart Predicate

	// LogRequestComplete gates the "request completed" record. Nil means
	// log every completion.
	LogRequestComplete Predicate

	// CustomRequestStartMessage overrides the "request start" message.
	CustomRequestStartMessage MessageFunc

	// CustomRequestCompleteMessage overrides the "request completed" message.
	CustomRequestCompleteMessage MessageFunc

	// CustomRequestErrorMessage overrides the request-error message
	// (default: the error's message).
	CustomRequestErrorMessage MessageFunc

	// LogPayload includes the request body on the completion record.
	LogPayload bool

	// LogQueryParams includes the query parameters on the completion record.
	LogQueryParams bool

	// LogPathParams includes the path parameters on the completion record.
	LogPathParams bool

	// LogRouteTags includes the matched route's tags on the completion record.
	LogRouteTags bool

	// Log4xxResponseErrors includes the response body on completion records
	// with a 4xx status.
	Log4xxResponseErrors bool

	// IgnorePaths lists request paths whose lifecycle produces no output.
	IgnorePaths []string

	// IgnoreTags lists route tags whose routes produce no output.
	IgnoreTags []string

	// IgnoreFunc, when set, takes full precedence over IgnorePaths and
	// IgnoreTags: they are never consulted.
	IgnoreFunc func(opts Options, c echo.Context) bool

	// IgnoredEventTags suppresses tagged log events per channel.
	// Defaults to the wildcard on both channels (suppress nothing).
	IgnoredEventTags EventTagFilter

	// RouteTags maps a registered route path (echo.Context.Path) to its
	// tags, consulted by IgnoreTags and LogRouteTags.
	RouteTags map[string][]string

	// Redact lists extra field names redacted by a plugin-built logger.
	Redact []string
}

// clone deep-copies the caller-owned parts of o so the snapshot held by the
// Plugin is immune to later mutation.
func (o Options) clone() Options {
	o.Tags = cloneStringMap(o.Tags)
	o.LogEvents = cloneStrings(o.LogEvents)
	o.IgnorePaths = cloneStrings(o.IgnorePaths)
	o.IgnoreTags = cloneStrings(o.IgnoreTags)
	o.Redact = cloneStrings(o.Redact)
	o.IgnoredEventTags.Request = cloneStrings(o.IgnoredEventTags.Request)
	o.IgnoredEventTags.Server = cloneStrings(o.IgnoredEventTags.Server)
	if o.RouteTags != nil {
		m := make(map[string][]string, len(o.RouteTags))
		for k, v := range o.RouteTags {
			m[k] = cloneStrings(v)
		}
		o.RouteTags = m
	}
	return o
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ConfigurationError reports an invalid Options value at New time.
// No event wiring is performed when New fails.
type ConfigurationError struct {
	Option string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("echolog: invalid configuration for %q: %s", e.Option, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
