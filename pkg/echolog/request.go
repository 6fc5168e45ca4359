package echolog

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// stateKey stores the per-request state on the echo.Context.
const stateKey = "github.com/fyrsmithlabs/echolog"

// maxLoggedBodyBytes caps request/response bodies attached to records. The
// handler still sees the full body; only the logged copy is truncated.
const maxLoggedBodyBytes = 16 * 1024

// requestState is the per-request bookkeeping. One-shot outcomes are
// explicit fields rather than truthiness probes on possibly-absent values.
type requestState struct {
	logger *zap.Logger

	ignored         bool
	startEmitted    bool
	errorEmitted    bool
	completeEmitted bool

	receivedAt  time.Time
	respondedAt time.Time
	completedAt time.Time

	payload []byte
	resBody *bytes.Buffer
}

func stateFrom(c echo.Context) *requestState {
	s, _ := c.Get(stateKey).(*requestState)
	return s
}

// Logger returns the request-scoped logger attached by the plugin
// middleware. Ignored requests, and requests that never passed through the
// middleware, get a no-op logger, so callers can log unconditionally.
func Logger(c echo.Context) *zap.Logger {
	if s := stateFrom(c); s != nil && s.logger != nil {
		return s.logger
	}
	return zap.NewNop()
}

// capturePayload drains and restores the request body, keeping a capped
// copy for the completion record.
func (s *requestState) capturePayload(r *http.Request) {
	if r.Body == nil {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	if len(body) > maxLoggedBodyBytes {
		body = body[:maxLoggedBodyBytes]
	}
	s.payload = body
}

// payloadField renders the captured body: raw JSON stays JSON, anything
// else is logged as a string.
func (s *requestState) payloadField() zap.Field {
	if json.Valid(s.payload) {
		return zap.Any("payload", json.RawMessage(s.payload))
	}
	return zap.ByteString("payload", s.payload)
}

// bodyCaptureWriter tees response writes into a capped buffer so 4xx
// response bodies can ride on the completion record.
type bodyCaptureWriter struct {
	http.ResponseWriter
	buf *bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	if remaining := maxLoggedBodyBytes - w.buf.Len(); remaining > 0 {
		n := remaining
		if n > len(b) {
			n = len(b)
		}
		w.buf.Write(b[:n])
	}
	return w.ResponseWriter.Write(b)
}

func (w *bodyCaptureWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// pathParams builds a name→value map from the matched route parameters.
func pathParams(c echo.Context) map[string]string {
	names := c.ParamNames()
	if len(names) == 0 {
		return nil
	}
	values := c.ParamValues()
	m := make(map[string]string, len(names))
	for i, name := range names {
		if i < len(values) {
			m[name] = values[i]
		}
	}
	return m
}
