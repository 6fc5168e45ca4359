package echolog

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// defaultReqSerializer flattens an *http.Request into the fields worth
// carrying on every request record. Non-request values pass through.
func defaultReqSerializer(v any) any {
	r, ok := v.(*http.Request)
	if !ok {
		return v
	}
	m := map[string]any{
		"method":        r.Method,
		"url":           r.URL.String(),
		"host":          r.Host,
		"remoteAddress": r.RemoteAddr,
	}
	if id := r.Header.Get(echo.HeaderXRequestID); id != "" {
		m["id"] = id
	}
	if ua := r.Header.Get("User-Agent"); ua != "" {
		m["userAgent"] = ua
	}
	return m
}

// defaultResSerializer flattens an *echo.Response. A zero status (premature
// connection close before any write) is omitted rather than reported as 0.
func defaultResSerializer(v any) any {
	res, ok := v.(*echo.Response)
	if !ok {
		return v
	}
	m := map[string]any{
		"size": res.Size,
	}
	if res.Status > 0 {
		m["statusCode"] = res.Status
	}
	return m
}

// defaultErrSerializer flattens an error, surfacing the HTTP status for
// echo.HTTPError values.
func defaultErrSerializer(v any) any {
	err, ok := v.(error)
	if !ok {
		return v
	}
	m := map[string]any{
		"message": err.Error(),
		"type":    fmt.Sprintf("%T", err),
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		m["statusCode"] = he.Code
	}
	return m
}

// serializerSet is the effective set after applying Options overrides.
type serializerSet struct {
	req Serializer
	res Serializer
	err Serializer
}

// newSerializerSet layers custom serializers over the defaults. Custom
// serializers receive the default's output unless RawSerializers is set.
func newSerializerSet(o Options) serializerSet {
	layer := func(custom, def Serializer) Serializer {
		switch {
		case custom == nil:
			return def
		case o.RawSerializers:
			return custom
		default:
			return func(v any) any { return custom(def(v)) }
		}
	}
	return serializerSet{
		req: layer(o.Serializers.Req, defaultReqSerializer),
		res: layer(o.Serializers.Res, defaultResSerializer),
		err: layer(o.Serializers.Err, defaultErrSerializer),
	}
}
