package echolog

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testContext(target, routePath string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath(routePath)
	return c
}

func TestIgnored(t *testing.T) {
	tests := []struct {
		name   string
		opts   Options
		target string
		route  string
		want   bool
	}{
		{
			name:   "no rules",
			opts:   Options{},
			target: "/work",
			route:  "/work",
			want:   false,
		},
		{
			name:   "path match",
			opts:   Options{IgnorePaths: []string{"/health"}},
			target: "/health",
			route:  "/health",
			want:   true,
		},
		{
			name:   "path miss",
			opts:   Options{IgnorePaths: []string{"/health"}},
			target: "/work",
			route:  "/work",
			want:   false,
		},
		{
			name: "route tag match",
			opts: Options{
				IgnoreTags: []string{"metrics"},
				RouteTags:  map[string][]string{"/metrics": {"metrics", "internal"}},
			},
			target: "/metrics",
			route:  "/metrics",
			want:   true,
		},
		{
			name: "route tag miss",
			opts: Options{
				IgnoreTags: []string{"metrics"},
				RouteTags:  map[string][]string{"/metrics": {"metrics"}},
			},
			target: "/work",
			route:  "/work",
			want:   false,
		},
		{
			name: "predicate overrides matching path",
			opts: Options{
				IgnorePaths: []string{"/health"},
				IgnoreFunc:  func(opts Options, c echo.Context) bool { return false },
			},
			target: "/health",
			route:  "/health",
			want:   false,
		},
		{
			name: "predicate overrides matching tag",
			opts: Options{
				IgnoreTags: []string{"metrics"},
				RouteTags:  map[string][]string{"/metrics": {"metrics"}},
				IgnoreFunc: func(opts Options, c echo.Context) bool { return false },
			},
			target: "/metrics",
			route:  "/metrics",
			want:   false,
		},
		{
			name: "predicate ignores an unlisted path",
			opts: Options{
				IgnoreFunc: func(opts Options, c echo.Context) bool {
					return c.Request().URL.Path == "/private"
				},
			},
			target: "/private",
			route:  "/private",
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Instance = zap.NewNop()
			p, err := New(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.ignored(testContext(tt.target, tt.route)))
		})
	}
}

func TestIgnoreFunc_SeesSnapshotOptions(t *testing.T) {
	var seen []string
	p, err := New(Options{
		Instance:    zap.NewNop(),
		IgnorePaths: []string{"/health"},
		IgnoreFunc: func(opts Options, c echo.Context) bool {
			seen = opts.IgnorePaths
			return false
		},
	})
	require.NoError(t, err)

	p.ignored(testContext("/work", "/work"))
	assert.Equal(t, []string{"/health"}, seen)
}

func TestEventTagSet(t *testing.T) {
	assert.Nil(t, eventTagSet(nil), "nil filter suppresses nothing")
	assert.Nil(t, eventTagSet([]string{Wildcard}), "wildcard suppresses nothing")
	assert.Nil(t, eventTagSet([]string{"aaa", Wildcard}), "wildcard anywhere wins")

	set := eventTagSet([]string{"noisy", "chatty"})
	require.NotNil(t, set)
	assert.True(t, set["noisy"])
	assert.True(t, set["chatty"])
	assert.False(t, set["other"])
}

func TestSuppressedByEventTags(t *testing.T) {
	set := eventTagSet([]string{"noisy"})

	assert.True(t, suppressedByEventTags(set, []string{"noisy"}))
	assert.True(t, suppressedByEventTags(set, []string{"other", "noisy"}))
	assert.False(t, suppressedByEventTags(set, []string{"other"}))
	assert.False(t, suppressedByEventTags(set, nil))
	assert.False(t, suppressedByEventTags(nil, []string{"noisy"}))
}
