package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dmitrijs2005/securecloud/internal/logging"
	"github.com/dmitrijs2005/securecloud/internal/server/auth"
	"github.com/dmitrijs2005/securecloud/internal/server/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logLine struct {
	level string
	msg   string
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []logLine
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, logLine{level: level, msg: msg})
}

func (l *recordingLogger) Debug(_ context.Context, msg string, _ ...any) { l.add("debug", msg) }
func (l *recordingLogger) Info(_ context.Context, msg string, _ ...any)  { l.add("info", msg) }
func (l *recordingLogger) Warn(_ context.Context, msg string, _ ...any)  { l.add("warn", msg) }
func (l *recordingLogger) Error(_ context.Context, msg string, _ ...any) { l.add("error", msg) }
func (l *recordingLogger) With(...any) logging.Logger                    { return l }

func TestRequestLogger_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusOK, "info"},
		{http.StatusNotFound, "warn"},
		{http.StatusBadGateway, "error"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			log := &recordingLogger{}
			s := &Server{log: log}
			h := s.requestLogger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

			require.Len(t, log.lines, 1)
			assert.Equal(t, tt.want, log.lines[0].level)
			assert.Equal(t, "http request", log.lines[0].msg)
		})
	}
}

func TestRequestLogger_ImplicitOK(t *testing.T) {
	log := &recordingLogger{}
	s := &Server{log: log}
	h := s.requestLogger(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Len(t, log.lines, 1)
	assert.Equal(t, "info", log.lines[0].level)
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(metricsMiddleware)
	r.Get("/things/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/things/{id}", "418")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/"+id, nil))
	}

	assert.Equal(t, before+3, testutil.ToFloat64(counter))
}

func TestMetricsMiddleware_Unmatched(t *testing.T) {
	r := chi.NewRouter()
	r.Use(metricsMiddleware)
	r.Get("/known", func(http.ResponseWriter, *http.Request) {})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestAuthenticate(t *testing.T) {
	s := &Server{authn: fakeAuthn{"good": "u1"}, log: logging.Nop{}}

	var seen string
	h := s.authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", seen)

	seen = ""
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, seen)
}
