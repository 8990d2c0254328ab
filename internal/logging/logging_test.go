package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func entries(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m), sc.Text())
		out = append(out, m)
	}
	return out
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		name  string
		level LogLevel
		want  []string
	}{
		{name: "debug", level: DebugLevel, want: []string{"d", "i", "w", "e"}},
		{name: "info", level: InfoLevel, want: []string{"i", "w", "e"}},
		{name: "error", level: ErrorLevel, want: []string{"e"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(tt.level, &buf)
			l.Debug("d")
			l.Info("i")
			l.Warn("w")
			l.Error("e")

			var got []string
			for _, e := range entries(t, &buf) {
				got = append(got, e["message"].(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(InfoLevel, &buf).WithField("service", "anyprog")
	l.WithError(errors.New("boom")).Info("failed", map[string]interface{}{"job": "42"})

	e := entries(t, &buf)
	require.Len(t, e, 1)
	assert.Equal(t, "anyprog", e[0]["service"])
	assert.Equal(t, "boom", e[0]["error"])
	assert.Equal(t, "42", e[0]["job"])
	assert.Equal(t, "INFO", e[0]["level"])
	assert.Contains(t, e[0]["caller"], "logging/logging_test.go")
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(InfoLevel, &buf).WithFormat(TextFormat)
	l.Info("solved", map[string]interface{}{"value": 1.5, "ok": true})

	line := buf.String()
	assert.Contains(t, line, "INFO  solved")
	assert.Contains(t, line, "ok=true")
	assert.Contains(t, line, "value=1.5")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
}

type method string

func (m method) String() string { return string(m) }

func TestZapLogger(t *testing.T) {
	var buf bytes.Buffer
	zl := NewZapLogger(New(InfoLevel, &buf)).Named("constrained").With(zap.String("job", "7"))

	zl.Debug("hidden")
	zl.Info("search finished",
		zap.Float64("value", 0.25),
		zap.Int("restarts", 3),
		zap.Bool("ok", true),
		zap.Duration("elapsed", 2*time.Second),
		zap.Stringer("method", method("neldermead")),
		zap.Error(errors.New("none")))

	e := entries(t, &buf)
	require.Len(t, e, 1)
	assert.Equal(t, "search finished", e[0]["message"])
	assert.Equal(t, "7", e[0]["job"])
	assert.Equal(t, 0.25, e[0]["value"])
	assert.Equal(t, float64(3), e[0]["restarts"])
	assert.Equal(t, true, e[0]["ok"])
	assert.Equal(t, "neldermead", e[0]["method"])
	assert.Equal(t, "none", e[0]["error"])
	assert.Equal(t, "constrained", e[0]["logger"])
	assert.Contains(t, e[0]["caller"], "logging/logging_test.go")
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	h := Middleware(New(InfoLevel, &buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotNil(t, FromContext(r.Context()).Logger)
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	e := entries(t, &buf)
	require.Len(t, e, 1)
	assert.Equal(t, "Request completed", e[0]["message"])
	assert.Equal(t, float64(http.StatusTeapot), e[0]["status"])
	assert.Equal(t, "/healthz", e[0]["path"])
	assert.Equal(t, http.StatusText(http.StatusTeapot), e[0]["error"])
}
