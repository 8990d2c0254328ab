package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curiousTauseef/anyprog/internal/logging"
	"github.com/curiousTauseef/anyprog/internal/optimization"
)

func TestErrorString(t *testing.T) {
	err := Wrap(stderrors.New("disk"), "save job").WithOperation("store").WithComponent("server")
	assert.Equal(t, "save job: operation=store, component=server: disk", err.Error())
	assert.NotEmpty(t, err.StackTrace())
	assert.Nil(t, Wrap(nil, "x"))
}

func TestIsAndAs(t *testing.T) {
	inner := optimization.ErrNonSquare
	err := Wrap(fmt.Errorf("build: %w", inner), "assignment")
	assert.True(t, Is(err, inner))

	var e *Error
	require.True(t, As(err, &e))
	assert.Equal(t, "assignment", e.Message)
	assert.Equal(t, fmt.Errorf("build: %w", inner).Error(), Unwrap(err).Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: http.StatusOK},
		{name: "explicit", err: NotFound("job", "1"), want: http.StatusNotFound},
		{name: "invalid input", err: InvalidInput(stderrors.New("bad json")), want: http.StatusBadRequest},
		{name: "malformed problem", err: optimization.WrapError(optimization.ErrInvalidRange, "bounds"), want: http.StatusBadRequest},
		{name: "wrapped malformed problem", err: fmt.Errorf("run: %w", optimization.NewError("x")), want: http.StatusBadRequest},
		{name: "other", err: stderrors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	h := RecoveryMiddleware(logging.New(logging.InfoLevel, &buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("solver exploded")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rpc", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "solver exploded")
}

func TestErrorHandler(t *testing.T) {
	var buf bytes.Buffer
	h := ErrorHandler(logging.New(logging.InfoLevel, &buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status/x", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, buf.String(), "Request error")
}
