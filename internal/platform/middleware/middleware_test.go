package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func serve(t *testing.T, e *echo.Echo, method, path, requestID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLogger_TagsRequest(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestID())
	e.Use(Logger(zerolog.New(&buf)))
	e.GET("/patients", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	serve(t, e, http.MethodGet, "/patients", "rid-123")

	line := buf.String()
	for _, want := range []string{
		`"request_id":"rid-123"`,
		`"actor":"system"`,
		`"method":"GET"`,
		`"path":"/patients"`,
		`"status":200`,
		`"level":"info"`,
	} {
		if !strings.Contains(line, want) {
			t.Errorf("expected log line to contain %s, got %s", want, line)
		}
	}
}

func TestLogger_WarnsOnClientError(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestID())
	e.Use(Logger(zerolog.New(&buf)))
	e.GET("/patients", func(c echo.Context) error { return c.NoContent(http.StatusConflict) })

	serve(t, e, http.MethodGet, "/patients", "")

	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("expected warn level for 409, got %s", buf.String())
	}
}

func TestLogger_ErrorsOnFailure(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestID())
	e.Use(Logger(zerolog.New(&buf)))
	e.GET("/patients", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusInternalServerError, "boom")
	})

	serve(t, e, http.MethodGet, "/patients", "")

	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Errorf("expected error level, got %s", buf.String())
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(Recovery(zerolog.New(&buf)))
	e.Use(RequestID())
	e.GET("/boom", func(c echo.Context) error { panic("kaboom") })

	rec := serve(t, e, http.MethodGet, "/boom", "rid-9")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
	line := buf.String()
	for _, want := range []string{`"panic":"kaboom"`, `"path":"/boom"`, `"request_id":"rid-9"`} {
		if !strings.Contains(line, want) {
			t.Errorf("expected log line to contain %s, got %s", want, line)
		}
	}
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/", func(c echo.Context) error {
		if rid, _ := c.Get(RequestIDKey).(string); rid == "" {
			t.Error("expected a request id in the context")
		}
		return c.NoContent(http.StatusOK)
	})

	rec := serve(t, e, http.MethodGet, "/", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated X-Request-ID response header")
	}

	rec = serve(t, e, http.MethodGet, "/", "upstream-id")
	if got := rec.Header().Get("X-Request-ID"); got != "upstream-id" {
		t.Errorf("expected upstream id to be honored, got %q", got)
	}
}
