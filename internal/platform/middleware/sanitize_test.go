package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runSanitize(t *testing.T, target string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	if err := Sanitize()(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec
}

func TestSanitize_AllowsCleanRequest(t *testing.T) {
	rec := runSanitize(t, "/api/v1/patients?name=kim", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestSanitize_BlocksPathTraversal(t *testing.T) {
	rec := runSanitize(t, "/api/v1/../etc/passwd", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for path traversal, got %d", rec.Code)
	}
}

func TestSanitize_BlocksScriptInjection(t *testing.T) {
	rec := runSanitize(t, "/api/v1/patients?name=%3Cscript%3Ealert(1)%3C/script%3E", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for script injection, got %d", rec.Code)
	}
}

func TestSanitize_BlocksHeaderInjection(t *testing.T) {
	rec := runSanitize(t, "/api/v1/patients", func(req *http.Request) {
		req.Header["X-Custom"] = []string{"value\r\nInjected: true"}
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for header injection, got %d", rec.Code)
	}
}

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "hello"},
		{"null byte stripped", "hel\x00lo", "hello"},
		{"control chars stripped", "hel\x01\x02lo", "hello"},
		{"newlines preserved", "line1\nline2", "line1\nline2"},
		{"whitespace trimmed", "  padded  ", "padded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeString(tc.input); got != tc.want {
				t.Errorf("SanitizeString(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
