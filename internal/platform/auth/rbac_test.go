package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithRole(c echo.Context, role string) {
	ctx := context.WithValue(c.Request().Context(), UserRoleKey, role)
	c.SetRequest(c.Request().WithContext(ctx))
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		userRole string
		required []string
		allowed  bool
	}{
		{"exact match", "manager", []string{"manager"}, true},
		{"one of several", "cs", []string{"manager", "cs"}, true},
		{"admin override", "admin", []string{"manager"}, true},
		{"role not allowed", "bd", []string{"manager", "cs"}, false},
		{"no role in context", "", []string{"manager"}, false},
		{"doctor denied admin route", "doctor", []string{"admin"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tt.userRole != "" {
				contextWithRole(c, tt.userRole)
			}

			handler := func(c echo.Context) error {
				return c.String(http.StatusOK, "ok")
			}

			err := RequireRole(tt.required...)(handler)(c)
			if tt.allowed {
				if err != nil {
					t.Fatalf("expected access, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected 403")
			}
			httpErr, ok := err.(*echo.HTTPError)
			if !ok || httpErr.Code != http.StatusForbidden {
				t.Errorf("expected 403, got %v", err)
			}
		})
	}
}
