package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return raw
}

func runRequest(mw echo.MiddlewareFunc, authorization string) (*httptest.ResponseRecorder, context.Context) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var captured context.Context
	handler := mw(func(c echo.Context) error {
		captured = c.Request().Context()
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, captured
}

func TestMiddleware_ValidToken(t *testing.T) {
	raw := signToken(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "dr-lee",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{"physician"},
	})

	rec, ctx := runRequest(Middleware(Config{Secret: testSecret}), "Bearer "+raw)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := ActorFromContext(ctx); got != "dr-lee" {
		t.Errorf("expected actor dr-lee, got %q", got)
	}
	if roles := RolesFromContext(ctx); len(roles) != 1 || roles[0] != "physician" {
		t.Errorf("expected roles [physician], got %v", roles)
	}
}

func TestMiddleware_MissingToken(t *testing.T) {
	rec, _ := runRequest(Middleware(Config{Secret: testSecret}), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestMiddleware_BadSignature(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "dr-lee",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	raw, _ := token.SignedString([]byte("wrong-secret"))

	rec, _ := runRequest(Middleware(Config{Secret: testSecret}), "Bearer "+raw)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestMiddleware_Expired(t *testing.T) {
	raw := signToken(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "dr-lee",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	rec, _ := runRequest(Middleware(Config{Secret: testSecret}), "Bearer "+raw)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestMiddleware_WrongIssuer(t *testing.T) {
	raw := signToken(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "dr-lee",
			Issuer:    "other",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	rec, _ := runRequest(Middleware(Config{Secret: testSecret, Issuer: "records"}), "Bearer "+raw)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestDevMiddleware(t *testing.T) {
	rec, ctx := runRequest(DevMiddleware(), "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := ActorFromContext(ctx); got != "dev-user" {
		t.Errorf("expected dev-user, got %q", got)
	}
	if roles := RolesFromContext(ctx); len(roles) != 1 || roles[0] != "admin" {
		t.Errorf("expected admin role, got %v", roles)
	}
}

func TestActorFromContext_Fallback(t *testing.T) {
	if got := ActorFromContext(context.Background()); got != "system" {
		t.Errorf("expected system fallback, got %q", got)
	}
}

func TestRequireRole(t *testing.T) {
	call := func(userRoles []string, required ...string) int {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := context.WithValue(req.Context(), UserRolesKey, userRoles)
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := RequireRole(required...)(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		if err := handler(c); err != nil {
			e.HTTPErrorHandler(err, c)
		}
		return rec.Code
	}

	if code := call([]string{"physician"}, "physician", "registrar"); code != http.StatusOK {
		t.Errorf("expected 200 for matching role, got %d", code)
	}
	if code := call([]string{"admin"}, "physician"); code != http.StatusOK {
		t.Errorf("expected 200 for admin override, got %d", code)
	}
	if code := call([]string{"nurse"}, "physician"); code != http.StatusForbidden {
		t.Errorf("expected 403 for missing role, got %d", code)
	}
	if code := call(nil, "physician"); code != http.StatusForbidden {
		t.Errorf("expected 403 with no roles, got %d", code)
	}
}
