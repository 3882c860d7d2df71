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

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, claims *Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func staffClaims(issuer string) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "staff-42",
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name:  "Dr. Okoro",
		Roles: []string{"physician"},
	}
}

func authedEcho(cfg JWTConfig, captured *Staff) *echo.Echo {
	e := echo.New()
	e.Use(JWTMiddleware(cfg))
	e.GET("/", func(c echo.Context) error {
		*captured = StaffFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	return e
}

func TestJWTMiddleware(t *testing.T) {
	var staff Staff
	e := authedEcho(JWTConfig{Issuer: "hims", SigningKey: testKey}, &staff)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, staffClaims("hims"), testKey))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if staff.ID != "staff-42" || staff.Name != "Dr. Okoro" {
		t.Errorf("staff identity not propagated: %+v", staff)
	}
	if len(staff.Roles) != 1 || staff.Roles[0] != "physician" {
		t.Errorf("roles not propagated: %v", staff.Roles)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	var staff Staff
	e := authedEcho(JWTConfig{SigningKey: testKey}, &staff)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	var staff Staff
	e := authedEcho(JWTConfig{SigningKey: testKey}, &staff)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, staffClaims(""), []byte("other-key")))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestJWTMiddleware_WrongIssuer(t *testing.T) {
	var staff Staff
	e := authedEcho(JWTConfig{Issuer: "hims", SigningKey: testKey}, &staff)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, staffClaims("someone-else"), testKey))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	var staff Staff
	e := authedEcho(JWTConfig{SigningKey: testKey}, &staff)

	claims := staffClaims("")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, claims, testKey))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(DevAuthMiddleware())

	var staff Staff
	e.GET("/", func(c echo.Context) error {
		staff = StaffFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if staff.ID != "dev-user" {
		t.Errorf("expected dev-user, got %s", staff.ID)
	}
	if len(staff.Roles) != 1 || staff.Roles[0] != "admin" {
		t.Errorf("expected admin role, got %v", staff.Roles)
	}
}

func TestStaffFromContext_Empty(t *testing.T) {
	staff := StaffFromContext(context.Background())
	if staff.ID != "" {
		t.Errorf("expected zero staff, got %+v", staff)
	}
}

func TestWithStaff(t *testing.T) {
	want := Staff{ID: "s1", Name: "N", Roles: []string{"nurse"}}
	ctx := WithStaff(context.Background(), want)
	got := StaffFromContext(ctx)
	if got.ID != want.ID || got.Name != want.Name {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}
