package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const staffKey contextKey = "staff"

// Staff is the authenticated staff member acting on a request. The display
// name is denormalized onto admission and discharge records so history stays
// readable after staff accounts change.
type Staff struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

type JWTConfig struct {
	Issuer     string
	Audience   string
	SigningKey []byte
}

// JWTMiddleware validates bearer tokens and attaches the staff identity to
// the request context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			opts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"HS256"}),
			}
			if cfg.Issuer != "" {
				opts = append(opts, jwt.WithIssuer(cfg.Issuer))
			}
			if cfg.Audience != "" {
				opts = append(opts, jwt.WithAudience(cfg.Audience))
			}

			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.SigningKey, nil
			}, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			staff := Staff{
				ID:    claims.Subject,
				Name:  claims.Name,
				Roles: claims.Roles,
			}

			ctx := context.WithValue(c.Request().Context(), staffKey, staff)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// DevAuthMiddleware is a permissive middleware for development that grants
// unauthenticated requests an admin identity.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			staff := Staff{
				ID:    "dev-user",
				Name:  "Development User",
				Roles: []string{"admin"},
			}
			ctx := context.WithValue(c.Request().Context(), staffKey, staff)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// StaffFromContext retrieves the authenticated staff member, or a zero Staff
// when the request is unauthenticated.
func StaffFromContext(ctx context.Context) Staff {
	staff, _ := ctx.Value(staffKey).(Staff)
	return staff
}

// WithStaff returns a context carrying the given staff identity. Used by
// tests and background jobs that act outside an HTTP request.
func WithStaff(ctx context.Context, staff Staff) context.Context {
	return context.WithValue(ctx, staffKey, staff)
}
