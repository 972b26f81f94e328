package middleware

import (
	"net/http"
	"strings"

	"github.com/fabriziosalmi/newsportal/internal/auth"
	"github.com/labstack/echo/v4"
)

const (
	ContextKeyTenantID = "tenant_id"

	HeaderAdminToken = "X-Admin-Token"
)

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return parts[1], nil
}

// JWTAuth resolves the tenant from a bearer token.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr, err := bearerToken(c)
			if err != nil {
				return err
			}

			claims, err := auth.VerifyJWT(secret, tokenStr)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ContextKeyTenantID, claims.TenantID)
			return next(c)
		}
	}
}

// AdminAuth guards operator routes with the static admin token, sent either
// as X-Admin-Token or as a bearer token. An unset token locks the routes.
func AdminAuth(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			presented := c.Request().Header.Get(HeaderAdminToken)
			if presented == "" {
				var err error
				if presented, err = bearerToken(c); err != nil {
					return err
				}
			}
			if !auth.TokenEqual(presented, token) {
				return echo.NewHTTPError(http.StatusForbidden, "invalid admin token")
			}
			return next(c)
		}
	}
}
