package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/ibd-library/library-service/pkg/auth"
	"github.com/ibd-library/library-service/pkg/metrics"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

const (
	AuthorizationHeader = "Authorization"
	bearer              = "Bearer "
)

// TokenParser is satisfied by *auth.TokenManager.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// JwtAuthentication verifies the bearer token, rejects revoked ids and stores the caller identity in the request context.
func JwtAuthentication(tokens TokenParser, revoker auth.Revoker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := authenticate(c, tokens, revoker); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// OptionalJwtAuthentication lets anonymous requests through but still rejects a bad token.
func OptionalJwtAuthentication(tokens TokenParser, revoker auth.Revoker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get(AuthorizationHeader) == "" {
				return next(c)
			}
			if err := authenticate(c, tokens, revoker); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// RequireRole must run after JwtAuthentication.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := auth.FromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "No Authorization Header")
			}
			if id.Role != role {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}

func authenticate(c echo.Context, tokens TokenParser, revoker auth.Revoker) error {
	authorization := c.Request().Header.Get(AuthorizationHeader)
	if authorization == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "No Authorization Header")
	}
	if !strings.HasPrefix(authorization, bearer) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization Header")
	}
	claims, err := tokens.Parse(strings.TrimPrefix(authorization, bearer))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "JwtAccessDenied")
	}

	req := c.Request()
	revoked, err := revoker.IsRevoked(req.Context(), claims.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if revoked {
		return echo.NewHTTPError(http.StatusUnauthorized, "TokenRevoked")
	}

	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	ctx := auth.SetAuthContext(req.Context(), auth.Identity{
		MemberID: claims.MemberID,
		Role:     claims.Role,
		TokenID:  claims.ID,
		Expires:  expires,
	})
	c.SetRequest(req.WithContext(ctx))
	return nil
}

func NewRateLimiter(rps rate.Limit) echo.MiddlewareFunc {
	return middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rps))
}

// Metrics records every request under its route template.
func Metrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		status := c.Response().Status
		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
		}
		metrics.ObserveHTTP(c.Request().Method, c.Path(), status, time.Since(start))
		return err
	}
}

func RequestLoggerConfig(log *zap.Logger) middleware.RequestLoggerConfig {
	log = log.Named("echo")
	c := middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		HandleError:  true,
		LogError:     true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := zapcore.InfoLevel
			if v.Error != nil {
				level = zapcore.ErrorLevel
			}
			log.Log(level, "request",
				zap.String("URI", v.URI),
				zap.String("Method", v.Method),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.Error(v.Error),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	}
	return c
}
