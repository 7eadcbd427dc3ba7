package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/printflow-erp/printflow-erp/internal/observability"
	"github.com/printflow-erp/printflow-erp/internal/platform/httpx"
	"github.com/printflow-erp/printflow-erp/internal/shared"
	"github.com/printflow-erp/printflow-erp/internal/users"
)

// ActorHeader carries the authenticated employee id, stamped by the auth
// proxy in front of this service.
const ActorHeader = "X-Actor-Id"

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
}

// MiddlewareStack installs the outer middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}
	ratePerMinute := 120
	if cfg.Config != nil && cfg.Config.RateLimitPerMinute > 0 {
		ratePerMinute = cfg.Config.RateLimitPerMinute
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		middleware.Compress(5),
		httprate.Limit(ratePerMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, func(next http.Handler) http.Handler {
			return cfg.Metrics.Middleware(next)
		})
	}
	return middlewares
}

// ActorResolver loads the employee account named by the actor header.
type ActorResolver interface {
	Get(ctx context.Context, id int64) (*users.User, error)
}

// RequireActor resolves the actor header into a shared.Actor on the request
// context. Requests without a resolvable, active actor are rejected before
// they reach a handler.
func RequireActor(resolver ActorResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(ActorHeader)
			if raw == "" {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor header missing")
				return
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor header malformed")
				return
			}
			u, err := resolver.Get(r.Context(), id)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "unknown actor")
					return
				}
				logger.Error("actor lookup failed", slog.Int64("actor_id", id), slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "")
				return
			}
			if !u.Active {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "account deactivated")
				return
			}
			ctx := shared.ContextWithActor(r.Context(), u.Actor())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
