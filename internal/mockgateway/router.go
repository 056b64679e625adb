package mockgateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// DefaultCORSOptions allows a browser console served from a local dev server.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}
}

// Handler returns the gateway's HTTP handler with the API mounted under the
// base path.
func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(g.requestLogger)
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if g.opts.CORSOptions != nil {
		corsCfg = *g.opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	r.Route(g.opts.BasePath, func(r chi.Router) {
		r.Use(g.injectFailures)

		for _, service := range []string{"gateway", "users", "auth", "authorization"} {
			r.Get("/"+service+"/health", g.handleHealth(service))
		}

		r.Post("/auth/login", g.handleLogin)
		r.Post("/auth/logout", g.handleLogout)
		r.Post("/auth/refresh", g.handleRefresh)
		r.Post("/auth/validate", g.handleValidate)

		r.Group(func(r chi.Router) {
			r.Use(g.requireAuth)

			r.Get("/users", g.handleListUsers)
			r.Post("/users", g.handleCreateUser)
			r.Get("/users/organization/{orgId}", g.handleListUsersByOrg)
			r.Get("/users/{id}", g.handleGetUser)
			r.Put("/users/{id}", g.handleUpdateUser)
			r.Delete("/users/{id}", g.handleDeleteUser)

			r.Get("/roles", g.handleListRoles)
			r.Post("/roles", g.handleCreateRole)
			r.Get("/roles/{id}", g.handleGetRole)
			r.Put("/roles/{id}", g.handleUpdateRole)
			r.Delete("/roles/{id}", g.handleDeleteRole)

			r.Get("/permissions", g.handleListPermissions)
			r.Post("/permissions", g.handleCreatePermission)

			r.Post("/authorization/assign-role", g.handleAssignRole)
			r.Delete("/authorization/users/{userId}/roles/{roleId}", g.handleRevokeRole)
			r.Get("/authorization/users/{userId}/roles", g.handleUserRoles)
			r.Get("/authorization/users/{userId}/permissions", g.handleUserPermissions)
			r.Post("/authorization/check-permission", g.handleCheckPermission)
		})
	})

	return r
}

// injectFailures counts calls per path and serves failures queued by FailNext.
func (g *Gateway) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, g.opts.BasePath)
		if f := g.takeFailure(path); f != nil {
			message := f.message
			if message == "" {
				message = statusText(f.status)
			}
			writeJSON(w, f.status, errorEnvelope{Error: message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			g.logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", r.Header.Get("X-Request-ID")),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
