package app

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kompello/kompello-console/internal/auth"
	"github.com/kompello/kompello-console/internal/i18n"
	"github.com/kompello/kompello-console/internal/masterdata"
	"github.com/kompello/kompello-console/internal/observability"
	"github.com/kompello/kompello-console/internal/shared"
	"github.com/kompello/kompello-console/internal/users"
	"github.com/kompello/kompello-console/internal/view"
	"github.com/kompello/kompello-console/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Templates         *view.Engine
	SessionManager    *shared.SessionManager
	CSRFManager       *shared.CSRFManager
	Bundle            *i18n.Bundle
	AuthState         auth.StateReader
	AuthHandler       *auth.Handler
	MasterDataHandler *masterdata.Handler
	UsersHandler      *users.Handler
	Metrics           *observability.Metrics
	// Ping reports whether the Kompello API is reachable. Optional.
	Ping func(r *http.Request) error
}

// NewRouter constructs the chi.Router with console defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Bundle:         params.Bundle,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Ping != nil {
			if err := params.Ping(r); err != nil {
				params.Logger.Warn("kompello ping failed", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded","kompello":"unreachable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	settle := time.Duration(0)
	if params.Config != nil {
		settle = params.Config.AuthSettleTimeout
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Get("/api/session", auth.SnapshotHandler(params.AuthState, settle))
	if params.UsersHandler != nil {
		r.Route("/preferences", params.UsersHandler.MountPreferences)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	registerStaticTypes(params.Logger)
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Guard(params.AuthState, auth.GuardOptions{
			SettleTimeout: settle,
			Placeholder:   params.AuthHandler.Placeholder(),
		}))
		if params.UsersHandler != nil {
			params.UsersHandler.MountAccount(r)
		}
		if params.MasterDataHandler != nil {
			params.MasterDataHandler.MountRoutes(r)
		}
	})

	return r
}

// staticCacheHandler caches static assets in the browser for one hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
