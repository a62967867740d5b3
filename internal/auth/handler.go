package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kompello/kompello-console/internal/shared"
	"github.com/kompello/kompello-console/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	state         StateReader
	templates     *view.Engine
	csrf          *shared.CSRFManager
	validator     *validator.Validate
	settleTimeout time.Duration
}

// NewHandler constructs a Handler instance. settleTimeout bounds the wait for
// the auth state after a successful login.
func NewHandler(logger *slog.Logger, service *Service, state StateReader, templates *view.Engine, csrf *shared.CSRFManager, settleTimeout time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:        logger,
		service:       service,
		state:         state,
		templates:     templates,
		csrf:          csrf,
		validator:     shared.NewFormValidator(),
		settleTimeout: settleTimeout,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Username   string `form:"username" validate:"required,email,max=254"`
	Password   string `form:"password" validate:"required,max=1024"`
	RedirectTo string `form:"redirectTo"`
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get(RedirectParam)
	if h.state.Read().Authenticated() {
		http.Redirect(w, r, SanitizeRedirect(target), http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, shared.FormResult[loginForm]{Value: loginForm{RedirectTo: target}})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	result := shared.ValidateForm(h.validator, loginForm{
		Username:   r.PostFormValue("username"),
		Password:   r.PostFormValue("password"),
		RedirectTo: r.PostFormValue(RedirectParam),
	})
	if !result.OK() {
		h.renderLogin(w, r, http.StatusBadRequest, result)
		return
	}

	form := result.Value
	if !h.service.Login(r.Context(), form.Username, form.Password) {
		h.renderLogin(w, r, http.StatusBadRequest, shared.Invalid(form, map[string]string{"general": "auth.login.failed"}))
		return
	}
	h.renewSession(r)

	if h.settleTimeout > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), h.settleTimeout)
		if _, err := h.state.Wait(ctx); err != nil {
			h.logger.Warn("auth state not settled after login", slog.Any("error", err))
		}
		cancel()
	}
	http.Redirect(w, r, SanitizeRedirect(form.RedirectTo), http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(r.Context())
	h.renewSession(r)
	shared.Flash(r.Context(), "success", "auth.logout.done")
	http.Redirect(w, r, DefaultLoginPath, http.StatusSeeOther)
}

// renewSession moves the console session to a fresh id and issues a new CSRF
// token once the signed-in user changes. Preferences and flashes are kept.
func (h *Handler) renewSession(r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return
	}
	sess.Regenerate()
	if h.csrf == nil {
		return
	}
	if _, err := h.csrf.Rotate(r.Context(), sess); err != nil {
		h.logger.Warn("rotate csrf token", slog.Any("error", err))
	}
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, result shared.FormResult[loginForm]) {
	form := result.Value
	form.Password = ""
	data := view.NewTemplateData(r, "auth.login.title", form)
	data.Errors = result.Errors
	if err := h.templates.RenderStatus(w, status, "pages/login.html", data); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// Placeholder renders the loading page served by the guard.
func (h *Handler) Placeholder() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := view.NewTemplateData(r, "app.loading", nil)
		if err := h.templates.Render(w, "pages/loading.html", data); err != nil {
			h.logger.Error("render loading", slog.Any("error", err))
			defaultPlaceholder(w, r)
		}
	})
}
