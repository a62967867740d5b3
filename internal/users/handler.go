// Package users serves the account page and console preferences.
package users

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"

	"github.com/kompello/kompello-console/internal/auth"
	"github.com/kompello/kompello-console/internal/i18n"
	"github.com/kompello/kompello-console/internal/kompello"
	"github.com/kompello/kompello-console/internal/shared"
	"github.com/kompello/kompello-console/internal/view"
)

// State is refreshed after the signed-in user changed upstream.
type State interface {
	Invalidate()
	Wait(ctx context.Context) (auth.Snapshot, error)
}

// Handler manages account and preference endpoints.
type Handler struct {
	logger        *slog.Logger
	templates     *view.Engine
	bundle        *i18n.Bundle
	service       *Service
	state         State
	validator     *validator.Validate
	settleTimeout time.Duration
}

// NewHandler builds Handler instance. settleTimeout bounds the wait for the
// refreshed auth state after a profile change.
func NewHandler(logger *slog.Logger, templates *view.Engine, bundle *i18n.Bundle, service *Service, state State, settleTimeout time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:        logger,
		templates:     templates,
		bundle:        bundle,
		service:       service,
		state:         state,
		validator:     shared.NewFormValidator(),
		settleTimeout: settleTimeout,
	}
}

// MountAccount registers the account pages. They must be behind the auth
// guard.
func (h *Handler) MountAccount(r chi.Router) {
	r.Get("/account", h.showAccount)
	r.Post("/account", h.updateProfile)
	r.Post("/account/password", h.changePassword)
}

// MountPreferences registers preference endpoints. They work signed out too
// so the login page can switch language.
func (h *Handler) MountPreferences(r chi.Router) {
	r.Post("/theme", h.setTheme)
	r.Post("/locale", h.setLocale)
}

type accountPage struct {
	Principal *auth.Principal
	Profile   ProfileForm
	Themes    []string
	Locales   []string
}

func (h *Handler) showAccount(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Profile(r.Context())
	if err != nil {
		h.fail(w, r, "load profile", err)
		return
	}
	h.renderAccount(w, r, profile, nil, http.StatusOK)
}

func (h *Handler) renderAccount(w http.ResponseWriter, r *http.Request, profile ProfileForm, errs map[string]string, status int) {
	locales := make([]string, 0, len(i18n.Supported))
	for _, tag := range i18n.Supported {
		locales = append(locales, tag.String())
	}
	page := accountPage{
		Principal: auth.PrincipalFromContext(r.Context()),
		Profile:   profile,
		Themes:    shared.Themes,
		Locales:   locales,
	}
	data := view.NewTemplateData(r, "account.title", page)
	data.Errors = errs
	if err := h.templates.RenderStatus(w, status, "pages/account.html", data); err != nil {
		h.logger.Error("render account", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// fail renders the account page without profile values. An upstream 401/403
// refreshes the auth state.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if kompello.IsUnauthorized(err) {
		h.logger.Info("upstream rejected session", slog.String("op", op), slog.Any("error", err))
		h.state.Invalidate()
		h.renderAccount(w, r, ProfileForm{}, map[string]string{"general": "app.forbidden"}, http.StatusForbidden)
		return
	}
	h.logger.Error(op+" failed", slog.Any("error", err))
	h.renderAccount(w, r, ProfileForm{}, map[string]string{"general": "app.unavailable"}, http.StatusBadGateway)
}

func principalID(r *http.Request) (string, bool) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		return "", false
	}
	return p.ID.String(), true
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id, ok := principalID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	result, err := h.service.UpdateProfile(r.Context(), id, ProfileForm{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Email:     r.PostFormValue("email"),
	})
	if err != nil {
		h.fail(w, r, "update profile", err)
		return
	}
	if !result.OK() {
		h.renderAccount(w, r, result.Value, result.Errors, http.StatusBadRequest)
		return
	}

	// The principal is cached in the auth state.
	h.state.Invalidate()
	if h.settleTimeout > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), h.settleTimeout)
		if _, err := h.state.Wait(ctx); err != nil {
			h.logger.Warn("auth state not settled after profile change", slog.Any("error", err))
		}
		cancel()
	}
	shared.Flash(r.Context(), "success", "account.saved")
	http.Redirect(w, r, "/account", http.StatusSeeOther)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id, ok := principalID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	result, err := h.service.ChangePassword(r.Context(), id, PasswordForm{
		Password: r.PostFormValue("password"),
		Confirm:  r.PostFormValue("password_confirm"),
	})
	if err != nil {
		h.fail(w, r, "change password", err)
		return
	}
	if !result.OK() {
		profile, err := h.service.Profile(r.Context())
		if err != nil {
			h.fail(w, r, "load profile", err)
			return
		}
		h.renderAccount(w, r, profile, result.Errors, http.StatusBadRequest)
		return
	}

	// Kompello may end the session on a password change. The login page
	// sends a still signed-in user straight back.
	h.state.Invalidate()
	shared.Flash(r.Context(), "success", "account.password_changed")
	http.Redirect(w, r, auth.DefaultLoginPath+"?"+auth.RedirectParam+"="+url.QueryEscape("/account"), http.StatusSeeOther)
}

type themeForm struct {
	Theme string `form:"theme" validate:"required,oneof=light dark system"`
}

func (h *Handler) setTheme(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	result := shared.ValidateForm(h.validator, themeForm{Theme: r.PostFormValue("theme")})
	if !result.OK() {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	h.store(w, r, shared.ThemeSessionKey, result.Value.Theme)
}

type localeForm struct {
	Locale string `form:"locale" validate:"required,bcp47_language_tag"`
}

func (h *Handler) setLocale(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	result := shared.ValidateForm(h.validator, localeForm{Locale: r.PostFormValue("locale")})
	if !result.OK() {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	tag, err := language.Parse(result.Value.Locale)
	if err != nil || !h.bundle.IsSupported(tag) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	h.store(w, r, shared.LocaleSessionKey, h.bundle.Match(tag.String(), "").String())
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request, key, value string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.Set(key, value)
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "preferences.saved"})
	}
	http.Redirect(w, r, auth.SanitizeRedirect(r.PostFormValue(auth.RedirectParam)), http.StatusSeeOther)
}
