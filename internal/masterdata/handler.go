package masterdata

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kompello/kompello-console/internal/customfields"
	"github.com/kompello/kompello-console/internal/kompello"
	"github.com/kompello/kompello-console/internal/shared"
	"github.com/kompello/kompello-console/internal/view"
)

// Invalidator marks the auth state stale when the upstream rejects the
// session mid-request.
type Invalidator interface {
	Invalidate()
}

// Handler manages master data pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	state     Invalidator
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, state Invalidator) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, state: state}
}

// MountRoutes registers master data routes. The router must already be
// behind the auth guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.entry)
	r.Route("/{companyID}", func(r chi.Router) {
		r.Use(requireCompanyID)
		r.Get("/", h.home)
		r.Get("/customers", h.listCustomers)
		r.Get("/customers/{id}", h.showCustomer)
		r.Get("/items", h.listItems)
		r.Get("/items/{id}", h.showItem)
		r.Post("/items/{id}/custom-fields", h.updateItemFields)
		r.Get("/units", h.listUnits)
		r.Post("/units", h.createUnit)
		r.Get("/currencies", h.listCurrencies)
		r.Post("/currencies", h.createCurrency)
		r.Get("/settings", h.settings)
		h.mountEditRoutes(r)
	})
}

type companyIDKey struct{}

func requireCompanyID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "companyID"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), companyIDKey{}, id.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func companyID(r *http.Request) string {
	id, _ := r.Context().Value(companyIDKey{}).(string)
	return id
}

func (h *Handler) entry(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.Companies(r.Context())
	if err != nil {
		h.fail(w, r, "list companies", err)
		return
	}
	if len(companies) == 1 {
		http.Redirect(w, r, "/"+companies[0].UUID, http.StatusSeeOther)
		return
	}
	h.render(w, r, "pages/companies.html", "companies.title", companies, nil, http.StatusOK)
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(r.Context(), companyID(r))
	if err != nil {
		h.fail(w, r, "company overview", err)
		return
	}
	h.render(w, r, "pages/company_home.html", "nav.home", overview, nil, http.StatusOK)
}

type customersPage struct {
	Customers []kompello.Customer
	Filter    string
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("active")
	if filter != FilterActive && filter != FilterInactive {
		filter = FilterAll
	}
	customers, err := h.service.Customers(r.Context(), companyID(r), filter)
	if err != nil {
		h.fail(w, r, "list customers", err)
		return
	}
	h.render(w, r, "pages/customers.html", "nav.customers", customersPage{Customers: customers, Filter: filter}, nil, http.StatusOK)
}

func (h *Handler) showCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.service.Customer(r.Context(), companyID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get customer", err)
		return
	}
	h.render(w, r, "pages/customer_detail.html", "nav.customers", customer, nil, http.StatusOK)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Items(r.Context(), companyID(r))
	if err != nil {
		h.fail(w, r, "list items", err)
		return
	}
	h.render(w, r, "pages/items.html", "nav.items", items, nil, http.StatusOK)
}

type itemPage struct {
	Item   *kompello.Item
	Fields []customfields.Field
}

func (h *Handler) showItem(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Item(r.Context(), companyID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get item", err)
		return
	}
	page := itemPage{Item: detail.Item, Fields: customfields.BuildSection(detail.Definitions, detail.Item.CustomFields, true)}
	h.render(w, r, "pages/item_detail.html", "nav.items", page, nil, http.StatusOK)
}

func (h *Handler) updateItemFields(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	detail, outcome, err := h.service.UpdateItemFields(r.Context(), companyID(r), id, r.PostForm)
	if err != nil {
		h.fail(w, r, "update item", err)
		return
	}
	if !outcome.OK() {
		page := itemPage{Item: detail.Item, Fields: customfields.BuildSection(detail.Definitions, submitted(detail.Item.CustomFields, outcome.Value), true)}
		h.render(w, r, "pages/item_detail.html", "nav.items", page, outcome.Errors, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/"+companyID(r)+"/items/"+id, "success", "items.saved")
}

// submitted overlays the parsed values on the stored ones so a rejected form
// keeps what the user typed.
func submitted(stored, parsed map[string]any) map[string]any {
	out := make(map[string]any, len(stored)+len(parsed))
	for k, v := range stored {
		out[k] = v
	}
	for k, v := range parsed {
		out[k] = v
	}
	return out
}

type unitsPage struct {
	Units []kompello.Unit
	Form  UnitForm
}

func (h *Handler) listUnits(w http.ResponseWriter, r *http.Request) {
	h.renderUnits(w, r, shared.FormResult[UnitForm]{}, http.StatusOK)
}

func (h *Handler) createUnit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	result, err := h.service.CreateUnit(r.Context(), companyID(r), UnitForm{
		ShortName: r.PostFormValue("short_name"),
		LongName:  r.PostFormValue("long_name"),
	})
	if err != nil {
		h.fail(w, r, "create unit", err)
		return
	}
	if !result.OK() {
		h.renderUnits(w, r, result, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/"+companyID(r)+"/units", "success", "units.created")
}

func (h *Handler) renderUnits(w http.ResponseWriter, r *http.Request, result shared.FormResult[UnitForm], status int) {
	units, err := h.service.Units(r.Context(), companyID(r))
	if err != nil {
		h.fail(w, r, "list units", err)
		return
	}
	h.render(w, r, "pages/units.html", "nav.units", unitsPage{Units: units, Form: result.Value}, result.Errors, status)
}

type currenciesPage struct {
	Currencies []kompello.Currency
	Form       CurrencyForm
}

func (h *Handler) listCurrencies(w http.ResponseWriter, r *http.Request) {
	h.renderCurrencies(w, r, shared.FormResult[CurrencyForm]{}, http.StatusOK)
}

func (h *Handler) createCurrency(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	result, err := h.service.CreateCurrency(r.Context(), companyID(r), CurrencyForm{
		Symbol:    r.PostFormValue("symbol"),
		ShortName: r.PostFormValue("short_name"),
		LongName:  r.PostFormValue("long_name"),
	})
	if err != nil {
		h.fail(w, r, "create currency", err)
		return
	}
	if !result.OK() {
		h.renderCurrencies(w, r, result, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/"+companyID(r)+"/currencies", "success", "currencies.created")
}

func (h *Handler) renderCurrencies(w http.ResponseWriter, r *http.Request, result shared.FormResult[CurrencyForm], status int) {
	currencies, err := h.service.Currencies(r.Context(), companyID(r))
	if err != nil {
		h.fail(w, r, "list currencies", err)
		return
	}
	h.render(w, r, "pages/currencies.html", "nav.currencies", currenciesPage{Currencies: currencies, Form: result.Value}, result.Errors, status)
}

func (h *Handler) settings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.Settings(r.Context(), companyID(r))
	if err != nil {
		h.fail(w, r, "company settings", err)
		return
	}
	h.render(w, r, "pages/settings.html", "nav.settings", settings, nil, http.StatusOK)
}

type errorPage struct {
	Message string
}

// fail maps service errors to an error page. An upstream 401/403 means the
// Kompello session ended, so the auth state is refreshed for the next request.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound) || kompello.IsNotFound(err):
		h.render(w, r, "pages/error.html", "app.not_found", errorPage{Message: "app.not_found"}, nil, http.StatusNotFound)
	case kompello.IsUnauthorized(err):
		h.logger.Info("upstream rejected session", slog.String("op", op), slog.Any("error", err))
		if h.state != nil {
			h.state.Invalidate()
		}
		h.render(w, r, "pages/error.html", "app.forbidden", errorPage{Message: "app.forbidden"}, nil, http.StatusForbidden)
	default:
		h.logger.Error(op+" failed", slog.Any("error", errors.Join(shared.ErrUpstreamUnavailable, err)))
		h.render(w, r, "pages/error.html", "app.unavailable", errorPage{Message: "app.unavailable"}, nil, http.StatusBadGateway)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data any, errs map[string]string, status int) {
	viewData := view.NewTemplateData(r, title, data)
	viewData.CompanyID = companyID(r)
	viewData.Errors = errs
	if err := h.templates.RenderStatus(w, status, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", template))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	shared.Flash(r.Context(), kind, message)
	http.Redirect(w, r, location, http.StatusSeeOther)
}
