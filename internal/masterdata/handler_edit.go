package masterdata

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kompello/kompello-console/internal/customfields"
	"github.com/kompello/kompello-console/internal/kompello"
)

func (h *Handler) mountEditRoutes(r chi.Router) {
	r.Get("/customers/new", h.newCustomer)
	r.Post("/customers", h.createCustomer)
	r.Get("/customers/{id}/edit", h.editCustomer)
	r.Post("/customers/{id}", h.updateCustomer)
	r.Get("/items/new", h.newItem)
	r.Post("/items", h.createItem)
	r.Get("/items/{id}/edit", h.editItem)
	r.Post("/items/{id}", h.updateItem)
	r.Get("/units/{id}", h.editUnit)
	r.Post("/units/{id}", h.updateUnit)
	r.Get("/currencies/{id}", h.editCurrency)
	r.Post("/currencies/{id}", h.updateCurrency)
	r.Post("/settings", h.updateCompany)
	r.Get("/settings/custom-fields/new", h.newCustomField)
	r.Post("/settings/custom-fields", h.createCustomField)
	r.Get("/settings/custom-fields/{id}", h.editCustomField)
	r.Post("/settings/custom-fields/{id}", h.updateCustomField)
	r.Post("/settings/custom-fields/{id}/delete", h.deleteCustomField)
}

func parseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return false
	}
	return true
}

func checked(r *http.Request, name string) bool {
	return r.PostFormValue(name) != ""
}

type customerFormPage struct {
	ID   string
	Form CustomerForm
}

func customerFormFromRequest(r *http.Request) CustomerForm {
	return CustomerForm{
		Title:         r.PostFormValue("title"),
		Firstname:     r.PostFormValue("firstname"),
		Lastname:      r.PostFormValue("lastname"),
		Birthdate:     r.PostFormValue("birthdate"),
		Email:         r.PostFormValue("email"),
		MobilePhone:   r.PostFormValue("mobile_phone"),
		LandlinePhone: r.PostFormValue("landline_phone"),
		Notes:         r.PostFormValue("notes"),
		IsActive:      checked(r, "is_active"),
		Street:        r.PostFormValue("street"),
		Street2:       r.PostFormValue("street_2"),
		City:          r.PostFormValue("city"),
		State:         r.PostFormValue("state"),
		PostalCode:    r.PostFormValue("postal_code"),
		Country:       r.PostFormValue("country"),
	}
}

func (h *Handler) newCustomer(w http.ResponseWriter, r *http.Request) {
	page := customerFormPage{Form: CustomerForm{IsActive: true}}
	h.render(w, r, "pages/customer_form.html", "customers.new", page, nil, http.StatusOK)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	customer, result, err := h.service.CreateCustomer(r.Context(), companyID(r), customerFormFromRequest(r))
	if err != nil {
		h.fail(w, r, "create customer", err)
		return
	}
	if !result.OK() {
		h.render(w, r, "pages/customer_form.html", "customers.new", customerFormPage{Form: result.Value}, result.Errors, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/"+companyID(r)+"/customers/"+customer.UUID, "success", "customers.created")
}

func (h *Handler) editCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	customer, err := h.service.Customer(r.Context(), companyID(r), id)
	if err != nil {
		h.fail(w, r, "get customer", err)
		return
	}
	h.render(w, r, "pages/customer_form.html", "customers.edit", customerFormPage{ID: id, Form: CustomerFormFrom(customer)}, nil, http.StatusOK)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	id := chi.URLParam(r, "id")
	result, err := h.service.UpdateCustomer(r.Context(), companyID(r), id, customerFormFromRequest(r))
	if err != nil {
		h.fail(w, r, "update customer", err)
		return
	}
	if !result.OK() {
		h.render(w, r, "pages/customer_form.html", "customers.edit", customerFormPage{ID: id, Form: result.Value}, result.Errors, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/"+companyID(r)+"/customers/"+id, "success", "customers.saved")
}

type itemFormPage struct {
	ID         string
	Form       ItemForm
	Units      []kompello.Unit
	Currencies []kompello.Currency
	Fields     []customfields.Field
}

func itemFormFromRequest(r *http.Request) ItemForm {
	return ItemForm{
		Name:         r.PostFormValue("name"),
		Description:  r.PostFormValue("description"),
		Currency:     r.PostFormValue("currency"),
		Unit:         r.PostFormValue("unit"),
		PricePerUnit: r.PostFormValue("price_per_unit"),
		PriceMax:     r.PostFormValue("price_max"),
	}
}

// renderItemForm shows the item form. Custom fields are offered on creation
// only; existing items edit them on the detail page. Submitted custom field
// values are shown again as typed.
func (h *Handler) renderItemForm(w http.ResponseWriter, r *http.Request, page itemFormPage, submittedForm url.Values, errs map[string]string, status int) {
	options, err := h.service.ItemOptions(r.Context(), companyID(r))
	if err != nil {
		h.fail(w, r, "item options", err)
		return
	}
	page.Units = options.Units
	page.Currencies = options.Currencies
	title := "items.edit"
	if page.ID == "" {
		title = "items.new"
		var values map[string]any
		if submittedForm != nil {
			outcome := customfields.ParseValues(options.Definitions, submittedForm)
			values = outcome.Value
			for key := range outcome.Errors {
				values[key] = submittedForm.Get(customfields.FieldPrefix + key)
			}
		}
		page.Fields = customfields.BuildSection(options.Definitions, values, true)
	}
	h.render(w, r, "pages/item_form.html", title, page, errs, status)
}

func (h *Handler) newItem(w http.ResponseWriter, r *http.Request) {
	h.renderItemForm(w, r, itemFormPage{}, nil, nil, http.StatusOK)
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	item, result, err := h.service.CreateItem(r.Context(), companyID(r), itemFormFromRequest(r), r.PostForm)
	if err != nil {
		h.fail(w, r, "create item", err)
		return
	}
	if !result.OK() {
		h.renderItemForm(w, r, itemFormPage{Form: result.Value}, r.PostForm, result.Errors, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/"+companyID(r)+"/items/"+item.UUID, "success", "items.created")
}

func (h *Handler) editItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	detail, err := h.service.Item(r.Context(), companyID(r), id)
	if err != nil {
		h.fail(w, r, "get item", err)
		return
	}
	h.renderItemForm(w, r, itemFormPage{ID: id, Form: ItemFormFrom(detail.Item)}, nil, nil, http.StatusOK)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	id := chi.URLParam(r, "id")
	result, err := h.service.UpdateItem(r.Context(), companyID(r), id, itemFormFromRequest(r))
	if err != nil {
		h.fail(w, r, "update item", err)
		return
	}
	if !result.OK() {
		h.renderItemForm(w, r, itemFormPage{ID: id, Form: result.Value}, nil, result.Errors, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/"+companyID(r)+"/items/"+id, "success", "items.updated")
}

type editPage[T any] struct {
	ID   string
	Form T
}

func (h *Handler) editUnit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	unit, err := h.service.Unit(r.Context(), companyID(r), id)
	if err != nil {
		h.fail(w, r, "get unit", err)
		return
	}
	page := editPage[UnitForm]{ID: id, Form: UnitForm{ShortName: unit.ShortName, LongName: unit.LongName}}
	h.render(w, r, "pages/unit_form.html", "units.edit", page, nil, http.StatusOK)
}

func (h *Handler) updateUnit(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	id := chi.URLParam(r, "id")
	result, err := h.service.UpdateUnit(r.Context(), companyID(r), id, UnitForm{
		ShortName: r.PostFormValue("short_name"),
		LongName:  r.PostFormValue("long_name"),
	})
	if err != nil {
		h.fail(w, r, "update unit", err)
		return
	}
	if !result.OK() {
		h.render(w, r, "pages/unit_form.html", "units.edit", editPage[UnitForm]{ID: id, Form: result.Value}, result.Errors, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/"+companyID(r)+"/units", "success", "units.saved")
}

func (h *Handler) editCurrency(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	currency, err := h.service.Currency(r.Context(), companyID(r), id)
	if err != nil {
		h.fail(w, r, "get currency", err)
		return
	}
	page := editPage[CurrencyForm]{ID: id, Form: CurrencyForm{Symbol: currency.Symbol, ShortName: currency.ShortName, LongName: currency.LongName}}
	h.render(w, r, "pages/currency_form.html", "currencies.edit", page, nil, http.StatusOK)
}

func (h *Handler) updateCurrency(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	id := chi.URLParam(r, "id")
	result, err := h.service.UpdateCurrency(r.Context(), companyID(r), id, CurrencyForm{
		Symbol:    r.PostFormValue("symbol"),
		ShortName: r.PostFormValue("short_name"),
		LongName:  r.PostFormValue("long_name"),
	})
	if err != nil {
		h.fail(w, r, "update currency", err)
		return
	}
	if !result.OK() {
		h.render(w, r, "pages/currency_form.html", "currencies.edit", editPage[CurrencyForm]{ID: id, Form: result.Value}, result.Errors, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/"+companyID(r)+"/currencies", "success", "currencies.saved")
}

func (h *Handler) updateCompany(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	result, err := h.service.UpdateCompany(r.Context(), companyID(r), CompanyForm{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
	})
	if err != nil {
		h.fail(w, r, "update company", err)
		return
	}
	if !result.OK() {
		settings, err := h.service.Settings(r.Context(), companyID(r))
		if err != nil {
			h.fail(w, r, "company settings", err)
			return
		}
		settings.Form = result.Value
		h.render(w, r, "pages/settings.html", "nav.settings", settings, result.Errors, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/"+companyID(r)+"/settings", "success", "settings.saved")
}

type customFieldFormPage struct {
	ID        string
	Form      CustomFieldForm
	DataTypes []kompello.DataTypeChoice
	Models    []kompello.ModelType
}

func customFieldFormFromRequest(r *http.Request) CustomFieldForm {
	// Unparsable numbers stay zero and fail validation.
	dataType, _ := strconv.Atoi(r.PostFormValue("data_type"))
	modelType, _ := strconv.Atoi(r.PostFormValue("model_type"))
	return CustomFieldForm{
		Key:          r.PostFormValue("key"),
		Name:         r.PostFormValue("name"),
		DataType:     dataType,
		ModelType:    modelType,
		TrackHistory: checked(r, "track_history"),
		ShowInUI:     checked(r, "show_in_ui"),
		IsArchived:   checked(r, "is_archived"),
	}
}

func (h *Handler) renderCustomFieldForm(w http.ResponseWriter, r *http.Request, page customFieldFormPage, errs map[string]string, status int) {
	choices, err := h.service.CustomFieldChoices(r.Context())
	if err != nil {
		h.fail(w, r, "custom field metadata", err)
		return
	}
	page.DataTypes = choices.DataTypes
	page.Models = choices.ModelTypes
	title := "fields.edit"
	if page.ID == "" {
		title = "fields.new"
	}
	h.render(w, r, "pages/custom_field_form.html", title, page, errs, status)
}

func (h *Handler) newCustomField(w http.ResponseWriter, r *http.Request) {
	form := CustomFieldForm{DataType: int(customfields.Text), ShowInUI: true}
	h.renderCustomFieldForm(w, r, customFieldFormPage{Form: form}, nil, http.StatusOK)
}

func (h *Handler) createCustomField(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	result, err := h.service.CreateCustomField(r.Context(), companyID(r), customFieldFormFromRequest(r))
	if err != nil {
		h.fail(w, r, "create custom field", err)
		return
	}
	if !result.OK() {
		h.renderCustomFieldForm(w, r, customFieldFormPage{Form: result.Value}, result.Errors, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/"+companyID(r)+"/settings", "success", "fields.created")
}

func (h *Handler) editCustomField(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	def, err := h.service.CustomField(r.Context(), companyID(r), id)
	if err != nil {
		h.fail(w, r, "get custom field", err)
		return
	}
	h.renderCustomFieldForm(w, r, customFieldFormPage{ID: id, Form: CustomFieldFormFrom(def)}, nil, http.StatusOK)
}

func (h *Handler) updateCustomField(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	id := chi.URLParam(r, "id")
	result, err := h.service.UpdateCustomField(r.Context(), companyID(r), id, customFieldFormFromRequest(r))
	if err != nil {
		h.fail(w, r, "update custom field", err)
		return
	}
	if !result.OK() {
		h.renderCustomFieldForm(w, r, customFieldFormPage{ID: id, Form: result.Value}, result.Errors, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/"+companyID(r)+"/settings", "success", "fields.saved")
}

func (h *Handler) deleteCustomField(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.service.DeleteCustomField(r.Context(), companyID(r), id)
	switch {
	case errors.Is(err, ErrFieldInUse):
		h.redirectWithFlash(w, r, "/"+companyID(r)+"/settings/custom-fields/"+id, "error", "fields.in_use")
	case err != nil:
		h.fail(w, r, "delete custom field", err)
	default:
		h.redirectWithFlash(w, r, "/"+companyID(r)+"/settings", "success", "fields.deleted")
	}
}
