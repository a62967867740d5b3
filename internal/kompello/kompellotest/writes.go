package kompellotest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kompello/kompello-console/internal/kompello"
)

var notFound = map[string]string{"detail": "Not found."}

func fieldError(field, msg string) map[string][]string {
	return map[string][]string{field: {msg}}
}

// Customers returns a copy of the stored customers.
func (s *Server) Customers() []kompello.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]kompello.Customer(nil), s.customers...)
}

// Items returns a copy of the stored items.
func (s *Server) Items() []kompello.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]kompello.Item(nil), s.items...)
}

// Currencies returns a copy of the stored currencies.
func (s *Server) Currencies() []kompello.Currency {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]kompello.Currency(nil), s.currencies...)
}

// CustomFields returns a copy of the stored custom field definitions.
func (s *Server) CustomFields() []kompello.CustomFieldDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]kompello.CustomFieldDefinition(nil), s.customFields...)
}

// Company returns the stored company with the given id.
func (s *Server) Company(id string) (kompello.Company, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, company := range s.companies {
		if company.UUID == id {
			return company, true
		}
	}
	return kompello.Company{}, false
}

// User returns the account registered under email.
func (s *Server) User(email string) (kompello.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[email]
	return acc.user, ok
}

func (s *Server) patchCompany(w http.ResponseWriter, r *http.Request) {
	var in kompello.CompanyInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed JSON."})
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeJSON(w, http.StatusBadRequest, fieldError("name", "This field may not be blank."))
		return
	}
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, company := range s.companies {
		if company.UUID == id {
			company.Name = in.Name
			company.Description = in.Description
			s.companies[i] = company
			writeJSON(w, http.StatusOK, company)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, notFound)
}

func (s *Server) patchUser(w http.ResponseWriter, r *http.Request) {
	current, _ := s.sessionUser(r)
	if chi.URLParam(r, "id") != current.UUID {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "You do not have permission to perform this action."})
		return
	}
	var in kompello.UserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed JSON."})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.Email != current.Email {
		if _, taken := s.accounts[in.Email]; taken {
			writeJSON(w, http.StatusBadRequest, fieldError("email", "user with this email already exists."))
			return
		}
	}
	acc := s.accounts[current.Email]
	acc.user.FirstName = in.FirstName
	acc.user.LastName = in.LastName
	acc.user.Email = in.Email
	delete(s.accounts, current.Email)
	s.accounts[in.Email] = acc
	for sid, email := range s.sessions {
		if email == current.Email {
			s.sessions[sid] = in.Email
		}
	}
	writeJSON(w, http.StatusOK, acc.user)
}

// setPassword stores the new password and ends every session of the user,
// as a password change does upstream.
func (s *Server) setPassword(w http.ResponseWriter, r *http.Request) {
	current, _ := s.sessionUser(r)
	if chi.URLParam(r, "id") != current.UUID {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "You do not have permission to perform this action."})
		return
	}
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Password == "" {
		writeJSON(w, http.StatusBadRequest, fieldError("password", "This field may not be blank."))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accounts[current.Email]
	acc.password = body.Password
	s.accounts[current.Email] = acc
	for sid, email := range s.sessions {
		if email == current.Email {
			delete(s.sessions, sid)
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) getUnit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, unit := range s.units {
		if unit.UUID == id {
			writeJSON(w, http.StatusOK, unit)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, notFound)
}

func (s *Server) patchUnit(w http.ResponseWriter, r *http.Request) {
	var in kompello.UnitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed JSON."})
		return
	}
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, unit := range s.units {
		if unit.UUID == id {
			idx = i
		}
	}
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, notFound)
		return
	}
	unit := s.units[idx]
	for _, other := range s.units {
		if other.UUID != id && other.Company == unit.Company && other.ShortName == in.ShortName {
			writeJSON(w, http.StatusBadRequest, fieldError("short_name", "Unit with this short name already exists."))
			return
		}
	}
	unit.ShortName = in.ShortName
	unit.LongName = in.LongName
	s.units[idx] = unit
	writeJSON(w, http.StatusOK, unit)
}

func (s *Server) getCurrency(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, currency := range s.currencies {
		if currency.UUID == id {
			writeJSON(w, http.StatusOK, currency)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, notFound)
}

func (s *Server) patchCurrency(w http.ResponseWriter, r *http.Request) {
	var in kompello.CurrencyInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed JSON."})
		return
	}
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, currency := range s.currencies {
		if currency.UUID == id {
			currency.Symbol = in.Symbol
			currency.ShortName = in.ShortName
			currency.LongName = in.LongName
			s.currencies[i] = currency
			writeJSON(w, http.StatusOK, currency)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, notFound)
}

func applyCustomer(customer *kompello.Customer, in kompello.CustomerInput) {
	customer.Title = in.Title
	customer.Firstname = in.Firstname
	customer.Lastname = in.Lastname
	customer.Birthdate = in.Birthdate
	customer.Email = in.Email
	customer.MobilePhone = in.MobilePhone
	customer.LandlinePhone = in.LandlinePhone
	customer.Notes = in.Notes
	customer.IsActive = in.IsActive
	if in.Address != nil {
		addr := kompello.Address{UUID: uuid.NewString()}
		if customer.Address != nil {
			addr.UUID = customer.Address.UUID
		}
		addr.Street = in.Address.Street
		addr.Street2 = in.Address.Street2
		addr.City = in.Address.City
		addr.State = in.Address.State
		addr.PostalCode = in.Address.PostalCode
		addr.Country = in.Address.Country
		customer.Address = &addr
		summary := addr.City + ", " + addr.Country
		customer.AddressSummary = &summary
	}
}

func (s *Server) companyExistsLocked(id string) bool {
	for _, company := range s.companies {
		if company.UUID == id {
			return true
		}
	}
	return false
}

func (s *Server) createCustomer(w http.ResponseWriter, r *http.Request) {
	var in kompello.CustomerInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed JSON."})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.Company == "" {
		writeJSON(w, http.StatusBadRequest, fieldError("company", "This field is required."))
		return
	}
	if !s.companyExistsLocked(in.Company) {
		writeJSON(w, http.StatusBadRequest, fieldError("company", fmt.Sprintf("Object with uuid=%s does not exist.", in.Company)))
		return
	}
	customer := kompello.Customer{UUID: uuid.NewString(), Company: in.Company}
	applyCustomer(&customer, in)
	s.customers = append(s.customers, customer)
	writeJSON(w, http.StatusCreated, customer)
}

func (s *Server) patchCustomer(w http.ResponseWriter, r *http.Request) {
	var in kompello.CustomerInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed JSON."})
		return
	}
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, customer := range s.customers {
		if customer.UUID == id {
			applyCustomer(&customer, in)
			s.customers[i] = customer
			writeJSON(w, http.StatusOK, customer)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, notFound)
}

// decorateLocked fills the read-only currency and unit details of an item.
func (s *Server) decorateLocked(item kompello.Item) kompello.Item {
	for _, currency := range s.currencies {
		if currency.UUID == item.Currency {
			c := currency
			item.CurrencyDetails = &c
			item.CurrencySymbol = currency.Symbol
		}
	}
	for _, unit := range s.units {
		if unit.UUID == item.Unit {
			u := unit
			item.UnitDetails = &u
			item.UnitShortName = unit.ShortName
		}
	}
	return item
}

// itemPatch distinguishes absent keys from explicit nulls.
type itemPatch struct {
	Name         *string         `json:"name"`
	Description  *string         `json:"description"`
	Currency     *string         `json:"currency"`
	Unit         *string         `json:"unit"`
	PricePerUnit *string         `json:"price_per_unit"`
	PriceMax     json.RawMessage `json:"price_max"`
	CustomFields map[string]any  `json:"custom_fields"`
}

// applyItemLocked validates and applies a patch. It returns the field errors
// the API would answer with.
func (s *Server) applyItemLocked(item *kompello.Item, patch itemPatch) map[string][]string {
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return fieldError("name", "This field may not be blank.")
		}
		item.Name = *patch.Name
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Currency != nil {
		ok := false
		for _, currency := range s.currencies {
			if currency.UUID == *patch.Currency && currency.Company == item.Company {
				ok = true
			}
		}
		if !ok {
			return fieldError("currency", "Currency must belong to the same company as the item.")
		}
		item.Currency = *patch.Currency
	}
	if patch.Unit != nil {
		ok := false
		for _, unit := range s.units {
			if unit.UUID == *patch.Unit && unit.Company == item.Company {
				ok = true
			}
		}
		if !ok {
			return fieldError("unit", "Unit must belong to the same company as the item.")
		}
		item.Unit = *patch.Unit
	}
	if patch.PricePerUnit != nil {
		if _, err := strconv.ParseFloat(*patch.PricePerUnit, 64); err != nil {
			return fieldError("price_per_unit", "A valid number is required.")
		}
		item.PricePerUnit = *patch.PricePerUnit
	}
	if len(patch.PriceMax) > 0 {
		if bytes.Equal(bytes.TrimSpace(patch.PriceMax), []byte("null")) {
			item.PriceMax = nil
		} else {
			var priceMax string
			if err := json.Unmarshal(patch.PriceMax, &priceMax); err != nil {
				return fieldError("price_max", "A valid number is required.")
			}
			item.PriceMax = &priceMax
		}
	}
	if item.PriceMax != nil {
		lo, _ := strconv.ParseFloat(item.PricePerUnit, 64)
		hi, _ := strconv.ParseFloat(*item.PriceMax, 64)
		if hi < lo {
			return fieldError("price_max", "Maximum price must be greater than or equal to the base price.")
		}
	}
	if len(patch.CustomFields) > 0 && item.CustomFields == nil {
		item.CustomFields = make(map[string]any)
	}
	for key, value := range patch.CustomFields {
		if value == nil {
			delete(item.CustomFields, key)
			continue
		}
		item.CustomFields[key] = value
	}
	return nil
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Company string `json:"company"`
		itemPatch
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed JSON."})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.companyExistsLocked(body.Company) {
		writeJSON(w, http.StatusBadRequest, fieldError("company", "This field is required."))
		return
	}
	for field, value := range map[string]*string{"name": body.Name, "currency": body.Currency, "unit": body.Unit, "price_per_unit": body.PricePerUnit} {
		if value == nil {
			writeJSON(w, http.StatusBadRequest, fieldError(field, "This field is required."))
			return
		}
	}
	item := kompello.Item{UUID: uuid.NewString(), Company: body.Company}
	if errs := s.applyItemLocked(&item, body.itemPatch); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	s.items = append(s.items, item)
	writeJSON(w, http.StatusCreated, s.decorateLocked(item))
}

func (s *Server) patchItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch itemPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed JSON."})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.items {
		if item.UUID != id {
			continue
		}
		fields := make(map[string]any, len(item.CustomFields))
		for k, v := range item.CustomFields {
			fields[k] = v
		}
		item.CustomFields = fields
		if errs := s.applyItemLocked(&item, patch); errs != nil {
			writeJSON(w, http.StatusBadRequest, errs)
			return
		}
		s.items[i] = item
		writeJSON(w, http.StatusOK, s.decorateLocked(item))
		return
	}
	writeJSON(w, http.StatusNotFound, notFound)
}

func (s *Server) getCustomField(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, def := range s.customFields {
		if def.UUID == id {
			writeJSON(w, http.StatusOK, def)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, notFound)
}

// valueCountLocked counts items holding a value for key.
func (s *Server) valueCountLocked(def kompello.CustomFieldDefinition) int {
	n := 0
	for _, item := range s.items {
		if item.Company != def.Company {
			continue
		}
		if _, ok := item.CustomFields[def.Key]; ok {
			n++
		}
	}
	return n
}

func modelTypeByID(id int) (kompello.ModelType, bool) {
	for _, mt := range modelTypes {
		if mt.ID == id {
			return mt, true
		}
	}
	return kompello.ModelType{}, false
}

// writeCustomFieldLocked validates in against the stored definitions except
// the one named skip.
func (s *Server) writeCustomFieldLocked(in kompello.CustomFieldInput, skip string) map[string][]string {
	if _, ok := modelTypeByID(in.ModelType); !ok {
		return fieldError("model_type", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", in.ModelType))
	}
	if in.DataType < 1 || in.DataType > 3 {
		return fieldError("data_type", fmt.Sprintf("\"%d\" is not a valid choice.", in.DataType))
	}
	if !s.companyExistsLocked(in.Company) {
		return fieldError("company", "This field is required.")
	}
	for _, def := range s.customFields {
		if def.UUID != skip && def.Key == in.Key && def.Company == in.Company && def.ModelType.ID == in.ModelType {
			return fieldError("non_field_errors", "The fields key, model_type, company must make a unique set.")
		}
	}
	return nil
}

func (s *Server) createCustomField(w http.ResponseWriter, r *http.Request) {
	var in kompello.CustomFieldInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed JSON."})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if errs := s.writeCustomFieldLocked(in, ""); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	mt, _ := modelTypeByID(in.ModelType)
	def := kompello.CustomFieldDefinition{
		UUID:         uuid.NewString(),
		Key:          in.Key,
		Name:         in.Name,
		DataType:     in.DataType,
		ModelType:    mt,
		Company:      in.Company,
		TrackHistory: in.TrackHistory,
		IsArchived:   in.IsArchived,
		ShowInUI:     in.ShowInUI,
	}
	s.customFields = append(s.customFields, def)
	writeJSON(w, http.StatusCreated, in)
}

func (s *Server) patchCustomField(w http.ResponseWriter, r *http.Request) {
	var in kompello.CustomFieldInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed JSON."})
		return
	}
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, def := range s.customFields {
		if def.UUID != id {
			continue
		}
		if errs := s.writeCustomFieldLocked(in, id); errs != nil {
			writeJSON(w, http.StatusBadRequest, errs)
			return
		}
		if in.DataType != def.DataType && s.valueCountLocked(def) > 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"data_type": "Cannot change data_type while instances exist for this custom field."})
			return
		}
		mt, _ := modelTypeByID(in.ModelType)
		def.Key = in.Key
		def.Name = in.Name
		def.DataType = in.DataType
		def.ModelType = mt
		def.TrackHistory = in.TrackHistory
		def.IsArchived = in.IsArchived
		def.ShowInUI = in.ShowInUI
		s.customFields[i] = def
		writeJSON(w, http.StatusOK, in)
		return
	}
	writeJSON(w, http.StatusNotFound, notFound)
}

func (s *Server) deleteCustomField(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, def := range s.customFields {
		if def.UUID != id {
			continue
		}
		if s.valueCountLocked(def) > 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"detail": fmt.Sprintf("Cannot delete custom field definition '%s' with existing instances. This would result in data loss.", def.Key),
			})
			return
		}
		s.customFields = append(s.customFields[:i], s.customFields[i+1:]...)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusNotFound, notFound)
}
