// Package kompellotest provides an in-memory fake of the Kompello API for tests.
package kompellotest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kompello/kompello-console/internal/kompello"
)

const (
	// SessionCookie names the fake upstream session cookie.
	SessionCookie = "sessionid"
	// CSRFCookie names the fake upstream CSRF cookie.
	CSRFCookie = "csrftoken"
	// CSRFToken is the token handed out by the fake.
	CSRFToken = "fake-csrf-token"
)

type account struct {
	password string
	user     kompello.User
}

// Server is a fake Kompello API.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	accounts     map[string]account
	sessions     map[string]string
	companies    []kompello.Company
	members      map[string][]kompello.User
	units        []kompello.Unit
	currencies   []kompello.Currency
	customers    []kompello.Customer
	items        []kompello.Item
	customFields []kompello.CustomFieldDefinition
	sessionGate  chan struct{}

	SessionChecks atomic.Int64
	ProfileCalls  atomic.Int64
	LoginCalls    atomic.Int64
	LogoutCalls   atomic.Int64
	CSRFCalls     atomic.Int64
	// FailLogout makes the session-deletion endpoint answer 503 without
	// ending the session.
	FailLogout atomic.Bool
	// FailProfile makes /api/users/me/ answer 500.
	FailProfile atomic.Bool
}

// New starts a fake server that is closed with the test.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accounts: make(map[string]account),
		sessions: make(map[string]string),
		members:  make(map[string][]kompello.User),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// NewClient returns a kompello.Client bound to the fake with a fresh jar.
func (s *Server) NewClient(t testing.TB) *kompello.Client {
	t.Helper()
	client, err := kompello.NewClient(kompello.Options{BaseURL: s.URL})
	if err != nil {
		t.Fatalf("kompello client: %v", err)
	}
	return client
}

// AddUser registers an account. A missing UUID is generated.
func (s *Server) AddUser(email, password string, user kompello.User) kompello.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.UUID == "" {
		user.UUID = uuid.NewString()
	}
	if user.Email == "" {
		user.Email = email
	}
	s.accounts[email] = account{password: password, user: user}
	return user
}

// AddCompany registers a company with its members.
func (s *Server) AddCompany(company kompello.Company, members ...kompello.User) kompello.Company {
	s.mu.Lock()
	defer s.mu.Unlock()
	if company.UUID == "" {
		company.UUID = uuid.NewString()
	}
	s.companies = append(s.companies, company)
	s.members[company.UUID] = members
	return company
}

// AddUnit registers a unit.
func (s *Server) AddUnit(unit kompello.Unit) kompello.Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	if unit.UUID == "" {
		unit.UUID = uuid.NewString()
	}
	s.units = append(s.units, unit)
	return unit
}

// AddCurrency registers a currency.
func (s *Server) AddCurrency(currency kompello.Currency) kompello.Currency {
	s.mu.Lock()
	defer s.mu.Unlock()
	if currency.UUID == "" {
		currency.UUID = uuid.NewString()
	}
	s.currencies = append(s.currencies, currency)
	return currency
}

// AddCustomer registers a customer.
func (s *Server) AddCustomer(customer kompello.Customer) kompello.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if customer.UUID == "" {
		customer.UUID = uuid.NewString()
	}
	s.customers = append(s.customers, customer)
	return customer
}

// AddItem registers an item.
func (s *Server) AddItem(item kompello.Item) kompello.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.UUID == "" {
		item.UUID = uuid.NewString()
	}
	fields := make(map[string]any, len(item.CustomFields))
	for key, value := range item.CustomFields {
		fields[key] = value
	}
	item.CustomFields = fields
	s.items = append(s.items, item)
	return item
}

// AddCustomField registers a custom field definition.
func (s *Server) AddCustomField(def kompello.CustomFieldDefinition) kompello.CustomFieldDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	if def.UUID == "" {
		def.UUID = uuid.NewString()
	}
	s.customFields = append(s.customFields, def)
	return def
}

// Units returns a copy of the stored units.
func (s *Server) Units() []kompello.Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]kompello.Unit(nil), s.units...)
}

// ExpireSessions drops every upstream session.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]string)
}

// BlockSessionChecks parks session checks until the returned release func
// is called. Parked checks are already counted in SessionChecks.
func (s *Server) BlockSessionChecks() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.sessionGate = gate
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.sessionGate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/system/get_csrf_token/", s.csrfToken)
	r.Get("/_allauth/browser/v1/auth/session", s.session)
	r.Delete("/_allauth/browser/v1/auth/session", s.csrf(s.logout))
	r.Post("/_allauth/browser/v1/auth/login", s.csrf(s.login))

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/api/users/me/", s.me)
		r.Get("/api/companies/", s.listCompanies)
		r.Get("/api/companies/{id}/", s.getCompany)
		r.Get("/api/companies/{id}/members/", s.companyMembers)
		r.Patch("/api/companies/{id}/", s.csrf(s.patchCompany))
		r.Patch("/api/users/{id}/", s.csrf(s.patchUser))
		r.Post("/api/users/{id}/set_password/", s.csrf(s.setPassword))
		r.Get("/api/units/", s.listUnits)
		r.Post("/api/units/", s.csrf(s.createUnit))
		r.Get("/api/units/{id}/", s.getUnit)
		r.Patch("/api/units/{id}/", s.csrf(s.patchUnit))
		r.Get("/api/currencies/", s.listCurrencies)
		r.Post("/api/currencies/", s.csrf(s.createCurrency))
		r.Get("/api/currencies/{id}/", s.getCurrency)
		r.Patch("/api/currencies/{id}/", s.csrf(s.patchCurrency))
		r.Get("/api/customers/", s.listCustomers)
		r.Post("/api/customers/", s.csrf(s.createCustomer))
		r.Get("/api/customers/{id}/", s.getCustomer)
		r.Patch("/api/customers/{id}/", s.csrf(s.patchCustomer))
		r.Get("/api/items/", s.listItems)
		r.Post("/api/items/", s.csrf(s.createItem))
		r.Get("/api/items/{id}/", s.getItem)
		r.Patch("/api/items/{id}/", s.csrf(s.patchItem))
		r.Get("/api/custom_fields/", s.listCustomFields)
		r.Post("/api/custom_fields/", s.csrf(s.createCustomField))
		r.Get("/api/custom_fields/metadata/", s.customFieldMetadata)
		r.Get("/api/custom_fields/{id}/", s.getCustomField)
		r.Patch("/api/custom_fields/{id}/", s.csrf(s.patchCustomField))
		r.Delete("/api/custom_fields/{id}/", s.csrf(s.deleteCustomField))
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) sessionUser(r *http.Request) (kompello.User, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return kompello.User{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.sessions[cookie.Value]
	if !ok {
		return kompello.User{}, false
	}
	acc, ok := s.accounts[email]
	return acc.user, ok
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.sessionUser(r); !ok {
			writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) csrf(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CSRFCookie)
		if err != nil || cookie.Value != r.Header.Get("X-CSRFToken") {
			writeJSON(w, http.StatusForbidden, map[string]string{"detail": "CSRF Failed: CSRF token missing."})
			return
		}
		next(w, r)
	}
}

func (s *Server) csrfToken(w http.ResponseWriter, r *http.Request) {
	s.CSRFCalls.Add(1)
	http.SetCookie(w, &http.Cookie{Name: CSRFCookie, Value: CSRFToken, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]string{"csrfToken": CSRFToken})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	s.SessionChecks.Add(1)
	s.mu.Lock()
	gate := s.sessionGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	user, ok := s.sessionUser(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"status": 401, "data": map[string]any{"flows": []any{}}, "meta": map[string]any{"is_authenticated": false}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": 200, "data": map[string]any{"user": map[string]any{"email": user.Email}}, "meta": map[string]any{"is_authenticated": true}})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	s.LoginCalls.Add(1)
	var req kompello.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": 400, "errors": []map[string]string{{"message": "Invalid JSON.", "code": "invalid"}}})
		return
	}
	s.mu.Lock()
	acc, ok := s.accounts[req.Username]
	if !ok || acc.password != req.Password {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": 400, "errors": []map[string]string{{"message": "The email address and/or password you specified are not correct.", "code": "email_password_mismatch", "param": "password"}}})
		return
	}
	id := uuid.NewString()
	s.sessions[id] = req.Username
	s.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: id, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{"status": 200, "meta": map[string]any{"is_authenticated": true}})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.LogoutCalls.Add(1)
	if s.FailLogout.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "unavailable"})
		return
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusUnauthorized, map[string]any{"status": 401, "meta": map[string]any{"is_authenticated": false}})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.ProfileCalls.Add(1)
	if s.FailProfile.Load() {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
		return
	}
	user, _ := s.sessionUser(r)
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) listCompanies(w http.ResponseWriter, r *http.Request) {
	user, _ := s.sessionUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []kompello.Company{}
	for _, company := range s.companies {
		for _, member := range s.members[company.UUID] {
			if member.UUID == user.UUID {
				out = append(out, company)
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getCompany(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, company := range s.companies {
		if company.UUID == id {
			writeJSON(w, http.StatusOK, company)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (s *Server) companyMembers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.members[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) listUnits(w http.ResponseWriter, r *http.Request) {
	company := r.URL.Query().Get("company")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []kompello.Unit{}
	for _, unit := range s.units {
		if company == "" || unit.Company == company {
			out = append(out, unit)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createUnit(w http.ResponseWriter, r *http.Request) {
	var unit kompello.Unit
	if err := json.NewDecoder(r.Body).Decode(&unit); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid JSON."})
		return
	}
	s.mu.Lock()
	for _, existing := range s.units {
		if existing.Company == unit.Company && existing.ShortName == unit.ShortName {
			s.mu.Unlock()
			writeJSON(w, http.StatusBadRequest, map[string][]string{"short_name": {"Unit with this short name already exists."}})
			return
		}
	}
	unit.UUID = uuid.NewString()
	s.units = append(s.units, unit)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, unit)
}

func (s *Server) listCurrencies(w http.ResponseWriter, r *http.Request) {
	company := r.URL.Query().Get("company")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []kompello.Currency{}
	for _, currency := range s.currencies {
		if company == "" || currency.Company == company {
			out = append(out, currency)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createCurrency(w http.ResponseWriter, r *http.Request) {
	var currency kompello.Currency
	if err := json.NewDecoder(r.Body).Decode(&currency); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid JSON."})
		return
	}
	currency.UUID = uuid.NewString()
	s.mu.Lock()
	s.currencies = append(s.currencies, currency)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, currency)
}

func (s *Server) listCustomers(w http.ResponseWriter, r *http.Request) {
	company := r.URL.Query().Get("company")
	active := r.URL.Query().Get("is_active")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []kompello.Customer{}
	for _, customer := range s.customers {
		if company != "" && customer.Company != company {
			continue
		}
		if (active == "true" && !customer.IsActive) || (active == "false" && customer.IsActive) {
			continue
		}
		out = append(out, customer)
	}
	// Paginated on purpose: the client accepts both shapes.
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "results": out})
}

func (s *Server) getCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, customer := range s.customers {
		if customer.UUID == id {
			writeJSON(w, http.StatusOK, customer)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	company := r.URL.Query().Get("company")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []kompello.Item{}
	for _, item := range s.items {
		if company == "" || item.Company == company {
			out = append(out, s.decorateLocked(item))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.UUID == id {
			writeJSON(w, http.StatusOK, s.decorateLocked(item))
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

// Item returns the stored item with the given id.
func (s *Server) Item(id string) (kompello.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.UUID == id {
			return item, true
		}
	}
	return kompello.Item{}, false
}

func (s *Server) listCustomFields(w http.ResponseWriter, r *http.Request) {
	company := r.URL.Query().Get("company")
	showInUI := r.URL.Query().Get("show_in_ui")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []kompello.CustomFieldDefinition{}
	for _, def := range s.customFields {
		if company != "" && def.Company != company {
			continue
		}
		if showInUI == "true" && !def.ShowInUI {
			continue
		}
		out = append(out, def)
	}
	writeJSON(w, http.StatusOK, out)
}

var modelTypes = []kompello.ModelType{{ID: 7, AppLabel: "core", Model: "item"}}

func (s *Server) customFieldMetadata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, kompello.CustomFieldMetadata{
		ModelTypes: modelTypes,
		DataTypes: []kompello.DataTypeChoice{
			{Value: 1, Label: "Text"},
			{Value: 2, Label: "Number"},
			{Value: 3, Label: "Boolean"},
		},
	})
}
