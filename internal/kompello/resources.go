package kompello

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func companyQuery(companyID string) url.Values {
	q := url.Values{}
	if companyID != "" {
		q.Set("company", companyID)
	}
	return q
}

// Companies lists companies the principal is a member of.
func (c *Client) Companies(ctx context.Context) ([]Company, error) {
	return list[Company](ctx, c, "list companies", "/api/companies/", nil)
}

// Company fetches one company.
func (c *Client) Company(ctx context.Context, id string) (*Company, error) {
	var company Company
	if err := c.do(ctx, "get company", http.MethodGet, "/api/companies/"+url.PathEscape(id)+"/", nil, nil, &company); err != nil {
		return nil, err
	}
	return &company, nil
}

// CompanyMembers lists the users of a company.
func (c *Client) CompanyMembers(ctx context.Context, id string) ([]User, error) {
	return list[User](ctx, c, "company members", "/api/companies/"+url.PathEscape(id)+"/members/", nil)
}

// Units lists units of a company.
func (c *Client) Units(ctx context.Context, companyID string) ([]Unit, error) {
	return list[Unit](ctx, c, "list units", "/api/units/", companyQuery(companyID))
}

// CreateUnit creates a unit.
func (c *Client) CreateUnit(ctx context.Context, unit Unit) (*Unit, error) {
	var created Unit
	if err := c.do(ctx, "create unit", http.MethodPost, "/api/units/", nil, unit, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Unit fetches one unit.
func (c *Client) Unit(ctx context.Context, id string) (*Unit, error) {
	var unit Unit
	if err := c.do(ctx, "get unit", http.MethodGet, "/api/units/"+url.PathEscape(id)+"/", nil, nil, &unit); err != nil {
		return nil, err
	}
	return &unit, nil
}

// UpdateUnit renames a unit.
func (c *Client) UpdateUnit(ctx context.Context, id string, in UnitInput) (*Unit, error) {
	var unit Unit
	if err := c.do(ctx, "update unit", http.MethodPatch, "/api/units/"+url.PathEscape(id)+"/", nil, in, &unit); err != nil {
		return nil, err
	}
	return &unit, nil
}

// Currencies lists currencies of a company.
func (c *Client) Currencies(ctx context.Context, companyID string) ([]Currency, error) {
	return list[Currency](ctx, c, "list currencies", "/api/currencies/", companyQuery(companyID))
}

// CreateCurrency creates a currency.
func (c *Client) CreateCurrency(ctx context.Context, currency Currency) (*Currency, error) {
	var created Currency
	if err := c.do(ctx, "create currency", http.MethodPost, "/api/currencies/", nil, currency, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Currency fetches one currency.
func (c *Client) Currency(ctx context.Context, id string) (*Currency, error) {
	var currency Currency
	if err := c.do(ctx, "get currency", http.MethodGet, "/api/currencies/"+url.PathEscape(id)+"/", nil, nil, &currency); err != nil {
		return nil, err
	}
	return &currency, nil
}

// UpdateCurrency renames a currency.
func (c *Client) UpdateCurrency(ctx context.Context, id string, in CurrencyInput) (*Currency, error) {
	var currency Currency
	if err := c.do(ctx, "update currency", http.MethodPatch, "/api/currencies/"+url.PathEscape(id)+"/", nil, in, &currency); err != nil {
		return nil, err
	}
	return &currency, nil
}

// CustomerFilter narrows a customer listing.
type CustomerFilter struct {
	CompanyID string
	IsActive  *bool
}

// Customers lists customers of a company.
func (c *Client) Customers(ctx context.Context, filter CustomerFilter) ([]Customer, error) {
	q := companyQuery(filter.CompanyID)
	if filter.IsActive != nil {
		q.Set("is_active", strconv.FormatBool(*filter.IsActive))
	}
	return list[Customer](ctx, c, "list customers", "/api/customers/", q)
}

// Customer fetches one customer with its address.
func (c *Client) Customer(ctx context.Context, id string) (*Customer, error) {
	var customer Customer
	if err := c.do(ctx, "get customer", http.MethodGet, "/api/customers/"+url.PathEscape(id)+"/", nil, nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// CreateCustomer creates a customer, with its address when one is given.
func (c *Client) CreateCustomer(ctx context.Context, in CustomerInput) (*Customer, error) {
	var customer Customer
	if err := c.do(ctx, "create customer", http.MethodPost, "/api/customers/", nil, in, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// UpdateCustomer patches a customer. The company of a customer never changes.
func (c *Client) UpdateCustomer(ctx context.Context, id string, in CustomerInput) (*Customer, error) {
	in.Company = ""
	var customer Customer
	if err := c.do(ctx, "update customer", http.MethodPatch, "/api/customers/"+url.PathEscape(id)+"/", nil, in, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// Items lists items of a company.
func (c *Client) Items(ctx context.Context, companyID string) ([]Item, error) {
	return list[Item](ctx, c, "list items", "/api/items/", companyQuery(companyID))
}

// Item fetches one item including currency, unit and custom field values.
func (c *Client) Item(ctx context.Context, id string) (*Item, error) {
	var item Item
	if err := c.do(ctx, "get item", http.MethodGet, "/api/items/"+url.PathEscape(id)+"/", nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateItem creates an item.
func (c *Client) CreateItem(ctx context.Context, in ItemInput) (*Item, error) {
	var item Item
	if err := c.do(ctx, "create item", http.MethodPost, "/api/items/", nil, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem patches an item.
func (c *Client) UpdateItem(ctx context.Context, id string, in ItemInput) (*Item, error) {
	in.Company = ""
	var item Item
	if err := c.do(ctx, "update item", http.MethodPatch, "/api/items/"+url.PathEscape(id)+"/", nil, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItemCustomFields replaces the custom field values of an item. A nil
// value clears the field.
func (c *Client) UpdateItemCustomFields(ctx context.Context, id string, values map[string]any) (*Item, error) {
	body := map[string]any{"custom_fields": values}
	var item Item
	if err := c.do(ctx, "update item", http.MethodPatch, "/api/items/"+url.PathEscape(id)+"/", nil, body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CustomFieldQuery selects custom field definitions.
type CustomFieldQuery struct {
	CompanyID   string
	ModelTypeID int
	ShowInUI    *bool
}

// CustomFields lists custom field definitions.
func (c *Client) CustomFields(ctx context.Context, query CustomFieldQuery) ([]CustomFieldDefinition, error) {
	q := companyQuery(query.CompanyID)
	if query.ModelTypeID > 0 {
		q.Set("model_type", strconv.Itoa(query.ModelTypeID))
	}
	if query.ShowInUI != nil {
		q.Set("show_in_ui", strconv.FormatBool(*query.ShowInUI))
	}
	return list[CustomFieldDefinition](ctx, c, "list custom fields", "/api/custom_fields/", q)
}

// CustomFieldMetadata returns supported model and data types.
func (c *Client) CustomFieldMetadata(ctx context.Context) (*CustomFieldMetadata, error) {
	var meta CustomFieldMetadata
	if err := c.do(ctx, "custom field metadata", http.MethodGet, "/api/custom_fields/metadata/", nil, nil, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// CustomField fetches one custom field definition.
func (c *Client) CustomField(ctx context.Context, id string) (*CustomFieldDefinition, error) {
	var def CustomFieldDefinition
	if err := c.do(ctx, "get custom field", http.MethodGet, customFieldPath(id), nil, nil, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

// The write endpoints answer with the model type as a bare id, so their
// bodies are not decoded.

// CreateCustomField creates a custom field definition.
func (c *Client) CreateCustomField(ctx context.Context, in CustomFieldInput) error {
	return c.do(ctx, "create custom field", http.MethodPost, "/api/custom_fields/", nil, in, nil)
}

// UpdateCustomField patches a custom field definition.
func (c *Client) UpdateCustomField(ctx context.Context, id string, in CustomFieldInput) error {
	return c.do(ctx, "update custom field", http.MethodPatch, customFieldPath(id), nil, in, nil)
}

// DeleteCustomField removes a definition. The API refuses with 400 while
// values exist for it.
func (c *Client) DeleteCustomField(ctx context.Context, id string) error {
	return c.do(ctx, "delete custom field", http.MethodDelete, customFieldPath(id), nil, nil, nil)
}

func customFieldPath(id string) string {
	return "/api/custom_fields/" + url.PathEscape(id) + "/"
}

// UpdateCompany patches the name and description of a company.
func (c *Client) UpdateCompany(ctx context.Context, id string, in CompanyInput) (*Company, error) {
	var company Company
	if err := c.do(ctx, "update company", http.MethodPatch, "/api/companies/"+url.PathEscape(id)+"/", nil, in, &company); err != nil {
		return nil, err
	}
	return &company, nil
}

// UpdateUser patches a user profile.
func (c *Client) UpdateUser(ctx context.Context, id string, in UserInput) (*User, error) {
	var user User
	if err := c.do(ctx, "update user", http.MethodPatch, "/api/users/"+url.PathEscape(id)+"/", nil, in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SetPassword changes the password of a user. The upstream may end the
// current session as a consequence.
func (c *Client) SetPassword(ctx context.Context, id, password string) error {
	body := map[string]string{"password": password}
	return c.do(ctx, "set password", http.MethodPost, "/api/users/"+url.PathEscape(id)+"/set_password/", nil, body, nil)
}
