package masterdata

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kompello/kompello-console/internal/customfields"
	"github.com/kompello/kompello-console/internal/kompello"
	"github.com/kompello/kompello-console/internal/kompello/kompellotest"
	"github.com/kompello/kompello-console/internal/shared"
)

type fixture struct {
	fake    *kompellotest.Server
	service *Service
	company kompello.Company
	other   kompello.Company
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	fake := kompellotest.New(t)
	user := fake.AddUser("alice@example.com", "s3cret", kompello.User{IsActive: true})
	company := fake.AddCompany(kompello.Company{Name: "Acme"}, user)
	other := fake.AddCompany(kompello.Company{Name: "Other"})

	client := fake.NewClient(t)
	require.NoError(t, client.Login(context.Background(), "alice@example.com", "s3cret"))
	return fixture{fake: fake, service: NewService(client), company: company, other: other}
}

func TestOverviewCounts(t *testing.T) {
	f := newFixture(t)
	f.fake.AddCustomer(kompello.Customer{Company: f.company.UUID, IsActive: true})
	f.fake.AddCustomer(kompello.Customer{Company: f.company.UUID})
	f.fake.AddCustomer(kompello.Customer{Company: f.other.UUID})
	f.fake.AddUnit(kompello.Unit{Company: f.company.UUID, ShortName: "h"})
	f.fake.AddItem(kompello.Item{Company: f.company.UUID, Name: "Consulting"})

	overview, err := f.service.Overview(context.Background(), f.company.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", overview.Company.Name)
	assert.Equal(t, 2, overview.Customers)
	assert.Equal(t, 1, overview.Items)
	assert.Equal(t, 1, overview.Units)
	assert.Zero(t, overview.Currencies)
}

func TestCustomersFilter(t *testing.T) {
	f := newFixture(t)
	f.fake.AddCustomer(kompello.Customer{Company: f.company.UUID, Lastname: "Active", IsActive: true})
	f.fake.AddCustomer(kompello.Customer{Company: f.company.UUID, Lastname: "Gone"})

	for filter, want := range map[string]int{FilterAll: 2, FilterActive: 1, FilterInactive: 1} {
		customers, err := f.service.Customers(context.Background(), f.company.UUID, filter)
		require.NoError(t, err)
		assert.Len(t, customers, want, "filter %q", filter)
	}
}

func TestCustomerOfOtherCompanyIsNotFound(t *testing.T) {
	f := newFixture(t)
	foreign := f.fake.AddCustomer(kompello.Customer{Company: f.other.UUID})

	_, err := f.service.Customer(context.Background(), f.company.UUID, foreign.UUID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateUnitResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.CreateUnit(ctx, f.company.UUID, UnitForm{ShortName: "  ", LongName: "Hour"})
	require.NoError(t, err)
	assert.Equal(t, shared.FormInvalid, result.Status)
	assert.Equal(t, "validation.required", result.Errors["short_name"])
	assert.Empty(t, f.fake.Units())

	result, err = f.service.CreateUnit(ctx, f.company.UUID, UnitForm{ShortName: " h ", LongName: "Hour"})
	require.NoError(t, err)
	assert.True(t, result.OK())
	units := f.fake.Units()
	require.Len(t, units, 1)
	assert.Equal(t, "h", units[0].ShortName)
	assert.Equal(t, f.company.UUID, units[0].Company)

	result, err = f.service.CreateUnit(ctx, f.company.UUID, UnitForm{ShortName: "h", LongName: "Hour"})
	require.NoError(t, err)
	assert.Equal(t, shared.FormInvalid, result.Status)
	assert.Contains(t, result.Errors["short_name"], "already exists")
}

func TestCreateCurrencyValidates(t *testing.T) {
	f := newFixture(t)
	result, err := f.service.CreateCurrency(context.Background(), f.company.UUID, CurrencyForm{Symbol: "€", ShortName: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, "validation.required", result.Errors["long_name"])

	result, err = f.service.CreateCurrency(context.Background(), f.company.UUID, CurrencyForm{Symbol: "€", ShortName: "EUR", LongName: "Euro"})
	require.NoError(t, err)
	assert.True(t, result.OK())
}

func TestUpdateItemFields(t *testing.T) {
	f := newFixture(t)
	f.fake.AddCustomField(kompello.CustomFieldDefinition{Key: "weight", Name: "Weight", DataType: int(customfields.Number), Company: f.company.UUID, ShowInUI: true})
	f.fake.AddCustomField(kompello.CustomFieldDefinition{Key: "fragile", Name: "Fragile", DataType: int(customfields.Boolean), Company: f.company.UUID, ShowInUI: true})
	item := f.fake.AddItem(kompello.Item{Company: f.company.UUID, Name: "Box", CustomFields: map[string]any{"weight": 1.5}})
	ctx := context.Background()

	detail, outcome, err := f.service.UpdateItemFields(ctx, f.company.UUID, item.UUID, url.Values{"cf_weight": {"heavy"}, "cf_fragile": {"on"}})
	require.NoError(t, err)
	assert.False(t, outcome.OK())
	assert.Equal(t, "validation.number", outcome.Errors["weight"])
	assert.Len(t, detail.Definitions, 2)
	stored, _ := f.fake.Item(item.UUID)
	assert.Equal(t, 1.5, stored.CustomFields["weight"], "invalid submissions never reach the API")

	_, outcome, err = f.service.UpdateItemFields(ctx, f.company.UUID, item.UUID, url.Values{"cf_weight": {""}, "cf_fragile": {"on"}})
	require.NoError(t, err)
	assert.True(t, outcome.OK())
	stored, _ = f.fake.Item(item.UUID)
	assert.NotContains(t, stored.CustomFields, "weight")
	assert.Equal(t, true, stored.CustomFields["fragile"])
}

func TestItemOfOtherCompanyIsNotFound(t *testing.T) {
	f := newFixture(t)
	item := f.fake.AddItem(kompello.Item{Company: f.other.UUID, Name: "Foreign"})
	_, err := f.service.Item(context.Background(), f.company.UUID, item.UUID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSettings(t *testing.T) {
	f := newFixture(t)
	f.fake.AddCustomField(kompello.CustomFieldDefinition{Key: "weight", Name: "Weight", DataType: 2, Company: f.company.UUID})

	settings, err := f.service.Settings(context.Background(), f.company.UUID)
	require.NoError(t, err)
	assert.Len(t, settings.Members, 1)
	assert.Len(t, settings.Fields, 1)
	assert.Equal(t, "Number", settings.DataTypes[2])
	assert.Equal(t, "item", settings.Models[7])
}

func TestUnauthorizedUpstreamSurfaces(t *testing.T) {
	f := newFixture(t)
	f.fake.ExpireSessions()
	_, err := f.service.Units(context.Background(), f.company.UUID)
	assert.True(t, kompello.IsUnauthorized(err))
}

func TestUpdateItemFieldsRejectsNaN(t *testing.T) {
	f := newFixture(t)
	f.fake.AddCustomField(kompello.CustomFieldDefinition{Key: "weight", Name: "Weight", DataType: int(customfields.Number), Company: f.company.UUID, ShowInUI: true})
	item := f.fake.AddItem(kompello.Item{Company: f.company.UUID, Name: "Box", CustomFields: map[string]any{"weight": 2.0}})

	_, outcome, err := f.service.UpdateItemFields(context.Background(), f.company.UUID, item.UUID, url.Values{"cf_weight": {"NaN"}})
	require.NoError(t, err)
	assert.Equal(t, "validation.number", outcome.Errors["weight"])
	stored, _ := f.fake.Item(item.UUID)
	assert.Equal(t, 2.0, stored.CustomFields["weight"])
}

func TestCreateCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, result, err := f.service.CreateCustomer(ctx, f.company.UUID, CustomerForm{Lastname: "Brecht", Email: "not-an-email", Street: "Chausseestr. 125"})
	require.NoError(t, err)
	assert.Equal(t, shared.FormInvalid, result.Status)
	assert.Equal(t, "validation.email", result.Errors["email"])
	assert.Equal(t, "validation.required_with", result.Errors["city"])
	assert.Equal(t, "validation.required_with", result.Errors["postal_code"])
	assert.Equal(t, "validation.required_with", result.Errors["country"])
	assert.Empty(t, f.fake.Customers())

	_, result, err = f.service.CreateCustomer(ctx, f.company.UUID, CustomerForm{Lastname: "Brecht", Birthdate: "10.02.1898"})
	require.NoError(t, err)
	assert.Equal(t, "validation.datetime", result.Errors["birthdate"])

	customer, result, err := f.service.CreateCustomer(ctx, f.company.UUID, CustomerForm{
		Firstname:  " Bertolt ",
		Lastname:   "Brecht",
		Birthdate:  "1898-02-10",
		IsActive:   true,
		Street:     "Chausseestr. 125",
		PostalCode: "10115",
		City:       "Berlin",
		Country:    "DE",
	})
	require.NoError(t, err)
	require.True(t, result.OK())
	require.NotNil(t, customer)
	assert.Equal(t, f.company.UUID, customer.Company)
	assert.Equal(t, "Bertolt", customer.Firstname)
	require.NotNil(t, customer.AddressSummary)
	assert.Equal(t, "Berlin, DE", *customer.AddressSummary)
	assert.Len(t, f.fake.Customers(), 1)
}

func TestUpdateCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	birthdate := "1898-02-10"
	customer := f.fake.AddCustomer(kompello.Customer{Company: f.company.UUID, Lastname: "Brecht", Birthdate: &birthdate, IsActive: true})
	foreign := f.fake.AddCustomer(kompello.Customer{Company: f.other.UUID, Lastname: "Foreign"})

	_, err := f.service.UpdateCustomer(ctx, f.company.UUID, foreign.UUID, CustomerForm{Lastname: "Mine"})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	stored, err := f.service.Customer(ctx, f.company.UUID, customer.UUID)
	require.NoError(t, err)
	form := CustomerFormFrom(stored)
	assert.Equal(t, "1898-02-10", form.Birthdate)
	form.Lastname = "Weigel"
	form.IsActive = false

	result, err := f.service.UpdateCustomer(ctx, f.company.UUID, customer.UUID, form)
	require.NoError(t, err)
	assert.True(t, result.OK())

	updated, err := f.service.Customer(ctx, f.company.UUID, customer.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Weigel", updated.Lastname)
	assert.False(t, updated.IsActive)
	assert.Equal(t, f.company.UUID, updated.Company, "the company never changes")
}

func TestCreateItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	unit := f.fake.AddUnit(kompello.Unit{Company: f.company.UUID, ShortName: "h", LongName: "Hour"})
	eur := f.fake.AddCurrency(kompello.Currency{Company: f.company.UUID, Symbol: "€", ShortName: "EUR", LongName: "Euro"})
	foreign := f.fake.AddCurrency(kompello.Currency{Company: f.other.UUID, Symbol: "$", ShortName: "USD", LongName: "Dollar"})
	f.fake.AddCustomField(kompello.CustomFieldDefinition{Key: "sku", Name: "SKU", DataType: int(customfields.Text), Company: f.company.UUID, ShowInUI: true})
	f.fake.AddCustomField(kompello.CustomFieldDefinition{Key: "weight", Name: "Weight", DataType: int(customfields.Number), Company: f.company.UUID, ShowInUI: true})

	options, err := f.service.ItemOptions(ctx, f.company.UUID)
	require.NoError(t, err)
	assert.Len(t, options.Units, 1)
	assert.Len(t, options.Currencies, 1)
	assert.Len(t, options.Definitions, 2)

	tests := []struct {
		name   string
		form   ItemForm
		values url.Values
		field  string
		want   string
	}{
		{"missing name", ItemForm{Currency: eur.UUID, Unit: unit.UUID, PricePerUnit: "10"}, nil, "name", "validation.required"},
		{"three decimals", ItemForm{Name: "Consulting", Currency: eur.UUID, Unit: unit.UUID, PricePerUnit: "10.125"}, nil, "price_per_unit", "validation.price"},
		{"negative price", ItemForm{Name: "Consulting", Currency: eur.UUID, Unit: unit.UUID, PricePerUnit: "-1"}, nil, "price_per_unit", "validation.price"},
		{"maximum below price", ItemForm{Name: "Consulting", Currency: eur.UUID, Unit: unit.UUID, PricePerUnit: "100", PriceMax: "99.99"}, nil, "price_max", "validation.price_range"},
		{"no unit chosen", ItemForm{Name: "Consulting", Currency: eur.UUID, PricePerUnit: "10"}, nil, "unit", "validation.required"},
		{"non-finite custom value", ItemForm{Name: "Consulting", Currency: eur.UUID, Unit: unit.UUID, PricePerUnit: "10"}, url.Values{"cf_weight": {"Inf"}}, "cf_weight", "validation.number"},
		{"currency of another company", ItemForm{Name: "Consulting", Currency: foreign.UUID, Unit: unit.UUID, PricePerUnit: "10"}, nil, "currency", "Currency must belong to the same company as the item."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, result, err := f.service.CreateItem(ctx, f.company.UUID, tt.form, tt.values)
			require.NoError(t, err)
			assert.Nil(t, item)
			assert.Equal(t, shared.FormInvalid, result.Status)
			assert.Equal(t, tt.want, result.Errors[tt.field])
		})
	}
	assert.Empty(t, f.fake.Items())

	item, result, err := f.service.CreateItem(ctx, f.company.UUID, ItemForm{
		Name:         "Consulting",
		Currency:     eur.UUID,
		Unit:         unit.UUID,
		PricePerUnit: "120,50",
		PriceMax:     "150",
	}, url.Values{"cf_sku": {"C-1"}, "cf_weight": {""}})
	require.NoError(t, err)
	require.True(t, result.OK())
	require.NotNil(t, item)
	assert.Equal(t, "120.50", item.PricePerUnit)
	require.NotNil(t, item.PriceMax)
	assert.Equal(t, "150", *item.PriceMax)
	assert.Equal(t, "€", item.CurrencySymbol)
	assert.Equal(t, map[string]any{"sku": "C-1"}, item.CustomFields, "empty values are not sent on creation")
}

func TestUpdateItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	unit := f.fake.AddUnit(kompello.Unit{Company: f.company.UUID, ShortName: "h", LongName: "Hour"})
	eur := f.fake.AddCurrency(kompello.Currency{Company: f.company.UUID, Symbol: "€", ShortName: "EUR", LongName: "Euro"})
	priceMax := "200"
	item := f.fake.AddItem(kompello.Item{Company: f.company.UUID, Name: "Consulting", Currency: eur.UUID, Unit: unit.UUID, PricePerUnit: "100", PriceMax: &priceMax, CustomFields: map[string]any{"sku": "C-1"}})
	foreign := f.fake.AddItem(kompello.Item{Company: f.other.UUID, Name: "Foreign"})

	_, err := f.service.UpdateItem(ctx, f.company.UUID, foreign.UUID, ItemForm{Name: "Mine"})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	detail, err := f.service.Item(ctx, f.company.UUID, item.UUID)
	require.NoError(t, err)
	form := ItemFormFrom(detail.Item)
	assert.Equal(t, "200", form.PriceMax)

	form.Name = "Senior consulting"
	form.PriceMax = ""
	result, err := f.service.UpdateItem(ctx, f.company.UUID, item.UUID, form)
	require.NoError(t, err)
	assert.True(t, result.OK())

	stored, _ := f.fake.Item(item.UUID)
	assert.Equal(t, "Senior consulting", stored.Name)
	assert.Nil(t, stored.PriceMax, "a cleared maximum price is removed")
	assert.Equal(t, "C-1", stored.CustomFields["sku"], "custom fields are left alone")
}

func TestUpdateUnitAndCurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hour := f.fake.AddUnit(kompello.Unit{Company: f.company.UUID, ShortName: "h", LongName: "Hour"})
	f.fake.AddUnit(kompello.Unit{Company: f.company.UUID, ShortName: "pc", LongName: "Piece"})
	foreignUnit := f.fake.AddUnit(kompello.Unit{Company: f.other.UUID, ShortName: "d", LongName: "Day"})
	eur := f.fake.AddCurrency(kompello.Currency{Company: f.company.UUID, Symbol: "€", ShortName: "EUR", LongName: "Euro"})

	_, err := f.service.UpdateUnit(ctx, f.company.UUID, foreignUnit.UUID, UnitForm{ShortName: "x", LongName: "X"})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	result, err := f.service.UpdateUnit(ctx, f.company.UUID, hour.UUID, UnitForm{ShortName: "pc", LongName: "Hour"})
	require.NoError(t, err)
	assert.Contains(t, result.Errors["short_name"], "already exists")

	result, err = f.service.UpdateUnit(ctx, f.company.UUID, hour.UUID, UnitForm{ShortName: " hr ", LongName: "Hours"})
	require.NoError(t, err)
	assert.True(t, result.OK())
	unit, err := f.service.Unit(ctx, f.company.UUID, hour.UUID)
	require.NoError(t, err)
	assert.Equal(t, "hr", unit.ShortName)

	currencyResult, err := f.service.UpdateCurrency(ctx, f.company.UUID, eur.UUID, CurrencyForm{Symbol: "€", ShortName: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, "validation.required", currencyResult.Errors["long_name"])

	currencyResult, err = f.service.UpdateCurrency(ctx, f.company.UUID, eur.UUID, CurrencyForm{Symbol: "EUR", ShortName: "EUR", LongName: "Euro"})
	require.NoError(t, err)
	assert.True(t, currencyResult.OK())
	currency, err := f.service.Currency(ctx, f.company.UUID, eur.UUID)
	require.NoError(t, err)
	assert.Equal(t, "EUR", currency.Symbol)
}

func TestUpdateCompany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.UpdateCompany(ctx, f.company.UUID, CompanyForm{Name: "   "})
	require.NoError(t, err)
	assert.Equal(t, "validation.required", result.Errors["name"])

	result, err = f.service.UpdateCompany(ctx, f.company.UUID, CompanyForm{Name: "Acme AG", Description: "Anvils"})
	require.NoError(t, err)
	assert.True(t, result.OK())

	settings, err := f.service.Settings(ctx, f.company.UUID)
	require.NoError(t, err)
	assert.Equal(t, CompanyForm{Name: "Acme AG", Description: "Anvils"}, settings.Form)
}

func TestCustomFieldLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.CreateCustomField(ctx, f.company.UUID, CustomFieldForm{Key: "s k u", Name: "SKU", DataType: 1, ModelType: 7})
	require.NoError(t, err)
	assert.Equal(t, "validation.fieldkey", result.Errors["key"])

	result, err = f.service.CreateCustomField(ctx, f.company.UUID, CustomFieldForm{Key: "sku", Name: "SKU", DataType: 4, ModelType: 7})
	require.NoError(t, err)
	assert.Equal(t, "validation.oneof", result.Errors["data_type"])

	form := CustomFieldForm{Key: "sku", Name: "SKU", DataType: int(customfields.Text), ModelType: 7, ShowInUI: true}
	result, err = f.service.CreateCustomField(ctx, f.company.UUID, form)
	require.NoError(t, err)
	require.True(t, result.OK())

	result, err = f.service.CreateCustomField(ctx, f.company.UUID, form)
	require.NoError(t, err)
	assert.Contains(t, result.Errors["general"], "unique set", "duplicates come back as a general error")

	defs := f.fake.CustomFields()
	require.Len(t, defs, 1)
	def, err := f.service.CustomField(ctx, f.company.UUID, defs[0].UUID)
	require.NoError(t, err)
	assert.Equal(t, form, CustomFieldFormFrom(def))

	item := f.fake.AddItem(kompello.Item{Company: f.company.UUID, Name: "Box"})
	_, outcome, err := f.service.UpdateItemFields(ctx, f.company.UUID, item.UUID, url.Values{"cf_sku": {"B-1"}})
	require.NoError(t, err)
	require.True(t, outcome.OK())

	form.DataType = int(customfields.Number)
	result, err = f.service.UpdateCustomField(ctx, f.company.UUID, def.UUID, form)
	require.NoError(t, err)
	assert.Contains(t, result.Errors["data_type"], "Cannot change data_type")

	err = f.service.DeleteCustomField(ctx, f.company.UUID, def.UUID)
	assert.ErrorIs(t, err, ErrFieldInUse)
	assert.Len(t, f.fake.CustomFields(), 1)

	_, outcome, err = f.service.UpdateItemFields(ctx, f.company.UUID, item.UUID, url.Values{"cf_sku": {""}})
	require.NoError(t, err)
	require.True(t, outcome.OK())

	result, err = f.service.UpdateCustomField(ctx, f.company.UUID, def.UUID, form)
	require.NoError(t, err)
	assert.True(t, result.OK(), "the data type may change once no values exist")

	require.NoError(t, f.service.DeleteCustomField(ctx, f.company.UUID, def.UUID))
	assert.Empty(t, f.fake.CustomFields())
}

func TestCustomFieldOfOtherCompanyIsNotFound(t *testing.T) {
	f := newFixture(t)
	def := f.fake.AddCustomField(kompello.CustomFieldDefinition{Key: "sku", Name: "SKU", DataType: 1, Company: f.other.UUID})

	_, err := f.service.CustomField(context.Background(), f.company.UUID, def.UUID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, f.service.DeleteCustomField(context.Background(), f.company.UUID, def.UUID), shared.ErrNotFound)
	assert.Len(t, f.fake.CustomFields(), 1)
}
