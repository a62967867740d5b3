package masterdata

import (
	"context"

	"github.com/kompello/kompello-console/internal/customfields"
	"github.com/kompello/kompello-console/internal/kompello"
)

// API is the part of the Kompello client used by master data pages.
type API interface {
	Companies(ctx context.Context) ([]kompello.Company, error)
	Company(ctx context.Context, id string) (*kompello.Company, error)
	CompanyMembers(ctx context.Context, id string) ([]kompello.User, error)
	Customers(ctx context.Context, filter kompello.CustomerFilter) ([]kompello.Customer, error)
	Customer(ctx context.Context, id string) (*kompello.Customer, error)
	Items(ctx context.Context, companyID string) ([]kompello.Item, error)
	Item(ctx context.Context, id string) (*kompello.Item, error)
	UpdateItemCustomFields(ctx context.Context, id string, values map[string]any) (*kompello.Item, error)
	Units(ctx context.Context, companyID string) ([]kompello.Unit, error)
	CreateUnit(ctx context.Context, unit kompello.Unit) (*kompello.Unit, error)
	Currencies(ctx context.Context, companyID string) ([]kompello.Currency, error)
	CreateCurrency(ctx context.Context, currency kompello.Currency) (*kompello.Currency, error)
	CustomFields(ctx context.Context, query kompello.CustomFieldQuery) ([]kompello.CustomFieldDefinition, error)
	CustomFieldMetadata(ctx context.Context) (*kompello.CustomFieldMetadata, error)

	CreateCustomer(ctx context.Context, in kompello.CustomerInput) (*kompello.Customer, error)
	UpdateCustomer(ctx context.Context, id string, in kompello.CustomerInput) (*kompello.Customer, error)
	CreateItem(ctx context.Context, in kompello.ItemInput) (*kompello.Item, error)
	UpdateItem(ctx context.Context, id string, in kompello.ItemInput) (*kompello.Item, error)
	Unit(ctx context.Context, id string) (*kompello.Unit, error)
	UpdateUnit(ctx context.Context, id string, in kompello.UnitInput) (*kompello.Unit, error)
	Currency(ctx context.Context, id string) (*kompello.Currency, error)
	UpdateCurrency(ctx context.Context, id string, in kompello.CurrencyInput) (*kompello.Currency, error)
	CustomField(ctx context.Context, id string) (*kompello.CustomFieldDefinition, error)
	CreateCustomField(ctx context.Context, in kompello.CustomFieldInput) error
	UpdateCustomField(ctx context.Context, id string, in kompello.CustomFieldInput) error
	DeleteCustomField(ctx context.Context, id string) error
	UpdateCompany(ctx context.Context, id string, in kompello.CompanyInput) (*kompello.Company, error)
}

// itemModel names the model type custom item fields are attached to.
const itemModel = "item"

// Overview is the company home.
type Overview struct {
	Company    *kompello.Company
	Customers  int
	Items      int
	Units      int
	Currencies int
}

// CustomerFilter values of the "active" query parameter.
const (
	FilterAll      = ""
	FilterActive   = "1"
	FilterInactive = "0"
)

// ItemDetail is an item with its editable custom fields.
type ItemDetail struct {
	Item        *kompello.Item
	Definitions []customfields.Definition
}

// Settings is the company settings page.
type Settings struct {
	Company   *kompello.Company
	Members   []kompello.User
	Fields    []kompello.CustomFieldDefinition
	DataTypes map[int]string
	Models    map[int]string
	Form      CompanyForm
}

// UnitForm is the unit form.
type UnitForm struct {
	ShortName string `form:"short_name" validate:"required,max=10"`
	LongName  string `form:"long_name" validate:"required,max=255"`
}

// CurrencyForm is the currency form.
type CurrencyForm struct {
	Symbol    string `form:"symbol" validate:"required,max=10"`
	ShortName string `form:"short_name" validate:"required,max=10"`
	LongName  string `form:"long_name" validate:"required,max=255"`
}
