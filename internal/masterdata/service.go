package masterdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/kompello/kompello-console/internal/customfields"
	"github.com/kompello/kompello-console/internal/kompello"
	"github.com/kompello/kompello-console/internal/shared"
)

// Service composes Kompello calls for the master data pages.
type Service struct {
	api      API
	validate *validator.Validate
}

// NewService creates a new master data service.
func NewService(api API) *Service {
	return &Service{api: api, validate: newValidator()}
}

// Companies lists the companies visible to the signed-in user.
func (s *Service) Companies(ctx context.Context) ([]kompello.Company, error) {
	return s.api.Companies(ctx)
}

// Overview loads the company and its record counts concurrently.
func (s *Service) Overview(ctx context.Context, companyID string) (Overview, error) {
	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		company, err := s.api.Company(gctx, companyID)
		out.Company = company
		return err
	})
	g.Go(func() error {
		customers, err := s.api.Customers(gctx, kompello.CustomerFilter{CompanyID: companyID})
		out.Customers = len(customers)
		return err
	})
	g.Go(func() error {
		items, err := s.api.Items(gctx, companyID)
		out.Items = len(items)
		return err
	})
	g.Go(func() error {
		units, err := s.api.Units(gctx, companyID)
		out.Units = len(units)
		return err
	})
	g.Go(func() error {
		currencies, err := s.api.Currencies(gctx, companyID)
		out.Currencies = len(currencies)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return out, nil
}

// Customers lists customers filtered by FilterAll, FilterActive or
// FilterInactive.
func (s *Service) Customers(ctx context.Context, companyID, active string) ([]kompello.Customer, error) {
	filter := kompello.CustomerFilter{CompanyID: companyID}
	switch active {
	case FilterActive:
		v := true
		filter.IsActive = &v
	case FilterInactive:
		v := false
		filter.IsActive = &v
	}
	return s.api.Customers(ctx, filter)
}

// Customer loads a customer of the company.
func (s *Service) Customer(ctx context.Context, companyID, id string) (*kompello.Customer, error) {
	customer, err := s.api.Customer(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer.Company != companyID {
		return nil, shared.ErrNotFound
	}
	return customer, nil
}

// Items lists items of the company.
func (s *Service) Items(ctx context.Context, companyID string) ([]kompello.Item, error) {
	return s.api.Items(ctx, companyID)
}

// Item loads an item together with the item custom field definitions.
func (s *Service) Item(ctx context.Context, companyID, id string) (ItemDetail, error) {
	var out ItemDetail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		item, err := s.api.Item(gctx, id)
		out.Item = item
		return err
	})
	g.Go(func() error {
		defs, err := s.itemDefinitions(gctx, companyID)
		out.Definitions = defs
		return err
	})
	if err := g.Wait(); err != nil {
		return ItemDetail{}, err
	}
	if out.Item.Company != companyID {
		return ItemDetail{}, shared.ErrNotFound
	}
	return out, nil
}

// UpdateItemFields parses the submitted custom field values and stores them.
// An invalid outcome is returned without calling the API.
func (s *Service) UpdateItemFields(ctx context.Context, companyID, id string, form url.Values) (ItemDetail, customfields.Outcome, error) {
	detail, err := s.Item(ctx, companyID, id)
	if err != nil {
		return ItemDetail{}, customfields.Outcome{}, err
	}
	outcome := customfields.ParseValues(detail.Definitions, form)
	if !outcome.OK() {
		return detail, outcome, nil
	}
	item, err := s.api.UpdateItemCustomFields(ctx, id, outcome.Value)
	if err != nil {
		if kompello.IsValidation(err) {
			return detail, shared.Invalid(outcome.Value, upstreamErrors(err)), nil
		}
		return ItemDetail{}, customfields.Outcome{}, err
	}
	detail.Item = item
	return detail, outcome, nil
}

func (s *Service) itemDefinitions(ctx context.Context, companyID string) ([]customfields.Definition, error) {
	meta, err := s.api.CustomFieldMetadata(ctx)
	if err != nil {
		return nil, err
	}
	modelTypeID := 0
	for _, mt := range meta.ModelTypes {
		if mt.Model == itemModel {
			modelTypeID = mt.ID
			break
		}
	}
	if modelTypeID == 0 {
		return nil, nil
	}
	defs, err := s.api.CustomFields(ctx, kompello.CustomFieldQuery{CompanyID: companyID, ModelTypeID: modelTypeID})
	if err != nil {
		return nil, err
	}
	return customfields.FromAPI(defs), nil
}

// Units lists units of the company.
func (s *Service) Units(ctx context.Context, companyID string) ([]kompello.Unit, error) {
	return s.api.Units(ctx, companyID)
}

// CreateUnit validates the form and creates the unit. Upstream validation
// failures come back as an invalid result, not as an error.
func (s *Service) CreateUnit(ctx context.Context, companyID string, form UnitForm) (shared.FormResult[UnitForm], error) {
	form.ShortName = strings.TrimSpace(form.ShortName)
	form.LongName = strings.TrimSpace(form.LongName)
	result := shared.ValidateForm(s.validate, form)
	if !result.OK() {
		return result, nil
	}
	_, err := s.api.CreateUnit(ctx, kompello.Unit{Company: companyID, ShortName: form.ShortName, LongName: form.LongName})
	if err != nil {
		if kompello.IsValidation(err) {
			return shared.Invalid(form, upstreamErrors(err)), nil
		}
		return result, fmt.Errorf("masterdata: create unit: %w", err)
	}
	return result, nil
}

// Currencies lists currencies of the company.
func (s *Service) Currencies(ctx context.Context, companyID string) ([]kompello.Currency, error) {
	return s.api.Currencies(ctx, companyID)
}

// CreateCurrency validates the form and creates the currency.
func (s *Service) CreateCurrency(ctx context.Context, companyID string, form CurrencyForm) (shared.FormResult[CurrencyForm], error) {
	form.Symbol = strings.TrimSpace(form.Symbol)
	form.ShortName = strings.TrimSpace(form.ShortName)
	form.LongName = strings.TrimSpace(form.LongName)
	result := shared.ValidateForm(s.validate, form)
	if !result.OK() {
		return result, nil
	}
	_, err := s.api.CreateCurrency(ctx, kompello.Currency{
		Company:   companyID,
		Symbol:    form.Symbol,
		ShortName: form.ShortName,
		LongName:  form.LongName,
	})
	if err != nil {
		if kompello.IsValidation(err) {
			return shared.Invalid(form, upstreamErrors(err)), nil
		}
		return result, fmt.Errorf("masterdata: create currency: %w", err)
	}
	return result, nil
}

// Settings loads company details, members and custom field definitions.
func (s *Service) Settings(ctx context.Context, companyID string) (Settings, error) {
	out := Settings{DataTypes: map[int]string{}, Models: map[int]string{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		company, err := s.api.Company(gctx, companyID)
		out.Company = company
		return err
	})
	g.Go(func() error {
		members, err := s.api.CompanyMembers(gctx, companyID)
		out.Members = members
		return err
	})
	g.Go(func() error {
		fields, err := s.api.CustomFields(gctx, kompello.CustomFieldQuery{CompanyID: companyID})
		out.Fields = fields
		return err
	})
	var meta *kompello.CustomFieldMetadata
	g.Go(func() error {
		var err error
		meta, err = s.api.CustomFieldMetadata(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Settings{}, err
	}
	for _, dt := range meta.DataTypes {
		out.DataTypes[dt.Value] = dt.Label
	}
	for _, mt := range meta.ModelTypes {
		out.Models[mt.ID] = mt.Model
	}
	out.Form = CompanyForm{Name: out.Company.Name, Description: out.Company.Description}
	return out, nil
}

// upstreamErrors maps API field errors onto form fields. Errors without a
// field are reported under "general".
func upstreamErrors(err error) map[string]string {
	errs := kompello.FieldErrors(err)
	if len(errs) == 0 {
		var apiErr *kompello.APIError
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			return map[string]string{"general": apiErr.Detail}
		}
		return map[string]string{"general": "validation.invalid"}
	}
	out := make(map[string]string, len(errs))
	for field, msg := range errs {
		if field == "non_field_errors" || field == "__all__" || field == "custom_fields" {
			field = "general"
		}
		out[field] = msg
	}
	return out
}
