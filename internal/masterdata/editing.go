package masterdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/kompello/kompello-console/internal/customfields"
	"github.com/kompello/kompello-console/internal/kompello"
	"github.com/kompello/kompello-console/internal/shared"
)

// ErrFieldInUse means a custom field definition still has stored values.
var ErrFieldInUse = errors.New("masterdata: custom field has values")

// formOutcome turns the answer of a write call into a form result. Upstream
// validation failures are an invalid result, not an error.
func formOutcome[T any](op string, form T, err error) (shared.FormResult[T], error) {
	switch {
	case err == nil:
		return shared.FormResult[T]{Status: shared.FormOK, Value: form}, nil
	case kompello.IsValidation(err):
		return shared.Invalid(form, upstreamErrors(err)), nil
	default:
		return shared.FormResult[T]{Value: form}, fmt.Errorf("masterdata: %s: %w", op, err)
	}
}

// CreateCustomer validates the form and creates the customer.
func (s *Service) CreateCustomer(ctx context.Context, companyID string, form CustomerForm) (*kompello.Customer, shared.FormResult[CustomerForm], error) {
	form.normalize()
	result := shared.ValidateForm(s.validate, form)
	if !result.OK() {
		return nil, result, nil
	}
	customer, err := s.api.CreateCustomer(ctx, form.input(companyID))
	result, err = formOutcome("create customer", form, err)
	if err != nil || !result.OK() {
		return nil, result, err
	}
	return customer, result, nil
}

// UpdateCustomer validates the form and patches a customer of the company.
func (s *Service) UpdateCustomer(ctx context.Context, companyID, id string, form CustomerForm) (shared.FormResult[CustomerForm], error) {
	if _, err := s.Customer(ctx, companyID, id); err != nil {
		return shared.FormResult[CustomerForm]{Value: form}, err
	}
	form.normalize()
	result := shared.ValidateForm(s.validate, form)
	if !result.OK() {
		return result, nil
	}
	_, err := s.api.UpdateCustomer(ctx, id, form.input(""))
	return formOutcome("update customer", form, err)
}

// ItemOptions are the choices offered by the item form.
type ItemOptions struct {
	Units       []kompello.Unit
	Currencies  []kompello.Currency
	Definitions []customfields.Definition
}

// ItemOptions loads units, currencies and item custom fields of the company.
func (s *Service) ItemOptions(ctx context.Context, companyID string) (ItemOptions, error) {
	var out ItemOptions
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		units, err := s.api.Units(gctx, companyID)
		out.Units = units
		return err
	})
	g.Go(func() error {
		currencies, err := s.api.Currencies(gctx, companyID)
		out.Currencies = currencies
		return err
	})
	g.Go(func() error {
		defs, err := s.itemDefinitions(gctx, companyID)
		out.Definitions = defs
		return err
	})
	if err := g.Wait(); err != nil {
		return ItemOptions{}, err
	}
	return out, nil
}

// CreateItem validates the form together with the submitted custom field
// values and creates the item. Custom field errors are keyed by input name.
func (s *Service) CreateItem(ctx context.Context, companyID string, form ItemForm, values url.Values) (*kompello.Item, shared.FormResult[ItemForm], error) {
	defs, err := s.itemDefinitions(ctx, companyID)
	if err != nil {
		return nil, shared.FormResult[ItemForm]{Value: form}, err
	}
	form.normalize()
	result := s.validateItem(form)
	outcome := customfields.ParseValues(defs, values)
	if !outcome.OK() {
		if result.Errors == nil {
			result.Errors = make(map[string]string)
		}
		for key, msg := range outcome.Errors {
			result.Errors[customfields.FieldPrefix+key] = msg
		}
		result.Status = shared.FormInvalid
	}
	if !result.OK() {
		return nil, result, nil
	}

	in := form.input(companyID)
	for key, value := range outcome.Value {
		if value == nil {
			continue
		}
		if in.CustomFields == nil {
			in.CustomFields = make(map[string]any)
		}
		in.CustomFields[key] = value
	}
	item, err := s.api.CreateItem(ctx, in)
	result, err = formOutcome("create item", form, err)
	if err != nil || !result.OK() {
		return nil, result, err
	}
	return item, result, nil
}

// UpdateItem validates the form and patches an item of the company. Custom
// field values are edited separately with UpdateItemFields.
func (s *Service) UpdateItem(ctx context.Context, companyID, id string, form ItemForm) (shared.FormResult[ItemForm], error) {
	item, err := s.api.Item(ctx, id)
	if err != nil {
		return shared.FormResult[ItemForm]{Value: form}, err
	}
	if item.Company != companyID {
		return shared.FormResult[ItemForm]{Value: form}, shared.ErrNotFound
	}
	form.normalize()
	result := s.validateItem(form)
	if !result.OK() {
		return result, nil
	}
	_, err = s.api.UpdateItem(ctx, id, form.input(""))
	return formOutcome("update item", form, err)
}

func (s *Service) validateItem(form ItemForm) shared.FormResult[ItemForm] {
	result := shared.ValidateForm(s.validate, form)
	if !result.OK() {
		return result
	}
	if errs := form.priceRangeError(); errs != nil {
		return shared.Invalid(form, errs)
	}
	return result
}

// Unit loads a unit of the company.
func (s *Service) Unit(ctx context.Context, companyID, id string) (*kompello.Unit, error) {
	unit, err := s.api.Unit(ctx, id)
	if err != nil {
		return nil, err
	}
	if unit.Company != companyID {
		return nil, shared.ErrNotFound
	}
	return unit, nil
}

// UpdateUnit validates the form and renames a unit of the company.
func (s *Service) UpdateUnit(ctx context.Context, companyID, id string, form UnitForm) (shared.FormResult[UnitForm], error) {
	if _, err := s.Unit(ctx, companyID, id); err != nil {
		return shared.FormResult[UnitForm]{Value: form}, err
	}
	trim(&form.ShortName, &form.LongName)
	result := shared.ValidateForm(s.validate, form)
	if !result.OK() {
		return result, nil
	}
	_, err := s.api.UpdateUnit(ctx, id, kompello.UnitInput{ShortName: form.ShortName, LongName: form.LongName})
	return formOutcome("update unit", form, err)
}

// Currency loads a currency of the company.
func (s *Service) Currency(ctx context.Context, companyID, id string) (*kompello.Currency, error) {
	currency, err := s.api.Currency(ctx, id)
	if err != nil {
		return nil, err
	}
	if currency.Company != companyID {
		return nil, shared.ErrNotFound
	}
	return currency, nil
}

// UpdateCurrency validates the form and renames a currency of the company.
func (s *Service) UpdateCurrency(ctx context.Context, companyID, id string, form CurrencyForm) (shared.FormResult[CurrencyForm], error) {
	if _, err := s.Currency(ctx, companyID, id); err != nil {
		return shared.FormResult[CurrencyForm]{Value: form}, err
	}
	trim(&form.Symbol, &form.ShortName, &form.LongName)
	result := shared.ValidateForm(s.validate, form)
	if !result.OK() {
		return result, nil
	}
	_, err := s.api.UpdateCurrency(ctx, id, kompello.CurrencyInput{Symbol: form.Symbol, ShortName: form.ShortName, LongName: form.LongName})
	return formOutcome("update currency", form, err)
}

// UpdateCompany validates the form and patches the company.
func (s *Service) UpdateCompany(ctx context.Context, companyID string, form CompanyForm) (shared.FormResult[CompanyForm], error) {
	trim(&form.Name, &form.Description)
	result := shared.ValidateForm(s.validate, form)
	if !result.OK() {
		return result, nil
	}
	_, err := s.api.UpdateCompany(ctx, companyID, kompello.CompanyInput{Name: form.Name, Description: form.Description})
	return formOutcome("update company", form, err)
}

// CustomFieldChoices returns the model and data types a definition can use.
func (s *Service) CustomFieldChoices(ctx context.Context) (*kompello.CustomFieldMetadata, error) {
	return s.api.CustomFieldMetadata(ctx)
}

// CustomField loads a custom field definition of the company.
func (s *Service) CustomField(ctx context.Context, companyID, id string) (*kompello.CustomFieldDefinition, error) {
	def, err := s.api.CustomField(ctx, id)
	if err != nil {
		return nil, err
	}
	if def.Company != companyID {
		return nil, shared.ErrNotFound
	}
	return def, nil
}

// CreateCustomField validates the form and creates a definition.
func (s *Service) CreateCustomField(ctx context.Context, companyID string, form CustomFieldForm) (shared.FormResult[CustomFieldForm], error) {
	trim(&form.Key, &form.Name)
	result := shared.ValidateForm(s.validate, form)
	if !result.OK() {
		return result, nil
	}
	err := s.api.CreateCustomField(ctx, form.input(companyID))
	return formOutcome("create custom field", form, err)
}

// UpdateCustomField validates the form and patches a definition of the
// company. The API refuses a data type change while values exist.
func (s *Service) UpdateCustomField(ctx context.Context, companyID, id string, form CustomFieldForm) (shared.FormResult[CustomFieldForm], error) {
	if _, err := s.CustomField(ctx, companyID, id); err != nil {
		return shared.FormResult[CustomFieldForm]{Value: form}, err
	}
	trim(&form.Key, &form.Name)
	result := shared.ValidateForm(s.validate, form)
	if !result.OK() {
		return result, nil
	}
	err := s.api.UpdateCustomField(ctx, id, form.input(companyID))
	return formOutcome("update custom field", form, err)
}

// DeleteCustomField removes a definition of the company. A definition with
// stored values yields ErrFieldInUse.
func (s *Service) DeleteCustomField(ctx context.Context, companyID, id string) error {
	if _, err := s.CustomField(ctx, companyID, id); err != nil {
		return err
	}
	err := s.api.DeleteCustomField(ctx, id)
	if kompello.IsValidation(err) {
		return fmt.Errorf("%w: %w", ErrFieldInUse, err)
	}
	if err != nil {
		return fmt.Errorf("masterdata: delete custom field: %w", err)
	}
	return nil
}
