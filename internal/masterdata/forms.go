package masterdata

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kompello/kompello-console/internal/kompello"
	"github.com/kompello/kompello-console/internal/shared"
)

var (
	// Prices are stored with twelve digits, two of them decimals.
	priceRe    = regexp.MustCompile(`^\d{1,10}(\.\d{1,2})?$`)
	fieldKeyRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

func newValidator() *validator.Validate {
	v := shared.NewFormValidator()
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		return priceRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("fieldkey", func(fl validator.FieldLevel) bool {
		return fieldKeyRe.MatchString(fl.Field().String())
	})
	return v
}

func trim(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

// CustomerForm is the customer form. The address is optional, but once any
// address field is filled the street, city, postal code and country are
// required.
type CustomerForm struct {
	Title         string `form:"title" validate:"max=50"`
	Firstname     string `form:"firstname" validate:"max=100"`
	Lastname      string `form:"lastname" validate:"max=100"`
	Birthdate     string `form:"birthdate" validate:"omitempty,datetime=2006-01-02"`
	Email         string `form:"email" validate:"omitempty,email,max=254"`
	MobilePhone   string `form:"mobile_phone" validate:"max=50"`
	LandlinePhone string `form:"landline_phone" validate:"max=50"`
	Notes         string `form:"notes"`
	IsActive      bool   `form:"is_active"`

	Street     string `form:"street" validate:"required_with=Street2 City State PostalCode Country,max=255"`
	Street2    string `form:"street_2" validate:"max=255"`
	City       string `form:"city" validate:"required_with=Street Street2 State PostalCode Country,max=100"`
	State      string `form:"state" validate:"max=100"`
	PostalCode string `form:"postal_code" validate:"required_with=Street Street2 City State Country,max=20"`
	Country    string `form:"country" validate:"required_with=Street Street2 City State PostalCode,max=100"`
}

func (f *CustomerForm) normalize() {
	trim(&f.Title, &f.Firstname, &f.Lastname, &f.Birthdate, &f.Email, &f.MobilePhone, &f.LandlinePhone, &f.Notes,
		&f.Street, &f.Street2, &f.City, &f.State, &f.PostalCode, &f.Country)
}

// HasAddress reports whether any address field is filled.
func (f CustomerForm) HasAddress() bool {
	return f.Street != "" || f.Street2 != "" || f.City != "" || f.State != "" || f.PostalCode != "" || f.Country != ""
}

func (f CustomerForm) input(companyID string) kompello.CustomerInput {
	in := kompello.CustomerInput{
		Company:       companyID,
		Title:         f.Title,
		Firstname:     f.Firstname,
		Lastname:      f.Lastname,
		Email:         f.Email,
		MobilePhone:   f.MobilePhone,
		LandlinePhone: f.LandlinePhone,
		Notes:         f.Notes,
		IsActive:      f.IsActive,
	}
	if f.Birthdate != "" {
		birthdate := f.Birthdate
		in.Birthdate = &birthdate
	}
	if f.HasAddress() {
		in.Address = &kompello.AddressInput{
			Street:     f.Street,
			Street2:    f.Street2,
			City:       f.City,
			State:      f.State,
			PostalCode: f.PostalCode,
			Country:    f.Country,
		}
	}
	return in
}

// CustomerFormFrom prefills the form with a stored customer.
func CustomerFormFrom(c *kompello.Customer) CustomerForm {
	f := CustomerForm{
		Title:         c.Title,
		Firstname:     c.Firstname,
		Lastname:      c.Lastname,
		Email:         c.Email,
		MobilePhone:   c.MobilePhone,
		LandlinePhone: c.LandlinePhone,
		Notes:         c.Notes,
		IsActive:      c.IsActive,
	}
	if c.Birthdate != nil {
		f.Birthdate = *c.Birthdate
	}
	if a := c.Address; a != nil {
		f.Street, f.Street2, f.City, f.State, f.PostalCode, f.Country = a.Street, a.Street2, a.City, a.State, a.PostalCode, a.Country
	}
	return f
}

// ItemForm is the item form. Prices accept a decimal comma.
type ItemForm struct {
	Name         string `form:"name" validate:"required,max=255"`
	Description  string `form:"description"`
	Currency     string `form:"currency" validate:"required,uuid"`
	Unit         string `form:"unit" validate:"required,uuid"`
	PricePerUnit string `form:"price_per_unit" validate:"required,price"`
	PriceMax     string `form:"price_max" validate:"omitempty,price"`
}

func (f *ItemForm) normalize() {
	trim(&f.Name, &f.Description, &f.Currency, &f.Unit, &f.PricePerUnit, &f.PriceMax)
	f.PricePerUnit = strings.ReplaceAll(f.PricePerUnit, ",", ".")
	f.PriceMax = strings.ReplaceAll(f.PriceMax, ",", ".")
}

// priceRangeError returns the error of a maximum price below the base price.
func (f ItemForm) priceRangeError() map[string]string {
	if f.PriceMax == "" {
		return nil
	}
	lo, okLo := new(big.Rat).SetString(f.PricePerUnit)
	hi, okHi := new(big.Rat).SetString(f.PriceMax)
	if okLo && okHi && hi.Cmp(lo) < 0 {
		return map[string]string{"price_max": "validation.price_range"}
	}
	return nil
}

func (f ItemForm) input(companyID string) kompello.ItemInput {
	in := kompello.ItemInput{
		Company:      companyID,
		Name:         f.Name,
		Description:  f.Description,
		Currency:     f.Currency,
		Unit:         f.Unit,
		PricePerUnit: f.PricePerUnit,
	}
	if f.PriceMax != "" {
		priceMax := f.PriceMax
		in.PriceMax = &priceMax
	}
	return in
}

// ItemFormFrom prefills the form with a stored item.
func ItemFormFrom(item *kompello.Item) ItemForm {
	f := ItemForm{
		Name:         item.Name,
		Description:  item.Description,
		Currency:     item.Currency,
		Unit:         item.Unit,
		PricePerUnit: item.PricePerUnit,
	}
	if item.PriceMax != nil {
		f.PriceMax = *item.PriceMax
	}
	return f
}

// CustomFieldForm is the custom field definition form.
type CustomFieldForm struct {
	Key          string `form:"key" validate:"required,min=2,max=50,fieldkey"`
	Name         string `form:"name" validate:"required,min=2,max=100"`
	DataType     int    `form:"data_type" validate:"oneof=1 2 3"`
	ModelType    int    `form:"model_type" validate:"required"`
	TrackHistory bool   `form:"track_history"`
	ShowInUI     bool   `form:"show_in_ui"`
	IsArchived   bool   `form:"is_archived"`
}

func (f CustomFieldForm) input(companyID string) kompello.CustomFieldInput {
	return kompello.CustomFieldInput{
		Key:          f.Key,
		Name:         f.Name,
		DataType:     f.DataType,
		ModelType:    f.ModelType,
		Company:      companyID,
		TrackHistory: f.TrackHistory,
		IsArchived:   f.IsArchived,
		ShowInUI:     f.ShowInUI,
	}
}

// CustomFieldFormFrom prefills the form with a stored definition.
func CustomFieldFormFrom(def *kompello.CustomFieldDefinition) CustomFieldForm {
	return CustomFieldForm{
		Key:          def.Key,
		Name:         def.Name,
		DataType:     def.DataType,
		ModelType:    def.ModelType.ID,
		TrackHistory: def.TrackHistory,
		ShowInUI:     def.ShowInUI,
		IsArchived:   def.IsArchived,
	}
}

// CompanyForm edits the company name and description.
type CompanyForm struct {
	Name        string `form:"name" validate:"required,max=255"`
	Description string `form:"description"`
}
