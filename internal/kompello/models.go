package kompello

import "time"

// User is the profile returned by /api/users/me/.
type User struct {
	UUID       string    `json:"uuid"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	IsActive   bool      `json:"is_active"`
	CreatedOn  time.Time `json:"created_on"`
	ModifiedOn time.Time `json:"modified_on"`
}

// Company is a tenant owning every other resource.
type Company struct {
	UUID        string    `json:"uuid"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Logo        *string   `json:"logo"`
	CreatedOn   time.Time `json:"created_on"`
	ModifiedOn  time.Time `json:"modified_on"`
}

// Unit is a unit of measure.
type Unit struct {
	UUID       string    `json:"uuid,omitempty"`
	Company    string    `json:"company"`
	ShortName  string    `json:"short_name"`
	LongName   string    `json:"long_name"`
	CreatedOn  time.Time `json:"created_on,omitempty"`
	ModifiedOn time.Time `json:"modified_on,omitempty"`
}

// Currency belongs to a company.
type Currency struct {
	UUID       string    `json:"uuid,omitempty"`
	Company    string    `json:"company"`
	Symbol     string    `json:"symbol"`
	ShortName  string    `json:"short_name"`
	LongName   string    `json:"long_name"`
	CreatedOn  time.Time `json:"created_on,omitempty"`
	ModifiedOn time.Time `json:"modified_on,omitempty"`
}

// Address is nested in Customer.
type Address struct {
	UUID       string `json:"uuid"`
	Street     string `json:"street"`
	Street2    string `json:"street_2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Customer covers both the list and detail representations.
type Customer struct {
	UUID           string    `json:"uuid"`
	Company        string    `json:"company"`
	Title          string    `json:"title"`
	Firstname      string    `json:"firstname"`
	Lastname       string    `json:"lastname"`
	Birthdate      *string   `json:"birthdate"`
	Email          string    `json:"email"`
	MobilePhone    string    `json:"mobile_phone"`
	LandlinePhone  string    `json:"landline_phone"`
	Address        *Address  `json:"address"`
	AddressSummary *string   `json:"address_summary"`
	Notes          string    `json:"notes"`
	IsActive       bool      `json:"is_active"`
	CreatedOn      time.Time `json:"created_on"`
}

// Item is a billable good or service. Prices are decimal strings.
type Item struct {
	UUID            string         `json:"uuid"`
	Company         string         `json:"company"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Currency        string         `json:"currency"`
	CurrencyDetails *Currency      `json:"currency_details"`
	Unit            string         `json:"unit"`
	UnitDetails     *Unit          `json:"unit_details"`
	PricePerUnit    string         `json:"price_per_unit"`
	PriceMax        *string        `json:"price_max"`
	CurrencySymbol  string         `json:"currency_symbol"`
	UnitShortName   string         `json:"unit_short_name"`
	CustomFields    map[string]any `json:"custom_fields"`
	CreatedOn       time.Time      `json:"created_on"`
}

// ModelType identifies a model that supports custom fields.
type ModelType struct {
	ID       int    `json:"id"`
	AppLabel string `json:"app_label"`
	Model    string `json:"model"`
}

// CustomFieldDefinition is the read representation of a custom field.
type CustomFieldDefinition struct {
	UUID         string         `json:"uuid"`
	Key          string         `json:"key"`
	Name         string         `json:"name"`
	DataType     int            `json:"data_type"`
	ModelType    ModelType      `json:"model_type"`
	Company      string         `json:"company"`
	TrackHistory bool           `json:"track_history"`
	IsArchived   bool           `json:"is_archived"`
	ShowInUI     bool           `json:"show_in_ui"`
	ExtraData    map[string]any `json:"extra_data"`
}

// DataTypeChoice is one entry of the custom field metadata.
type DataTypeChoice struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// CustomFieldMetadata lists supported model and data types.
type CustomFieldMetadata struct {
	ModelTypes []ModelType      `json:"model_types"`
	DataTypes  []DataTypeChoice `json:"data_types"`
}

// AddressInput is the writable part of an address.
type AddressInput struct {
	Street     string `json:"street"`
	Street2    string `json:"street_2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// CustomerInput is the customer write payload. Company is sent on creation
// only; a nil Address leaves the stored one untouched.
type CustomerInput struct {
	Company       string        `json:"company,omitempty"`
	Title         string        `json:"title"`
	Firstname     string        `json:"firstname"`
	Lastname      string        `json:"lastname"`
	Birthdate     *string       `json:"birthdate"`
	Email         string        `json:"email"`
	MobilePhone   string        `json:"mobile_phone"`
	LandlinePhone string        `json:"landline_phone"`
	Address       *AddressInput `json:"address"`
	Notes         string        `json:"notes"`
	IsActive      bool          `json:"is_active"`
}

// ItemInput is the item write payload. Prices are decimal strings.
type ItemInput struct {
	Company      string         `json:"company,omitempty"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Currency     string         `json:"currency"`
	Unit         string         `json:"unit"`
	PricePerUnit string         `json:"price_per_unit"`
	PriceMax     *string        `json:"price_max"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
}

// UnitInput renames a unit.
type UnitInput struct {
	ShortName string `json:"short_name"`
	LongName  string `json:"long_name"`
}

// CurrencyInput renames a currency.
type CurrencyInput struct {
	Symbol    string `json:"symbol"`
	ShortName string `json:"short_name"`
	LongName  string `json:"long_name"`
}

// CustomFieldInput is the custom field definition write payload. ModelType
// is the model type id.
type CustomFieldInput struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	DataType     int    `json:"data_type"`
	ModelType    int    `json:"model_type"`
	Company      string `json:"company"`
	TrackHistory bool   `json:"track_history"`
	IsArchived   bool   `json:"is_archived"`
	ShowInUI     bool   `json:"show_in_ui"`
}

// CompanyInput is the editable part of a company.
type CompanyInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UserInput is the editable part of a user profile.
type UserInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}
