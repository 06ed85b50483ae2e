package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is an immutable shipping address
type Address struct {
	name       string
	line1      string
	line2      string
	city       string
	state      string
	postalCode string
	country    string
	phone      string
}

// AddressOption is a functional option for optional address fields
type AddressOption func(*Address)

// WithLine2 sets the apartment / suite line
func WithLine2(line2 string) AddressOption {
	return func(a *Address) {
		a.line2 = strings.TrimSpace(line2)
	}
}

// WithState sets the state or province code
func WithState(state string) AddressOption {
	return func(a *Address) {
		a.state = strings.ToUpper(strings.TrimSpace(state))
	}
}

// WithPhone sets the recipient phone number
func WithPhone(phone string) AddressOption {
	return func(a *Address) {
		a.phone = strings.TrimSpace(phone)
	}
}

// NewAddress creates a shipping address. Name, line1, city, postal code and
// country are required; country is an ISO 3166-1 alpha-2 code.
func NewAddress(name, line1, city, postalCode, country string, opts ...AddressOption) (Address, error) {
	addr := Address{
		name:       strings.TrimSpace(name),
		line1:      strings.TrimSpace(line1),
		city:       strings.TrimSpace(city),
		postalCode: strings.TrimSpace(postalCode),
		country:    strings.ToUpper(strings.TrimSpace(country)),
	}
	for _, opt := range opts {
		opt(&addr)
	}
	if err := addr.validate(); err != nil {
		return Address{}, err
	}
	return addr, nil
}

// MissingFieldError reports which required address field was blank
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return e.Field + " is required"
}

func (a Address) validate() error {
	required := []struct {
		field string
		value string
	}{
		{"name", a.name},
		{"line1", a.line1},
		{"city", a.city},
		{"postal_code", a.postalCode},
		{"country", a.country},
	}
	for _, r := range required {
		if r.value == "" {
			return &MissingFieldError{Field: r.field}
		}
	}
	if len(a.country) != 2 {
		return fmt.Errorf("country must be a two-letter ISO code")
	}
	if len(a.line1) > 200 || len(a.line2) > 200 {
		return fmt.Errorf("address line cannot exceed 200 characters")
	}
	if len(a.postalCode) > 20 {
		return fmt.Errorf("postal code cannot exceed 20 characters")
	}
	return nil
}

func (a Address) Name() string       { return a.name }
func (a Address) Line1() string      { return a.line1 }
func (a Address) Line2() string      { return a.line2 }
func (a Address) City() string       { return a.city }
func (a Address) State() string      { return a.state }
func (a Address) PostalCode() string { return a.postalCode }
func (a Address) Country() string    { return a.country }
func (a Address) Phone() string      { return a.phone }

// IsEmpty returns true for the zero Address
func (a Address) IsEmpty() bool {
	return a.line1 == "" && a.city == "" && a.postalCode == ""
}

// Lines returns the address as printable lines for labels and emails
func (a Address) Lines() []string {
	if a.IsEmpty() {
		return nil
	}
	lines := []string{a.name, a.line1}
	if a.line2 != "" {
		lines = append(lines, a.line2)
	}
	cityLine := a.city
	if a.state != "" {
		cityLine += ", " + a.state
	}
	cityLine += " " + a.postalCode
	return append(lines, cityLine, a.country)
}

// String returns a single-line form
func (a Address) String() string {
	return strings.Join(a.Lines(), ", ")
}

// Equals returns true if every field matches
func (a Address) Equals(other Address) bool {
	return a == other
}

// AddressDTO is the serialized form used for JSON columns and API payloads
type AddressDTO struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// ToDTO converts the address for storage
func (a Address) ToDTO() AddressDTO {
	return AddressDTO{
		Name:       a.name,
		Line1:      a.line1,
		Line2:      a.line2,
		City:       a.city,
		State:      a.state,
		PostalCode: a.postalCode,
		Country:    a.country,
		Phone:      a.phone,
	}
}

// ToAddress validates and converts the DTO
func (dto AddressDTO) ToAddress() (Address, error) {
	return NewAddress(dto.Name, dto.Line1, dto.City, dto.PostalCode, dto.Country,
		WithLine2(dto.Line2), WithState(dto.State), WithPhone(dto.Phone))
}

// MarshalJSON implements json.Marshaler
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.ToDTO())
}

// UnmarshalJSON implements json.Unmarshaler; the result is validated
func (a *Address) UnmarshalJSON(data []byte) error {
	var v AddressDTO
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Line1 == "" && v.City == "" && v.PostalCode == "" {
		*a = Address{}
		return nil
	}
	addr, err := v.ToAddress()
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// Value stores the address as JSON
func (a Address) Value() (driver.Value, error) {
	if a.IsEmpty() {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan reads an address stored by Value
func (a *Address) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*a = Address{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into Address", value)
	}
	if len(data) == 0 || string(data) == "null" {
		*a = Address{}
		return nil
	}
	return json.Unmarshal(data, a)
}
