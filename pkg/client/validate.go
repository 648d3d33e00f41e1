package client

import (
	"strings"
	"unicode/utf8"

	emailaddress "github.com/mcnijman/go-emailaddress"

	"github.com/naveenspark/folio/pkg/domain"
)

// minPasswordLen matches the server's password policy.
const minPasswordLen = 8

// ValidateClient checks a client form before it is submitted.
func ValidateClient(req ClientRequest) error {
	ve := &ValidationError{}
	if strings.TrimSpace(req.FirstName) == "" && strings.TrimSpace(req.Company) == "" {
		ve.add("first_name", "first name or company is required")
	}
	if strings.TrimSpace(req.LastName) == "" && strings.TrimSpace(req.Company) == "" {
		ve.add("last_name", "last name or company is required")
	}
	if _, err := emailaddress.Parse(strings.TrimSpace(req.Email)); err != nil {
		ve.add("email", "invalid email address")
	}
	return ve.orNil()
}

// ValidateInvoice checks an invoice form before it is submitted.
func ValidateInvoice(req InvoiceRequest) error {
	ve := &ValidationError{}
	if req.ClientID == "" {
		ve.add("client_id", "client is required")
	}
	if len(req.Items) == 0 {
		ve.add("items", "at least one line is required")
	}
	for _, it := range req.Items {
		if strings.TrimSpace(it.Description) == "" {
			ve.add("items", "every line needs a description")
			break
		}
		if it.Quantity <= 0 || it.UnitPrice < 0 {
			ve.add("items", "quantity must be positive and price non-negative")
			break
		}
	}
	return ve.orNil()
}

// ValidateUser checks a staff user form. Passwords are only required on create.
func ValidateUser(req UserRequest, create bool) error {
	ve := &ValidationError{}
	if _, err := emailaddress.Parse(strings.TrimSpace(req.Email)); err != nil {
		ve.add("email", "invalid email address")
	}
	if !domain.ValidRole(req.Role) {
		ve.add("role", "unknown role")
	}
	if create || req.Password != "" {
		if utf8.RuneCountInString(req.Password) < minPasswordLen {
			ve.add("password", "password is too short")
		}
	}
	return ve.orNil()
}

func validateEmail(email string) error {
	if _, err := emailaddress.Parse(strings.TrimSpace(email)); err != nil {
		return &ValidationError{Fields: []FieldError{{Field: "email", Message: "invalid email address"}}}
	}
	return nil
}

func validatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < minPasswordLen {
		return &ValidationError{Fields: []FieldError{{Field: "password", Message: "password is too short"}}}
	}
	return nil
}
