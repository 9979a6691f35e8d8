package user

import (
	"fmt"
	"regexp"
	"strings"
)

// Field length limits applied before persistence.
const (
	maxNameLength      = 100
	maxAddressLength   = 200
	maxEmailLength     = 254
	maxTelephoneLength = 30
)

// emailPattern is deliberately permissive: one @ with non-empty local
// part and a domain containing at least one dot. Full RFC 5322
// validation rejects addresses that work in practice.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// FieldError describes a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// String renders the error in "field: message" form for API envelopes.
func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a user record before persistence and returns one
// FieldError per failing field. A nil slice means the record is valid.
func Validate(u *User) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(u.Name) == "" {
		errs = append(errs, FieldError{"name", "must not be blank"})
	} else if len(u.Name) > maxNameLength {
		errs = append(errs, FieldError{"name", fmt.Sprintf("must not exceed %d characters", maxNameLength)})
	}

	if strings.TrimSpace(u.Address) == "" {
		errs = append(errs, FieldError{"address", "must not be blank"})
	} else if len(u.Address) > maxAddressLength {
		errs = append(errs, FieldError{"address", fmt.Sprintf("must not exceed %d characters", maxAddressLength)})
	}

	switch {
	case strings.TrimSpace(u.Email) == "":
		errs = append(errs, FieldError{"email", "must not be blank"})
	case len(u.Email) > maxEmailLength:
		errs = append(errs, FieldError{"email", fmt.Sprintf("must not exceed %d characters", maxEmailLength)})
	case !emailRegex.MatchString(u.Email):
		errs = append(errs, FieldError{"email", "must be a well-formed email address"})
	}

	if strings.TrimSpace(u.Telephone) == "" {
		errs = append(errs, FieldError{"telephone", "must not be blank"})
	} else if len(u.Telephone) > maxTelephoneLength {
		errs = append(errs, FieldError{"telephone", fmt.Sprintf("must not exceed %d characters", maxTelephoneLength)})
	}

	return errs
}
