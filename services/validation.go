package services

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate = validator.New()
	slugRe   = regexp.MustCompile(`^[a-z0-9-]+$`)
)

func isValidEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

func isValidSlug(slug string) bool {
	return slugRe.MatchString(slug)
}

// GuestFields is the editable part of a guest shared by manual adds, edits
// and import rows.
type GuestFields struct {
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	PlusOnesCount int     `json:"plusOnesCount"`
	Note          *string `json:"note"`
}

// trimmed returns a copy with names trimmed and blank optionals dropped.
func (f GuestFields) trimmed() GuestFields {
	out := f
	out.FirstName = strings.TrimSpace(f.FirstName)
	out.LastName = strings.TrimSpace(f.LastName)
	out.Email = optionalTrim(f.Email)
	out.Phone = optionalTrim(f.Phone)
	out.Note = optionalTrim(f.Note)
	return out
}

// validate checks the fields, prefixing keys with prefix (used for import rows).
func (f GuestFields) validate(v *ValidationError, prefix string) {
	if f.FirstName == "" {
		v.Add(prefix+"firstName", "First name is required")
	}
	if f.LastName == "" {
		v.Add(prefix+"lastName", "Last name is required")
	}
	if f.Email != nil && !isValidEmail(*f.Email) {
		v.Add(prefix+"email", "Invalid email")
	}
	if f.PlusOnesCount < 0 {
		v.Add(prefix+"plusOnesCount", "Must be 0 or more")
	}
}

func optionalTrim(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
