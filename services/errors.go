package services

import (
	"errors"
	"sort"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	ErrLinkInvalid     = errors.New("link_invalid")
	ErrLinkFull        = errors.New("link_full")
	ErrLinkAlreadyUsed = errors.New("link_already_used")
	ErrEventAtCapacity = errors.New("event_at_capacity")

	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not_found")
	ErrDuplicateGuest = errors.New("duplicate_guest")
	ErrSlugTaken      = errors.New("slug_taken")
	ErrEmailTaken     = errors.New("email_taken")

	ErrInvalidCredentials = errors.New("invalid_credentials")

	ErrNotCheckedIn = errors.New("not_checked_in")
	ErrInvalidCount = errors.New("invalid_count")
)

// ValidationError carries per-field messages, keyed by JSON field name.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return "validation: " + strings.Join(parts, "; ")
}

// Add records msg for field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// OrNil returns nil when no field failed, so callers can `return v.OrNil()`.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// withPrefix returns a copy with every field key prefixed, e.g. "rows[2].".
func (e *ValidationError) withPrefix(prefix string) *ValidationError {
	out := &ValidationError{}
	for k, msgs := range e.Fields {
		for _, m := range msgs {
			out.Add(prefix+k, m)
		}
	}
	return out
}

// DuplicateGuestError names the guest a new entry collided with.
type DuplicateGuestError struct {
	Existing uint
	Name     string
}

func (e *DuplicateGuestError) Error() string {
	return "duplicate_guest: " + e.Name
}

func (e *DuplicateGuestError) Is(target error) bool { return target == ErrDuplicateGuest }

// isDuplicateKey recognizes unique index violations from gorm or MySQL (1062).
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysqldriver.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return true
	}
	lc := strings.ToLower(err.Error())
	return strings.Contains(lc, "unique constraint") || strings.Contains(lc, "duplicate entry")
}
