package utils

import (
	"strings"
	"unicode"
)

const DefaultCountryPrefix = "+41"

// PhoneNormalizer canonicalizes phone numbers to "+<digits>" so they can be
// compared. Numbers without an international prefix are assumed to belong to
// DefaultPrefix's country.
type PhoneNormalizer struct {
	DefaultPrefix string // e.g. "+41"
}

func NewPhoneNormalizer(prefix string) PhoneNormalizer {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultCountryPrefix
	}
	if !strings.HasPrefix(prefix, "+") {
		prefix = "+" + prefix
	}
	return PhoneNormalizer{DefaultPrefix: "+" + digitsOnly(prefix)}
}

// Normalize returns "" when raw is empty or shorter than 3 characters after
// removing spaces, dashes and parentheses.
func (n PhoneNormalizer) Normalize(raw string) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '(' || r == ')' {
			return -1
		}
		return r
	}, raw)

	if len(clean) < 3 {
		return ""
	}

	prefix := n.DefaultPrefix
	if prefix == "" {
		prefix = DefaultCountryPrefix
	}
	callingCode := strings.TrimPrefix(prefix, "+")

	switch {
	case strings.HasPrefix(clean, "+"):
		return "+" + digitsOnly(clean[1:])
	case strings.HasPrefix(clean, "00"):
		return "+" + digitsOnly(clean[2:])
	case strings.HasPrefix(clean, "0"):
		return prefix + digitsOnly(clean[1:])
	}

	digits := digitsOnly(clean)
	// 41791234567: calling code already present without the plus
	if strings.HasPrefix(digits, callingCode) && len(digits) >= 11 {
		return "+" + digits
	}
	// local number missing its leading zero
	return prefix + digits
}

// NormalizePtr is Normalize for optional values; absent results are nil.
func (n PhoneNormalizer) NormalizePtr(raw *string) *string {
	if raw == nil {
		return nil
	}
	return OptionalString(n.Normalize(*raw))
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
