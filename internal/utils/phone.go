package utils

import (
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/harentsoaR/wellness-api/internal/apperrors"
)

var ErrInvalidPhone = apperrors.Validation("INVALID_PHONE", "invalid phone number")

// PhoneNormalizer turns user supplied phone numbers into E.164. Numbers
// without a country code are read in the default region.
type PhoneNormalizer struct {
	region string
}

func NewPhoneNormalizer(region string) *PhoneNormalizer {
	return &PhoneNormalizer{region: strings.ToUpper(region)}
}

func (p *PhoneNormalizer) Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPhone.WithMessage("phone number is required")
	}
	num, err := phonenumbers.Parse(raw, p.region)
	if err != nil {
		return "", ErrInvalidPhone.WithMessage("invalid phone number %q", raw)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone.WithMessage("%q is not a valid phone number", raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
