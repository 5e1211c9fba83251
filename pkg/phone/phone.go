package phone

import (
	"strings"

	pkgerrors "github.com/angelmondragon/posledger-backend/pkg/errors"
)

const (
	minDigits = 6
	maxDigits = 16
)

// Normalizer turns user-entered phone numbers into the canonical customer key:
// digits only, with the configured country code rewritten to a leading zero.
type Normalizer struct {
	countryCode string
}

func NewNormalizer(countryCode string) Normalizer {
	return Normalizer{countryCode: strings.TrimPrefix(strings.TrimSpace(countryCode), "+")}
}

// Normalize returns the canonical form of raw or a validation error.
func (n Normalizer) Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "customer phone is required")
	}

	var b strings.Builder
	for i, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", pkgerrors.New(pkgerrors.CodeValidation, "customer phone contains invalid characters").
				WithDetails(map[string]any{"phone": raw})
		}
	}

	digits := b.String()
	if n.countryCode != "" && strings.HasPrefix(digits, n.countryCode) {
		digits = "0" + strings.TrimPrefix(digits, n.countryCode)
	}

	if len(digits) < minDigits || len(digits) > maxDigits {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "customer phone has an invalid length").
			WithDetails(map[string]any{"phone": raw})
	}
	return digits, nil
}

// NormalizeOptional normalizes raw when present. Blank input yields nil, which
// denotes a walk-in customer.
func (n Normalizer) NormalizeOptional(raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	normalized, err := n.Normalize(*raw)
	if err != nil {
		return nil, err
	}
	return &normalized, nil
}
