// Package austax validates and formats Australian business identifiers:
// ABN, ACN, BSB, bank account numbers and postcodes.
package austax

import (
	"fmt"
	"regexp"
	"strings"
)

// ABN checksum weights per the ATO specification. The first digit is
// reduced by one before weighting and the weighted sum must divide by 89.
var abnWeights = [11]int{10, 1, 3, 5, 7, 9, 11, 13, 15, 17, 19}

var (
	postcodeRe = regexp.MustCompile(`^\d{4}$`)
	accountRe  = regexp.MustCompile(`^\d{6,10}$`)
)

// ValidationError carries the offending field and a user-facing message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ValidateABN checks an Australian Business Number and returns the
// normalized 11-digit form.
func ValidateABN(raw string) (string, error) {
	clean := strings.ReplaceAll(raw, " ", "")
	if len(clean) != 11 || !allDigits(clean) {
		return "", NewValidationError("abn", "ABN must be 11 digits")
	}

	sum := 0
	for i := 0; i < 11; i++ {
		digit := int(clean[i] - '0')
		if i == 0 {
			digit--
		}
		sum += digit * abnWeights[i]
	}
	if sum%89 != 0 {
		return "", NewValidationError("abn", "invalid ABN checksum")
	}

	return clean, nil
}

// ValidateACN checks an Australian Company Number and returns the
// normalized 9-digit form. Format-only: no checksum.
func ValidateACN(raw string) (string, error) {
	clean := strings.ReplaceAll(raw, " ", "")
	if len(clean) != 9 || !allDigits(clean) {
		return "", NewValidationError("acn", "ACN must be 9 digits")
	}
	return clean, nil
}

// ValidateBSB checks a Bank-State-Branch code, accepting XXXXXX or XXX-XXX,
// and returns the normalized 6-digit form.
func ValidateBSB(raw string) (string, error) {
	clean := strings.ReplaceAll(strings.ReplaceAll(raw, "-", ""), " ", "")
	if len(clean) != 6 || !allDigits(clean) {
		return "", NewValidationError("bsb", "BSB must be 6 digits in format XXX-XXX")
	}
	return clean, nil
}

// ValidatePostcode checks a 4-digit Australian postcode.
func ValidatePostcode(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	if !postcodeRe.MatchString(clean) {
		return "", NewValidationError("postal_code", "Australian postcode must be 4 digits")
	}
	return clean, nil
}

// ValidateAccountNumber checks an Australian bank account number (6-10 digits).
func ValidateAccountNumber(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	if !accountRe.MatchString(clean) {
		return "", NewValidationError("account_number", "account number must be 6-10 digits")
	}
	return clean, nil
}

// FormatABN renders an ABN in the canonical "XX XXX XXX XXX" grouping.
// Formatting only; the input is not validated.
func FormatABN(value string) string {
	clean := strings.ReplaceAll(value, " ", "")
	if len(clean) != 11 {
		return value
	}
	return fmt.Sprintf("%s %s %s %s", clean[:2], clean[2:5], clean[5:8], clean[8:11])
}

// FormatACN renders an ACN in the canonical "XXX XXX XXX" grouping.
func FormatACN(value string) string {
	clean := strings.ReplaceAll(value, " ", "")
	if len(clean) != 9 {
		return value
	}
	return fmt.Sprintf("%s %s %s", clean[:3], clean[3:6], clean[6:9])
}

// FormatBSB renders a BSB in the canonical "XXX-XXX" grouping.
func FormatBSB(value string) string {
	clean := strings.ReplaceAll(value, "-", "")
	if len(clean) != 6 {
		return value
	}
	return fmt.Sprintf("%s-%s", clean[:3], clean[3:6])
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
