package utils

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidPhone = errors.New("invalid phone number")

var nonDigitRegex = regexp.MustCompile(`\D+`)

// NormalizePhoneKE canonicalizes Kenyan MSISDNs to 2547XXXXXXXX /
// 2541XXXXXXXX form. Accepted inputs after stripping non-digits:
//
//	9 digits  7XXXXXXXX or 1XXXXXXXX
//	10 digits 07XXXXXXXX or 01XXXXXXXX
//	12 digits 2547XXXXXXXX or 2541XXXXXXXX
//
// Anything else is rejected so no gateway call is ever made with a
// malformed subscriber number.
func NormalizePhoneKE(input string) (string, error) {
	digits := nonDigitRegex.ReplaceAllString(input, "")

	switch len(digits) {
	case 9:
		if digits[0] == '7' || digits[0] == '1' {
			return "254" + digits, nil
		}
	case 10:
		if strings.HasPrefix(digits, "07") || strings.HasPrefix(digits, "01") {
			return "254" + digits[1:], nil
		}
	case 12:
		if strings.HasPrefix(digits, "2547") || strings.HasPrefix(digits, "2541") {
			return digits, nil
		}
	}

	return "", ErrInvalidPhone
}
