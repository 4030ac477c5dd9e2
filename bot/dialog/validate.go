package dialog

import (
	"regexp"
	"strings"

	"orderbot/apperr"
)

// phoneRE accepts 10 to 15 digits with an optional leading plus.
var phoneRE = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// NonEmpty rejects blank input. It is the default step validator.
func NonEmpty(input string) error {
	if strings.TrimSpace(input) == "" {
		return apperr.New(apperr.KindValidation, "empty input")
	}
	return nil
}

// Phone validates a phone number like +79991234567.
func Phone(input string) error {
	if !phoneRE.MatchString(strings.TrimSpace(input)) {
		return apperr.New(apperr.KindValidation, "phone must be 10-15 digits with optional leading +")
	}
	return nil
}
