package validator

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

const maxMessageLength = 4096

func ValidateRegister(phoneID, name, password string) ValidationErrors {
	errs := make(ValidationErrors)

	phoneID = strings.TrimSpace(phoneID)
	if phoneID == "" {
		errs.Add("phone_id", "Phone number is required")
	}

	name = strings.TrimSpace(name)
	if len(name) > 100 {
		errs.Add("name", "Name is too long")
	}

	validatePassword(password, errs)

	return errs
}

func ValidateLogin(phoneID, password string) ValidationErrors {
	errs := make(ValidationErrors)

	if strings.TrimSpace(phoneID) == "" {
		errs.Add("phone_id", "Phone number is required")
	}
	if password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

func ValidateSendMessage(to, text string) ValidationErrors {
	errs := make(ValidationErrors)

	if strings.TrimSpace(to) == "" {
		errs.Add("to", "Recipient is required")
	}

	if strings.TrimSpace(text) == "" {
		errs.Add("text", "Message text is required")
	} else if utf8.RuneCountInString(text) > maxMessageLength {
		errs.Add("text", fmt.Sprintf("Message must be at most %d characters", maxMessageLength))
	}

	return errs
}

func validatePassword(password string, errs ValidationErrors) {
	if len(password) < 8 {
		errs.Add("password", "Password must be at least 8 characters")
		return
	}

	var hasLetter, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsLetter(ch):
			hasLetter = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	missing := []string{}
	if !hasLetter {
		missing = append(missing, "one letter")
	}
	if !hasDigit {
		missing = append(missing, "one number")
	}

	if len(missing) > 0 {
		errs.Add("password", fmt.Sprintf("Password must contain at least %s", strings.Join(missing, ", ")))
	}
}
