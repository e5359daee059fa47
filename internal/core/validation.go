package core

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

var (
	ErrNameRequired     = fmt.Errorf("%w: name is required", ErrValidation)
	ErrNameTooShort     = fmt.Errorf("%w: name must have at least 2 characters", ErrValidation)
	ErrEmailRequired    = fmt.Errorf("%w: email is required", ErrValidation)
	ErrEmailInvalid     = fmt.Errorf("%w: invalid email", ErrValidation)
	ErrPasswordRequired = fmt.Errorf("%w: password is required", ErrValidation)
	ErrPasswordTooShort = fmt.Errorf("%w: password must have at least 6 characters", ErrValidation)
)

func ValidateName(name string) error {
	if name == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(name) < 2 {
		return ErrNameTooShort
	}
	return nil
}

func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}
	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if utf8.RuneCountInString(password) < 6 {
		return ErrPasswordTooShort
	}
	return nil
}
