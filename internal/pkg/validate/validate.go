/*
Package validate holds the member field rules shared by the Member Service handlers and
the member client, so a request the client accepts is one the server accepts.
*/
package validate

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"harukcal/internal/pkg/errs"
)

var (
	emailRegex    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nicknameRegex = regexp.MustCompile(`^[a-zA-Z0-9가-힣!@#]{4,12}$`)
)

const passwordSymbols = "!@#"

// Activity levels accepted on a profile.
const (
	ActivityLow      = "LOW"
	ActivityModerate = "MODERATE"
	ActivityHigh     = "HIGH"
)

// Email checks the address shape.
func Email(email string) *errs.CustomError {
	if !emailRegex.MatchString(email) {
		return errs.NewError(errs.ErrInvalidEmail)
	}
	return nil
}

// Nickname allows 4 to 12 letters, digits, Hangul syllables and !@#.
func Nickname(nickname string) *errs.CustomError {
	if !nicknameRegex.MatchString(nickname) {
		return errs.NewError(errs.ErrInvalidNickname)
	}
	return nil
}

// Password requires 4 to 20 characters from letters, digits and !@#, with at least
// one upper-case letter, one digit and one symbol.
func Password(password string) *errs.CustomError {
	n := utf8.RuneCountInString(password)
	if n < 4 || n > 20 {
		return errs.NewError(errs.ErrInvalidPassword)
	}

	var upper, digit, symbol bool
	for _, r := range password {
		switch {
		case r > unicode.MaxASCII:
			return errs.NewError(errs.ErrInvalidPassword)
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		case unicode.IsLower(r):
		default:
			return errs.NewError(errs.ErrInvalidPassword)
		}
	}
	if !upper || !digit || !symbol {
		return errs.NewError(errs.ErrInvalidPassword)
	}
	return nil
}

// ActivityLevel accepts an empty value or one of the known levels.
func ActivityLevel(level string) *errs.CustomError {
	switch level {
	case "", ActivityLow, ActivityModerate, ActivityHigh:
		return nil
	}
	return errs.NewError(errs.ErrInvalidParams).WithMessage("Unknown activity level.")
}
