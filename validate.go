package authd

import (
	"errors"
	"strings"
	"unicode"
)

// Field validators for the rules that struct tags cannot express: charset
// and unicode-category checks. Structural validation (required, email shape,
// length bounds) is handled at the HTTP edge.

const (
	usernameMinLen = 3
	usernameMaxLen = 50
	nameMaxLen     = 100
	passwordMinLen = 8
	passwordMaxLen = 50
)

// Characters rejected in passwords outright. Shell metacharacters, kept from
// the original service contract.
const passwordIllegal = ";|&$<>"

// ValidateUsername enforces alphanumeric+underscore usernames and returns
// the canonical lowercase form.
func ValidateUsername(username string) (string, error) {
	if len(username) < usernameMinLen || len(username) > usernameMaxLen {
		return "", errors.New("Username must be between 3 and 50 characters long.")
	}
	for _, r := range username {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return "", errors.New("Username must only contain alphanumeric characters and underscores.")
		}
	}
	return strings.ToLower(username), nil
}

// ValidateName accepts display names with international letters, combining
// marks, and common name punctuation. Returns the trimmed form.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("Name must not be empty.")
	}
	if len(name) > nameMaxLen {
		return "", errors.New("Name must be no more than 100 characters long.")
	}
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsMark(r) {
			continue
		}
		switch r {
		case ' ', '-', '\'', '.':
			continue
		}
		return "", errors.New("Name contains an invalid character.")
	}
	return name, nil
}

// ValidatePassword enforces the password complexity contract: 8-50 chars,
// no spaces, no shell metacharacters, at least one lowercase, uppercase,
// digit, and symbol.
func ValidatePassword(password string) error {
	if len(password) < passwordMinLen || len(password) > passwordMaxLen {
		return errors.New("Password must be between 8 and 50 characters long.")
	}
	if strings.ContainsAny(password, " \t") {
		return errors.New("Password cannot contain spaces.")
	}
	if strings.ContainsAny(password, passwordIllegal) {
		return errors.New("Password cannot contain any of ; | & $ < >.")
	}
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	if !hasLower || !hasUpper {
		return errors.New("Password must contain a lowercase and an uppercase letter.")
	}
	if !hasDigit {
		return errors.New("Password must contain a digit.")
	}
	if !hasSymbol {
		return errors.New("Password must contain a special symbol.")
	}
	return nil
}
