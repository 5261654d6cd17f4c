package validate

import (
	"net/mail"
	"regexp"
	"strings"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,32}$`)

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

func Email(value string) bool {
	if !Required(value) {
		return false
	}
	_, err := mail.ParseAddress(value)
	return err == nil
}

func Username(value string) bool {
	return usernameRe.MatchString(value)
}

func Password(value string) bool {
	return len(value) >= 8
}
