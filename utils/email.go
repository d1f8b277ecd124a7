package utils

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// IsEmail checks if the given string is a valid email format
func IsEmail(contact string) bool {
	return emailRegex.MatchString(strings.TrimSpace(contact))
}
