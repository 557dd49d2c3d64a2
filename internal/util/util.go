// Package util contains small helpers shared across layers.
package util

import (
	"strings"
)

// NormalizeEmail trims surrounding whitespace and lowercases an email address
// so credential lookups are insensitive to how the address was typed.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SplitDisplayName splits a display name into first and last name on the first
// whitespace run. The first token becomes the first name and the remainder the
// last name; both are empty when the display name is blank.
func SplitDisplayName(displayName string) (firstName, lastName string) {
	fields := strings.Fields(displayName)
	if len(fields) == 0 {
		return "", ""
	}

	return fields[0], strings.Join(fields[1:], " ")
}

// JoinName concatenates first and last name into a display name, trimming the
// result so a missing part does not leave stray spaces.
func JoinName(firstName, lastName string) string {
	return strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
}
