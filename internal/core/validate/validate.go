// Package validate provides shared validation functions.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

var roomNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// RoomName validates a room name. Room names become file names, redis key
// segments and NATS subject tokens, so they are limited to letters, digits,
// dashes and underscores.
func RoomName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("name %q is longer than 64 characters", name)
	}
	if !roomNamePattern.MatchString(name) {
		return fmt.Errorf("name %q may only contain letters, digits, '-' and '_'", name)
	}
	return nil
}

// ViewerID validates a participant identifier. Any non-blank string without
// control characters is accepted; email addresses are the common case.
func ViewerID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("viewer is required")
	}
	if strings.ContainsFunc(id, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
		return fmt.Errorf("viewer %q contains control characters", id)
	}
	return nil
}
