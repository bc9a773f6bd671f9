package core

import (
	"fmt"
	"strings"
)

// ValidateTaskName returns ErrInvalidTaskName if name is empty or whitespace only.
func ValidateTaskName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %q", ErrInvalidTaskName, name)
	}

	return nil
}
