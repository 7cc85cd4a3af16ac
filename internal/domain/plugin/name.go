package plugin

import (
	"fmt"
	"strings"
)

// MaxNameLength bounds plugin names.
const MaxNameLength = 64

// ValidateName checks that name can be used as a command and as a registry
// key. Names must start with a letter or digit and may contain letters,
// digits, '-', '_' and '.', but never "..".
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: %q is too long (maximum %d characters)", ErrInvalidName, name, MaxNameLength)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q contains \"..\"", ErrInvalidName, name)
	}

	first := name[0]
	if !isLetter(first) && !isDigit(first) {
		return fmt.Errorf("%w: %q must start with a letter or digit", ErrInvalidName, name)
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		if isLetter(c) || isDigit(c) || c == '-' || c == '_' || c == '.' {
			continue
		}
		return fmt.Errorf("%w: %q contains invalid character %q at position %d", ErrInvalidName, name, c, i)
	}
	return nil
}

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
