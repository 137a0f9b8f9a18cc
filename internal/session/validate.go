package session

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidName is returned for session names that cannot be used as a
// directory name under the data root.
var ErrInvalidName = errors.New("invalid session name")

// Names start with a letter or digit so they never collide with dot files.
var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidateName reports whether name may be used for a session.
func ValidateName(name string) error {
	if namePattern.MatchString(name) {
		return nil
	}
	return fmt.Errorf("%w %q: use 1-64 lowercase letters, digits, '-' or '_'", ErrInvalidName, name)
}
