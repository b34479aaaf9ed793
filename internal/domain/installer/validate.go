package installer

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrUnsafeCharacter is returned for values that cannot be embedded in the package filename or build.sh.
var ErrUnsafeCharacter = errors.New("unsafe character")

// shellSpecial are characters that stay active inside a double-quoted shell word or split a path.
const shellSpecial = "\"$`\\/"

// ValidateVersion checks the packaged software version.
func ValidateVersion(version string) error {
	return validateComponent("version", version)
}

// ValidateConfigName checks the build configuration name.
func ValidateConfigName(name string) error {
	return validateComponent("config name", name)
}

// validateComponent rejects whitespace, control characters and shell specials.
// XML and HTML specials are allowed; the templates escape them.
func validateComponent(what, value string) error {
	for _, r := range value {
		if unicode.IsSpace(r) || unicode.IsControl(r) || strings.ContainsRune(shellSpecial, r) {
			return fmt.Errorf("%s %q contains %q: %w", what, value, r, ErrUnsafeCharacter)
		}
	}

	return nil
}
