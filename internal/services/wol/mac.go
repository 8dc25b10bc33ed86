package wol

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// macPattern matches XX:XX:XX:XX:XX:XX in either case.
var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)

// ErrInvalidMAC is returned for link addresses that are not in canonical colon form.
var ErrInvalidMAC = errors.New("invalid MAC address")

// IsMAC reports whether s is a canonical colon-separated MAC address.
func IsMAC(s string) bool {
	return macPattern.MatchString(s)
}

// ValidateMAC checks s and returns it upper-cased.
func ValidateMAC(s string) (string, error) {
	if !IsMAC(s) {
		return "", fmt.Errorf("%w %q: expected format XX:XX:XX:XX:XX:XX", ErrInvalidMAC, s)
	}
	return strings.ToUpper(s), nil
}
