// Package security provides validation, sanitization, and limits for the uow package.
package security

import (
	"strings"
	"unicode/utf8"

	"github.com/jdziat/simple-uow/pkg/core"
)

// Security limits and configuration
const (
	// MaxPayloadSize is the maximum size in bytes of a payload accepted over HTTP (8MB)
	MaxPayloadSize = 8 << 20

	// MaxConcurrency is the hard limit for worker concurrency
	MaxConcurrency = 1000

	// MaxErrorMessageLength is the maximum length for stored error messages
	MaxErrorMessageLength = 4096
)

// ValidateUoWName validates a unit of work name. Any non-empty string is a
// valid name; routing tables key on it verbatim.
func ValidateUoWName(name string) error {
	if name == "" {
		return core.ErrInvalidName
	}
	return nil
}

// SanitizeErrorMessage truncates and sanitizes error messages for storage
func SanitizeErrorMessage(msg string) string {
	if msg == "" {
		return ""
	}

	// Remove any null bytes or control characters (except newlines)
	var sanitized strings.Builder
	sanitized.Grow(len(msg))

	for _, r := range msg {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()

	if utf8.RuneCountInString(result) > MaxErrorMessageLength {
		runes := []rune(result)
		result = string(runes[:MaxErrorMessageLength-3]) + "..."
	}

	return result
}

// ClampConcurrency ensures concurrency is within limits
func ClampConcurrency(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxConcurrency {
		return MaxConcurrency
	}
	return n
}
