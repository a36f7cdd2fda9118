package runner

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize is 4KB, more than any chat reply needs.
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize is the environment variable overriding the default.
	EnvMaxInputSize = "CONVO_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// ansiSequence matches CSI escape sequences such as color codes.
var ansiSequence = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// SanitizeInput cleans a user reply before it reaches the engine: it enforces
// the size limit, rejects invalid UTF-8, drops terminal escape sequences and
// strips control characters other than newline, tab and carriage return.
func SanitizeInput(input string) (string, error) {
	limit := MaxInputSize()
	// Rejected rather than truncated: a truncated reply could match a different branch.
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	if strings.IndexFunc(input, unsafeControl) < 0 {
		return input, nil
	}

	input = ansiSequence.ReplaceAllString(input, "")
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unsafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

// MaxInputSize returns the configured reply size limit in bytes.
func MaxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
