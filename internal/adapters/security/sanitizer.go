package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// StrictSanitizer strips every HTML element from client-supplied text,
// such as device names and profile names, before it is stored.
type StrictSanitizer struct {
	policy *bluemonday.Policy
}

func NewStrictSanitizer() *StrictSanitizer {
	return &StrictSanitizer{policy: bluemonday.StrictPolicy()}
}

func (s *StrictSanitizer) Sanitize(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(input))
}
