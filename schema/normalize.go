package schema

import (
	"strings"
	"unicode"
)

// ValidateScope ensures a scope is either ScopeAll or a window id made of digits.
func ValidateScope(scope Scope) error {
	raw := string(scope)
	if raw == string(ScopeAll) {
		return nil
	}
	if raw == "" || strings.TrimSpace(raw) != raw {
		return ErrInvalidScope
	}
	for _, r := range raw {
		if !unicode.IsDigit(r) {
			return ErrInvalidScope
		}
	}
	return nil
}

// NormalizeTabID trims a raw tab identifier and rejects empty values.
func NormalizeTabID(raw string) (TabID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidRequest
	}
	return TabID(trimmed), nil
}
