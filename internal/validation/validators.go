// Package validation provides input validators shared by the CLI and the
// configuration loader. All validators return nil on success.
package validation

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"
)

var (
	// Valid identifier: alphanumeric, dash, underscore
	identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// Dangerous characters that should never appear in identifiers
	dangerousChars = []string{";", "|", "&", "$", "`", "(", ")", "<", ">", "\\", "\"", "'", "\n", "\r"}
)

// ValidateIdentifier validates a general identifier (context names, group
// names, policy names). Identifiers end up in RESTCONF resource paths, so
// shell-ish metacharacters are rejected outright.
func ValidateIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("identifier cannot be empty")
	}

	if len(id) > 255 {
		return fmt.Errorf("identifier too long (max 255 characters)")
	}

	if !identifierRegex.MatchString(id) {
		return fmt.Errorf("invalid identifier: %s (must be alphanumeric with -_)", id)
	}

	for _, char := range dangerousChars {
		if strings.Contains(id, char) {
			return fmt.Errorf("identifier contains dangerous character: %s", char)
		}
	}

	return nil
}

// ValidateContextName validates a firewall context name.
func ValidateContextName(name string) error {
	if err := ValidateIdentifier(name); err != nil {
		return fmt.Errorf("invalid context name: %w", err)
	}
	return nil
}

// ValidatePortNumber validates a TCP port number.
func ValidatePortNumber(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be 1-65535)", port)
	}
	return nil
}

// ValidateCIDR validates a CIDR string and requires the address to sit on
// the prefix boundary (10.0.0.0/8 is valid, 10.0.0.1/8 is not).
func ValidateCIDR(s string) error {
	if s == "" {
		return fmt.Errorf("CIDR cannot be empty")
	}

	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return fmt.Errorf("invalid CIDR: %w", err)
	}

	if prefix.Addr() != prefix.Masked().Addr() {
		return fmt.Errorf("CIDR %s is not aligned to its prefix boundary (expected %s)", s, prefix.Masked())
	}

	return nil
}

// ValidatePrefixLength validates a prefix length for the given address family.
func ValidatePrefixLength(bits int, v6 bool) error {
	max := 32
	if v6 {
		max = 128
	}
	if bits < 0 || bits > max {
		return fmt.Errorf("invalid prefix length: %d (must be 0-%d)", bits, max)
	}
	return nil
}

// ValidateAllowlist checks if a value is in an allowed list.
func ValidateAllowlist(value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("value not in allowlist: %s (must be one of: %s)", value, strings.Join(allowed, ", "))
}

// SanitizeString removes dangerous characters from a string (for display purposes).
func SanitizeString(s string) string {
	for _, char := range dangerousChars {
		s = strings.ReplaceAll(s, char, "")
	}
	return s
}
