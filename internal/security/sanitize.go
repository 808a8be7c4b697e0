package security

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// unixUserRegex validates Unix usernames
	// Standard POSIX username rules
	// Length: 1-32 characters
	unixUserRegex = regexp.MustCompile(`^[a-z_][a-z0-9_-]{0,31}$`)

	// hostnameRegex validates hostnames and IPv4 addresses
	// IPv6 literals are validated structurally by the address parser,
	// which requires them bracketed
	hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9.-]{0,253}[a-zA-Z0-9])?$`)

	// sensitiveLogPatterns used by SanitizeCommandForLog to mask secrets
	sensitiveLogPatterns = []string{
		"SSH_KEY=",
		"PASSWORD=",
		"TOKEN=",
	}
)

// ValidateUnixUser validates a Unix username
func ValidateUnixUser(user string) error {
	if user == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if len(user) > 32 {
		return fmt.Errorf("username too long (max 32 characters)")
	}
	if !unixUserRegex.MatchString(user) {
		return fmt.Errorf("username must start with a lowercase letter or underscore, followed by lowercase letters, numbers, underscores, or hyphens")
	}
	return nil
}

// ValidateHost validates a hostname or IPv4 address. IPv6 literals pass
// through untouched; the parser has already stripped their brackets.
func ValidateHost(host string) error {
	if host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if strings.Contains(host, ":") {
		// Bracket-stripped IPv6 literal
		return nil
	}
	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("host contains invalid characters")
	}
	return nil
}

// ValidatePort validates a TCP port number
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// ShellEscape wraps a value in single quotes for safe interpolation into a
// remote shell command. Embedded single quotes are closed, escaped, reopened.
//
// Never apply this to the remote scratch path: its home reference must stay
// unquoted so the remote shell can expand it.
func ShellEscape(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

// SanitizeCommandForLog masks values that look like secrets before a command
// is written to a log
func SanitizeCommandForLog(command string) string {
	sanitized := command
	for _, pattern := range sensitiveLogPatterns {
		idx := 0
		for {
			pos := strings.Index(sanitized[idx:], pattern)
			if pos < 0 {
				break
			}
			start := idx + pos + len(pattern)
			end := start
			for end < len(sanitized) && sanitized[end] != ' ' && sanitized[end] != '\'' && sanitized[end] != '"' {
				end++
			}
			sanitized = sanitized[:start] + "***" + sanitized[end:]
			idx = start + 3
		}
	}
	return sanitized
}
