// Package util provides common utility functions used across the codebase.
package util

import "strings"

// ShellQuote wraps a string in single quotes, escaping any existing single quotes.
// This is safe for use in shell commands where the string should be treated literally.
func ShellQuote(s string) string {
	// Replace ' with '\'' (end quote, escaped quote, start quote)
	escaped := strings.ReplaceAll(s, "'", "'\\''")
	return "'" + escaped + "'"
}

// ShellQuotePreserveTilde quotes a path for shell execution while preserving
// tilde expansion. For paths starting with ~/, the tilde is kept unquoted and
// the rest is single-quoted. For other paths, the entire path is single-quoted.
//
// Remote paths like the base directory (~/.qube) need the remote shell to
// expand ~ to the connecting user's home directory, while still handling
// the remainder of the path safely.
func ShellQuotePreserveTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		return "~/" + ShellQuote(path[2:])
	}
	if path == "~" {
		return "~"
	}
	return ShellQuote(path)
}
