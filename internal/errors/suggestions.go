// Package errors defines the error taxonomy shared by the log engine and its
// transports, plus enhanced error messages with suggestions.
package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNoMatchingFile reports that no file in the log directory starts with
	// the requested pattern (or the directory itself is missing).
	ErrNoMatchingFile = stderrors.New("no matching log file")

	// ErrFileUnreadable reports that a resolved file could not be opened or
	// read, typically because it was rotated or deleted in between.
	ErrFileUnreadable = stderrors.New("log file unreadable")

	// ErrInvalidArgument reports a malformed request parameter. It is always
	// raised before any filesystem access.
	ErrInvalidArgument = stderrors.New("invalid argument")
)

// SuggestiveError is an error that includes suggestions for fixing the problem.
type SuggestiveError struct {
	Message     string
	Suggestions []string
	HelpCommand string
	Err         error
}

func (e *SuggestiveError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nDid you mean one of these?\n")
		for _, s := range e.Suggestions {
			b.WriteString("  ")
			b.WriteString(s)
			b.WriteString("\n")
		}
	}

	if e.HelpCommand != "" {
		b.WriteString("\nRun '")
		b.WriteString(e.HelpCommand)
		b.WriteString("' for more information.")
	}

	return b.String()
}

// Unwrap exposes the taxonomy sentinel so callers can use errors.Is.
func (e *SuggestiveError) Unwrap() error {
	return e.Err
}

// NoMatchingFile creates an error for a pattern that matched nothing in dir.
// names are the entries actually present; the closest ones are suggested.
func NoMatchingFile(dir, pattern string, names []string) error {
	return &SuggestiveError{
		Message:     fmt.Sprintf("%s: no file in %s starts with %q", ErrNoMatchingFile, dir, pattern),
		Suggestions: similarPrefixes(pattern, names, 3),
		HelpCommand: "parrot files",
		Err:         ErrNoMatchingFile,
	}
}

// MissingDirectory creates a NoMatchingFile error for an unusable log directory.
func MissingDirectory(dir string, cause error) error {
	return fmt.Errorf("%w: log directory %s: %w", ErrNoMatchingFile, dir, cause)
}

// FileUnreadable wraps an open/read failure on a resolved file.
func FileUnreadable(path string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrFileUnreadable, path, cause)
}

// InvalidArgument creates an error for a malformed parameter value.
func InvalidArgument(name, value, reason string) error {
	return &SuggestiveError{
		Message: fmt.Sprintf("%s: %s=%q %s", ErrInvalidArgument, name, value, reason),
		Err:     ErrInvalidArgument,
	}
}

// AliasNotFoundError creates an error for when a log alias isn't configured.
func AliasNotFoundError(alias string, available []string) error {
	return &SuggestiveError{
		Message:     fmt.Sprintf("alias %q not found", alias),
		Suggestions: findSimilar(alias, available, 3),
		HelpCommand: "parrot aliases",
		Err:         ErrInvalidArgument,
	}
}

// similarPrefixes compares pattern against the same-length prefix of every
// name, so rotated suffixes don't inflate the distance.
func similarPrefixes(pattern string, names []string, maxDistance int) []string {
	byPrefix := make(map[string][]string)
	prefixes := make([]string, 0, len(names))
	for _, name := range names {
		prefix := name
		if len(prefix) > len(pattern) {
			prefix = prefix[:len(pattern)]
		}
		if _, seen := byPrefix[prefix]; !seen {
			prefixes = append(prefixes, prefix)
		}
		byPrefix[prefix] = append(byPrefix[prefix], name)
	}

	var result []string
	for _, prefix := range findSimilar(pattern, prefixes, maxDistance) {
		group := byPrefix[prefix]
		sort.Strings(group)
		result = append(result, group[len(group)-1])
	}
	return result
}

// findSimilar finds strings similar to target using Levenshtein distance.
func findSimilar(target string, candidates []string, maxDistance int) []string {
	type match struct {
		value    string
		distance int
	}

	var matches []match
	targetLower := strings.ToLower(target)

	for _, c := range candidates {
		cLower := strings.ToLower(c)
		d := levenshtein(targetLower, cLower)
		if d <= maxDistance {
			matches = append(matches, match{value: c, distance: d})
		}
	}

	// Closest first, name as tie-break so output is stable
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].value < matches[j].value
	})

	var result []string
	for i := 0; i < len(matches) && i < 3; i++ {
		result = append(result, matches[i].value)
	}

	return result
}

// levenshtein calculates the Levenshtein distance between two strings.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
	}

	for i := 0; i <= len(a); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}
