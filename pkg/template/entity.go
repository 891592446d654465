package template

import (
	"fmt"
	"regexp"
	"strings"
)

// ExtractEntity applies a template pattern to a query and returns the entity
// mention it captures. With an explicit group list the first listed capture
// group wins; without one, a pattern with a single capture group yields that
// group and a pattern without groups yields the whole match.
func ExtractEntity(pattern string, groups []int, query string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("template: compile pattern %q: %w", pattern, err)
	}

	match := re.FindStringSubmatch(query)
	if match == nil {
		return "", fmt.Errorf("template: pattern %q does not match query %q", pattern, query)
	}

	idx := 0
	switch {
	case len(groups) > 0:
		// Stored group indices are zero based; submatch 0 is the full match.
		idx = groups[0] + 1
	case re.NumSubexp() == 1:
		idx = 1
	}
	if idx >= len(match) {
		return "", fmt.Errorf("template: pattern %q has no capture group %d", pattern, idx-1)
	}

	entity := strings.TrimSpace(match[idx])
	if entity == "" {
		return "", fmt.Errorf("template: pattern %q captured an empty entity from %q", pattern, query)
	}
	return entity, nil
}
