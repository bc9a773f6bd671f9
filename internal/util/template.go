package util

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+?)\}\}`)

// Placeholders returns the distinct `{{name}}` tokens found in text, without
// braces, in order of first appearance.
// This lives in internal to avoid committing to public API stability prematurely.
func Placeholders(text string) []string {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return nil
	}

	matches := placeholderPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))

	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}

	return names
}

// Placeholder wraps name in template braces.
func Placeholder(name string) string {
	return "{{" + name + "}}"
}
