package settings

import (
	"strings"
)

/*
AnnotationFilter decides which instance annotations a reader keeps. It is built from an
odata.include-annotations preference value: a comma separated list of patterns where

• "*" matches every annotation,

• "namespace.*" matches every annotation in a namespace,

• "namespace.term" matches one annotation,

• a leading "-" excludes what the pattern matches.

The most specific matching pattern wins; on a tie exclusion wins. An empty filter
keeps nothing.
*/
type AnnotationFilter struct {
	patterns []annotationPattern
}

type annotationPattern struct {
	namespace string
	term      string
	exclude   bool
}

// Parses a filter. Blank entries are skipped.
func ParseAnnotationFilter(value string) *AnnotationFilter {
	filter := &AnnotationFilter{}
	value = strings.Trim(strings.TrimSpace(value), `"`)

	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		pattern := annotationPattern{}
		if strings.HasPrefix(entry, "-") {
			pattern.exclude = true
			entry = entry[1:]
		}
		if entry == "*" {
			pattern.namespace = "*"
			pattern.term = "*"
		} else if index := strings.LastIndexByte(entry, '.'); index > 0 {
			pattern.namespace = entry[:index]
			pattern.term = entry[index+1:]
		} else {
			continue
		}
		filter.patterns = append(filter.patterns, pattern)
	}
	return filter
}

// specificity ranks a pattern: exact term beats namespace wildcard beats "*".
func (pattern annotationPattern) specificity() int {
	switch {
	case pattern.namespace == "*":
		return 0
	case pattern.term == "*":
		return 1
	default:
		return 2
	}
}

func (pattern annotationPattern) matches(namespace string, term string) bool {
	if pattern.namespace == "*" {
		return true
	}
	if !strings.EqualFold(pattern.namespace, namespace) {
		return false
	}
	return pattern.term == "*" || strings.EqualFold(pattern.term, term)
}

// Matches reports whether the annotation, given as "namespace.term", is kept.
func (filter *AnnotationFilter) Matches(annotation string) bool {
	if filter == nil {
		return false
	}
	annotation = strings.TrimPrefix(annotation, "@")
	index := strings.LastIndexByte(annotation, '.')
	if index <= 0 {
		return false
	}
	namespace, term := annotation[:index], annotation[index+1:]

	best := -1
	include := false
	for _, pattern := range filter.patterns {
		if !pattern.matches(namespace, term) {
			continue
		}
		specificity := pattern.specificity()
		if specificity > best {
			best = specificity
			include = !pattern.exclude
		} else if specificity == best && pattern.exclude {
			include = false
		}
	}
	return include
}

// Extracts the odata.include-annotations value from a Preference-Applied header, or an
// empty string if it has none.
func IncludeAnnotationsFromPreference(header string) string {
	for _, preference := range splitPreferences(header) {
		preference = strings.TrimSpace(preference)
		split := strings.SplitN(preference, "=", 2)
		if len(split) != 2 {
			continue
		}
		name := strings.TrimSpace(split[0])
		if strings.EqualFold(name, "odata.include-annotations") ||
			strings.EqualFold(name, "include-annotations") {
			return strings.Trim(strings.TrimSpace(split[1]), `"`)
		}
	}
	return ""
}

// splitPreferences splits a preference header on commas which are not quoted.
func splitPreferences(header string) []string {
	var preferences []string
	quoted := false
	start := 0
	for index, char := range header {
		switch {
		case char == '"':
			quoted = !quoted
		case char == ',' && !quoted:
			preferences = append(preferences, header[start:index])
			start = index + 1
		}
	}
	return append(preferences, header[start:])
}
