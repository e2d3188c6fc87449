package jsonformat

import (
	"github.com/illuscio-dev/odatareader-go/settings"
	"sort"
	"strings"
)

// OData control information, which is never subject to the annotation filter. Names
// are given without the "odata." prefix.
var controlInformation = map[string]bool{
	"context":   true,
	"type":      true,
	"id":        true,
	"etag":      true,
	"count":     true,
	"nextLink":  true,
	"deltaLink": true,
	"removed":   true,
	"readLink":  true,
	"editLink":  true,
}

/*
normalizeAnnotation turns an instance annotation key into "namespace.term" form. The
4.01 short forms of control information ("@context", "@count") are expanded to their
"odata." names. ok is false for keys which are not instance annotations.
*/
func normalizeAnnotation(key string) (name string, ok bool) {
	if !strings.HasPrefix(key, "@") {
		return "", false
	}
	name = key[1:]
	if controlInformation[name] {
		return "odata." + name, true
	}
	return name, true
}

// Whether a normalized annotation name is control information.
func isControlInformation(name string) bool {
	return strings.HasPrefix(name, "odata.") &&
		controlInformation[strings.TrimPrefix(name, "odata.")]
}

// Looks up control information by its short name, accepting both "@odata.x" and "@x".
func annotation(object map[string]interface{}, shortName string) (interface{}, bool) {
	if value, ok := object["@odata."+shortName]; ok {
		return value, true
	}
	value, ok := object["@"+shortName]
	return value, ok
}

func stringAnnotation(object map[string]interface{}, shortName string) (string, bool) {
	value, ok := annotation(object, shortName)
	if !ok {
		return "", false
	}
	text, ok := value.(string)
	return text, ok
}

func countAnnotation(object map[string]interface{}) *int64 {
	value, ok := annotation(object, "count")
	if !ok {
		return nil
	}
	count, ok := toInt64(value)
	if !ok {
		return nil
	}
	return &count
}

// Collects the instance annotations of object which pass filter. Control information
// is left out; it is surfaced through dedicated fields.
func customAnnotations(
	object map[string]interface{}, filter *settings.AnnotationFilter,
) map[string]interface{} {
	var kept map[string]interface{}
	for key, value := range object {
		name, ok := normalizeAnnotation(key)
		if !ok || isControlInformation(name) || !filter.Matches(name) {
			continue
		}
		if kept == nil {
			kept = make(map[string]interface{})
		}
		kept[name] = value
	}
	return kept
}

// Returns the property names of object, sorted, leaving out annotations of both the
// object and its properties.
func propertyNames(object map[string]interface{}) []string {
	names := make([]string, 0, len(object))
	for key := range object {
		if strings.Contains(key, "@") {
			continue
		}
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

func toInt64(value interface{}) (int64, bool) {
	switch typed := value.(type) {
	case int64:
		return typed, true
	case uint64:
		return int64(typed), true
	case float64:
		return int64(typed), typed == float64(int64(typed))
	}
	return 0, false
}
