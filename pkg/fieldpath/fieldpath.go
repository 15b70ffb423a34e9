package fieldpath

import "strings"

// Get resolves a dot-separated path against a nested map. The second
// return value reports whether a value was found; a missing intermediate
// segment yields (nil, false) rather than an error.
func Get(source map[string]interface{}, path string) (interface{}, bool) {
	if source == nil || path == "" {
		return nil, false
	}

	segments := strings.Split(path, ".")
	var current interface{} = source

	for _, segment := range segments {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		value, exists := node[segment]
		if !exists {
			return nil, false
		}
		current = value
	}

	return current, true
}

// Set assigns a value at a dot-separated path, creating intermediate
// maps as needed. An existing non-map intermediate is replaced.
func Set(target map[string]interface{}, path string, value interface{}) {
	if target == nil || path == "" {
		return
	}

	segments := strings.Split(path, ".")
	current := target

	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			current[segment] = next
		}
		current = next
	}

	current[segments[len(segments)-1]] = value
}
