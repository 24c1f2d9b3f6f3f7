package helm

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Values represents helm chart values as a nested map.
type Values map[string]any

// Merge combines multiple Values maps with later maps taking precedence.
// Nested maps are merged recursively.
func Merge(valueMaps ...Values) Values {
	result := make(Values)
	for _, m := range valueMaps {
		for k, v := range m {
			if existing, ok := result[k].(Values); ok {
				if overlay, ok := v.(Values); ok {
					result[k] = Merge(existing, overlay)
					continue
				}
			}
			result[k] = v
		}
	}
	return result
}

// SetPath sets a value at a dotted path, creating intermediate maps as
// needed: SetPath("resources.limits.memory", "300Mi") yields
// {resources: {limits: {memory: 300Mi}}}. A segment may carry a list index,
// as in "configs[0].store", and a backslash escapes a literal dot inside a
// segment, which annotation keys need.
func (v Values) SetPath(path, raw string) {
	segments := splitPath(path)
	current := v
	for i, s := range segments {
		key, index := parseSegment(s)
		last := i == len(segments)-1

		if index < 0 {
			if last {
				current[key] = coerce(raw)
				return
			}
			next, ok := current[key].(Values)
			if !ok {
				next = make(Values)
				current[key] = next
			}
			current = next
			continue
		}

		list, _ := current[key].([]any)
		for len(list) <= index {
			list = append(list, nil)
		}
		if last {
			list[index] = coerce(raw)
			current[key] = list
			return
		}
		next, ok := list[index].(Values)
		if !ok {
			next = make(Values)
			list[index] = next
		}
		current[key] = list
		current = next
	}
}

// parseSegment splits an optional trailing list index off a path segment.
// The returned index is -1 when the segment is plain.
func parseSegment(s string) (string, int) {
	open := strings.IndexByte(s, '[')
	if open < 0 || !strings.HasSuffix(s, "]") {
		return s, -1
	}
	n, err := strconv.Atoi(s[open+1 : len(s)-1])
	if err != nil || n < 0 {
		return s, -1
	}
	return s[:open], n
}

// splitPath splits on unescaped dots and unescapes the rest.
func splitPath(path string) []string {
	var parts []string
	var segment strings.Builder
	escaped := false
	for _, r := range path {
		switch {
		case escaped:
			segment.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '.':
			parts = append(parts, segment.String())
			segment.Reset()
		default:
			segment.WriteRune(r)
		}
	}
	parts = append(parts, segment.String())
	return parts
}

// FromFlatAttributes expands a flat attribute map with dotted keys into
// nested chart values. Keys are processed in any order; deeper paths win
// over conflicting scalars set earlier.
func FromFlatAttributes(attrs map[string]string) Values {
	values := make(Values)
	for key, value := range attrs {
		values.SetPath(key, value)
	}
	return values
}

// coerce converts string attribute values into the scalar types charts
// expect: bools and integers are recognized, everything else stays a string.
func coerce(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}

// ToYAML encodes values as YAML.
func (v Values) ToYAML() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(map[string]any(v)); err != nil {
		return nil, fmt.Errorf("failed to encode values to YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// FromYAML parses YAML bytes into Values.
func FromYAML(data []byte) (Values, error) {
	var values Values
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse YAML values: %w", err)
	}
	return values, nil
}
