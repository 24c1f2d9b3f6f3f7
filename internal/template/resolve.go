package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// placeholderPattern matches {{ name }} expressions in attribute values.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// UnresolvedParameterError reports placeholders that reference parameters
// missing from the ParameterSet. It is a fatal configuration error.
type UnresolvedParameterError struct {
	TemplateID string
	Parameters []string
}

func (e *UnresolvedParameterError) Error() string {
	return fmt.Sprintf("template %s references undefined parameters: %s",
		e.TemplateID, strings.Join(e.Parameters, ", "))
}

// Resolve evaluates a template against a parameter set and enablement flags.
//
// If the template's enablement predicate is false the template resolves to
// nothing: the second return value is false and the resource has no presence
// in the plan or graph. Otherwise every {{ name }} placeholder in the
// attribute values is substituted in a single pass. Substituted text is
// never re-scanned, so parameter values containing placeholder syntax are
// treated as literals.
func Resolve(tpl Template, params ParameterSet, flags Flags) (*Resolved, bool, error) {
	if err := tpl.Validate(); err != nil {
		return nil, false, err
	}

	if tpl.EnabledIf != "" && !flags[tpl.EnabledIf] {
		return nil, false, nil
	}

	attrs := make(map[string]string, len(tpl.Attributes))
	missing := map[string]bool{}

	for key, value := range tpl.Attributes {
		attrs[key] = placeholderPattern.ReplaceAllStringFunc(value, func(match string) string {
			name := placeholderPattern.FindStringSubmatch(match)[1]
			resolved, ok := params[name]
			if !ok {
				missing[name] = true
				return match
			}
			return resolved
		})
	}

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, false, &UnresolvedParameterError{TemplateID: tpl.ID(), Parameters: names}
	}

	deps := make([]string, len(tpl.DependsOn))
	copy(deps, tpl.DependsOn)

	return &Resolved{
		ID:         tpl.ID(),
		Kind:       tpl.Kind,
		Name:       tpl.Name,
		Attributes: attrs,
		DependsOn:  deps,
		Protected:  IsProtectedKind(tpl.Kind),
	}, true, nil
}

// References returns the parameter names a template's attributes refer to,
// in sorted order. Used to decide whether a template is affected by an
// unavailable secret before attempting resolution.
func References(tpl Template) []string {
	seen := map[string]bool{}
	for _, value := range tpl.Attributes {
		for _, match := range placeholderPattern.FindAllStringSubmatch(value, -1) {
			seen[match[1]] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
