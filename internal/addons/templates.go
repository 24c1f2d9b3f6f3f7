package addons

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/qovery/addonctl/internal/template"
)

// templateFile is the on-disk shape of a user template file.
type templateFile struct {
	Templates []template.Template `yaml:"templates"`
}

// LoadTemplateFiles reads user template files and merges them over the
// built-in catalog. A user template with the same kind/name as a built-in
// replaces it; new IDs are appended in file order.
func LoadTemplateFiles(builtins []template.Template, paths []string) ([]template.Template, error) {
	merged := make([]template.Template, len(builtins))
	copy(merged, builtins)

	index := make(map[string]int, len(merged))
	for i, tpl := range merged {
		index[tpl.ID()] = i
	}

	for _, path := range paths {
		raw, err := os.ReadFile(path) // #nosec G304 -- path comes from the user's config file
		if err != nil {
			return nil, fmt.Errorf("reading template file: %w", err)
		}

		var file templateFile
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("parsing template file %s: %w", path, err)
		}

		for _, tpl := range file.Templates {
			if err := tpl.Validate(); err != nil {
				return nil, fmt.Errorf("template file %s: %w", path, err)
			}
			if i, ok := index[tpl.ID()]; ok {
				merged[i] = tpl
				continue
			}
			index[tpl.ID()] = len(merged)
			merged = append(merged, tpl)
		}
	}

	return merged, nil
}
