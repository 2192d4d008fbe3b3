// Package problems loads the local problem catalog. Problem definitions
// are owned by an external service; the CLI reads a YAML export of them.
package problems

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"ojcli/internal/model"
)

// Catalog is the parsed problem and language set.
type Catalog struct {
	Languages []model.Language `yaml:"languages"`
	Problems  []model.Problem  `yaml:"problems"`
}

func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read problems file failed: %w", err)
	}
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse problems file failed: %w", err)
	}
	for i, p := range cat.Problems {
		if p.ID == "" {
			return nil, fmt.Errorf("problem %d has no id", i)
		}
		seen := make(map[string]struct{}, len(p.TestCases))
		for _, tc := range p.TestCases {
			if tc.ID == "" {
				return nil, fmt.Errorf("problem %s has a test case without id", p.ID)
			}
			if _, dup := seen[tc.ID]; dup {
				return nil, fmt.Errorf("problem %s has duplicate test case id %s", p.ID, tc.ID)
			}
			seen[tc.ID] = struct{}{}
		}
	}
	return &cat, nil
}

// Problem looks up a problem by id.
func (c *Catalog) Problem(id string) (*model.Problem, bool) {
	for i := range c.Problems {
		if c.Problems[i].ID == id {
			return &c.Problems[i], true
		}
	}
	return nil, false
}

// Language looks up a language by id.
func (c *Catalog) Language(id string) (model.Language, bool) {
	for _, lang := range c.Languages {
		if lang.ID == id {
			return lang, true
		}
	}
	return model.Language{}, false
}

// ProblemIDs returns the catalog's problem ids, sorted.
func (c *Catalog) ProblemIDs() []string {
	out := make([]string, 0, len(c.Problems))
	for _, p := range c.Problems {
		out = append(out, p.ID)
	}
	sort.Strings(out)
	return out
}
