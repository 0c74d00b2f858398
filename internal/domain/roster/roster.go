// Package roster describes the teams whose agents are tracked.
package roster

import (
	"fmt"
	"strings"

	"github.com/Strob0t/AgentShift/internal/domain"
)

// Team is a named group of agents as shown on the report form.
type Team struct {
	Name   string   `yaml:"name" json:"name"`
	Agents []string `yaml:"agents" json:"agents"`
}

// Roster is the ordered list of configured teams.
type Roster []Team

// Has reports whether name belongs to any team.
func (r Roster) Has(name string) bool {
	for _, t := range r {
		for _, a := range t.Agents {
			if a == name {
				return true
			}
		}
	}
	return false
}

// Agents returns every tracked agent once, in roster order.
func (r Roster) Agents() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range r {
		for _, a := range t.Agents {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	return out
}

// Validate rejects unnamed teams and blank agent names.
func (r Roster) Validate() error {
	for i, t := range r {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("team %d has no name: %w", i, domain.ErrValidation)
		}
		for _, a := range t.Agents {
			if strings.TrimSpace(a) == "" {
				return fmt.Errorf("team %q has a blank agent: %w", t.Name, domain.ErrValidation)
			}
		}
	}
	return nil
}
