package eventflow

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

// Role groups the pipelines one agent serves under a shared personality.
type Role struct {
	Name        string
	Description string
	Personality string
	// Pipelines maps the path each pipeline listens on, in collapsed form
	// and possibly with wildcards, to the pipeline.
	Pipelines map[string]*Pipeline
}

// Register binds every pipeline to its path on bus, giving steps without a
// personality the role's. Paths are bound in sorted order. If a path is
// invalid nothing is bound.
func (r *Role) Register(bus *event.Bus) ([]*event.Subscription, error) {
	keys := slices.Sorted(maps.Keys(r.Pipelines))

	paths := make([]event.Path, len(keys))
	for i, key := range keys {
		p, err := event.ParsePath(key)
		if err != nil {
			return nil, &ConfigurationError{Pipeline: r.Pipelines[key].Name(), Err: fmt.Errorf("role %s: %w", r.Name, err)}
		}
		paths[i] = p
	}

	subs := make([]*event.Subscription, 0, len(keys))
	for i, key := range keys {
		pipeline := r.Pipelines[key]
		if r.Personality != "" {
			pipeline = pipeline.InjectPersonality(r.Personality)
		}
		subs = append(subs, pipeline.Bind(bus, paths[i]))
	}
	return subs, nil
}

// Briefing renders the role as plain text for prompts.
func (r *Role) Briefing() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Role: %s\n", r.Name)
	if r.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", r.Description)
	}
	if r.Personality != "" {
		fmt.Fprintf(&b, "Personality: %s\n", r.Personality)
	}
	if len(r.Pipelines) > 0 {
		b.WriteString("Serves:\n")
		for _, key := range slices.Sorted(maps.Keys(r.Pipelines)) {
			p := r.Pipelines[key]
			fmt.Fprintf(&b, "  - %s: %s [%s]\n", key, p.Name(), strings.Join(p.StepNames(), " -> "))
		}
	}
	return b.String()
}
