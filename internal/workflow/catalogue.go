/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package workflow

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/friendsincode/recruitd/internal/models"
)

//go:embed stages.yaml
var defaultStages []byte

// InputKind names the input an action requires.
type InputKind string

const (
	InputNone   InputKind = ""
	InputReason InputKind = "reason"
)

// Action is a named transition legal from a stage. An empty Next keeps the
// candidate where it is.
type Action struct {
	ID       string       `yaml:"id" json:"id"`
	Label    string       `yaml:"label" json:"label"`
	Next     models.Stage `yaml:"next,omitempty" json:"next_stage,omitempty"`
	Requires InputKind    `yaml:"requires,omitempty" json:"requires_input,omitempty"`
	Variant  string       `yaml:"variant,omitempty" json:"variant,omitempty"`
}

// StageDefinition lists the actions legal from one stage, in display order.
type StageDefinition struct {
	ID      models.Stage `yaml:"id" json:"id"`
	Label   string       `yaml:"label" json:"label"`
	Actions []Action     `yaml:"actions" json:"actions"`
}

// Catalogue is the immutable stage graph. Build one with Load or Parse and
// hand it to NewEngine.
type Catalogue struct {
	order  []models.Stage
	stages map[models.Stage]StageDefinition
}

type catalogueFile struct {
	Stages []StageDefinition `yaml:"stages"`
}

// Default returns the built-in catalogue.
func Default() (*Catalogue, error) {
	return Parse(defaultStages)
}

// Load reads a catalogue from path, or the built-in one when path is empty.
func Load(path string) (*Catalogue, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalogue.
func Parse(data []byte) (*Catalogue, error) {
	var f catalogueFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse workflow catalogue: %w", err)
	}
	if len(f.Stages) == 0 {
		return nil, fmt.Errorf("workflow catalogue defines no stages")
	}

	c := &Catalogue{stages: make(map[models.Stage]StageDefinition, len(f.Stages))}
	for _, st := range f.Stages {
		if st.ID == "" {
			return nil, fmt.Errorf("workflow catalogue has a stage without id")
		}
		if _, dup := c.stages[st.ID]; dup {
			return nil, fmt.Errorf("stage %q defined twice", st.ID)
		}
		if (st.ID == models.StageHired || st.ID == models.StageRejected) && len(st.Actions) > 0 {
			return nil, fmt.Errorf("terminal stage %q must not define actions", st.ID)
		}
		seen := make(map[string]bool, len(st.Actions))
		for _, a := range st.Actions {
			if a.ID == "" {
				return nil, fmt.Errorf("stage %q has an action without id", st.ID)
			}
			if seen[a.ID] {
				return nil, fmt.Errorf("stage %q lists action %q twice", st.ID, a.ID)
			}
			seen[a.ID] = true
			if a.Requires != InputNone && a.Requires != InputReason {
				return nil, fmt.Errorf("action %q of stage %q requires unknown input %q", a.ID, st.ID, a.Requires)
			}
		}
		c.stages[st.ID] = st
		c.order = append(c.order, st.ID)
	}

	for _, st := range c.stages {
		for _, a := range st.Actions {
			if a.Next != "" {
				if _, ok := c.stages[a.Next]; !ok {
					return nil, fmt.Errorf("action %q of stage %q targets unknown stage %q", a.ID, st.ID, a.Next)
				}
			}
		}
	}
	return c, nil
}

// Stages returns definitions in file order.
func (c *Catalogue) Stages() []StageDefinition {
	out := make([]StageDefinition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.Stage(id))
	}
	return out
}

// Stage returns a copy of one definition; unknown stages yield the zero value.
func (c *Catalogue) Stage(id models.Stage) StageDefinition {
	st := c.stages[id]
	st.Actions = append([]Action(nil), st.Actions...)
	return st
}

// Has reports whether the stage exists.
func (c *Catalogue) Has(id models.Stage) bool {
	_, ok := c.stages[id]
	return ok
}

// Action finds an action legal from stage.
func (c *Catalogue) Action(stage models.Stage, actionID string) (Action, bool) {
	for _, a := range c.stages[stage].Actions {
		if a.ID == actionID {
			return a, true
		}
	}
	return Action{}, false
}

// ActionTo finds the first action from stage whose next stage is target.
func (c *Catalogue) ActionTo(stage, target models.Stage) (Action, bool) {
	for _, a := range c.stages[stage].Actions {
		if a.Next == target {
			return a, true
		}
	}
	return Action{}, false
}

// Terminal reports whether no action leaves the stage.
func (c *Catalogue) Terminal(stage models.Stage) bool {
	return len(c.stages[stage].Actions) == 0
}
