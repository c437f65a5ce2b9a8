// Package config holds the built-in resident presets, the town-authority
// persona used for world-event generation, and default prompt synthesis.
// Presets can be overlaid from a YAML file; missing prompt templates are
// filled in at load time so the prompt builder never has to invent one.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/townlet-ai/townlet/core"
)

// Authority is the persona that authors world events each tick. Its two
// prompt templates are required; GenerateEvent fails with a configuration
// error when either is absent.
type Authority struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Avatar       string `yaml:"avatar"`
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
	EventPrompt  string `yaml:"event_prompt"`
}

// Config aggregates everything the wiring layer needs.
type Config struct {
	Agents       []core.Agent  `yaml:"agents"`
	Authority    Authority     `yaml:"authority"`
	TickInterval time.Duration `yaml:"tick_interval"`
}

// Default returns the built-in configuration: four resident presets, the
// town-authority persona and a 60 second tick.
func Default() *Config {
	return &Config{
		Agents:       Presets(),
		Authority:    DefaultAuthority(),
		TickInterval: time.Minute,
	}
}

// Load reads a YAML overlay from path and merges it over the defaults.
// Sections absent from the file keep their default values; agents listed in
// the file replace the preset roster entirely.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var overlay struct {
		Agents       []core.Agent `yaml:"agents"`
		Authority    *Authority   `yaml:"authority"`
		TickInterval string       `yaml:"tick_interval"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(overlay.Agents) > 0 {
		cfg.Agents = overlay.Agents
	}
	if overlay.Authority != nil {
		cfg.Authority = *overlay.Authority
	}
	if overlay.TickInterval != "" {
		d, err := time.ParseDuration(overlay.TickInterval)
		if err != nil {
			return nil, fmt.Errorf("parse tick_interval: %w", err)
		}
		cfg.TickInterval = d
	}
	ApplyDefaultPrompts(cfg.Agents)
	return cfg, nil
}

// ApplyDefaultPrompts synthesizes any missing prompt template for each
// agent. Runs at load time only; the prompt builder never substitutes a
// default for a required template.
func ApplyDefaultPrompts(agents []core.Agent) {
	for i := range agents {
		defaults := DefaultPrompts(agents[i])
		if agents[i].Prompts.System == "" {
			agents[i].Prompts.System = defaults.System
		}
		if agents[i].Prompts.Role == "" {
			agents[i].Prompts.Role = defaults.Role
		}
		if agents[i].Prompts.Decision == "" {
			agents[i].Prompts.Decision = defaults.Decision
		}
	}
}

// DefaultPrompts builds the synthesized prompt set for one agent from its
// identity fields.
func DefaultPrompts(a core.Agent) core.PromptSet {
	name := a.Name
	if name == "" {
		name = "a resident"
	}
	role := a.Role
	if role == "" {
		role = "resident"
	}
	return core.PromptSet{
		System: fmt.Sprintf(
			"You are %s, a resident of the town. Make decisions that fit your "+
				"memories, needs, personality, occupation (%s), income (%d) and "+
				"policy sensitivity (%v). Interact with the other residents in a "+
				"consistent, plausible way.",
			name, role, a.Income, a.Sensitivity),
		Role: fmt.Sprintf(
			"You are %s, a %s. Personality: {{.personality}}. Current mood: {{.mood}}. "+
				"Income: %d. Policy sensitivity: %v.",
			name, role, a.Income, a.Sensitivity),
		Decision: fmt.Sprintf(
			"You are at ({{.x}}, {{.y}}). Time of day: {{.timeOfDay}}.\n"+
				"Occupation: %s. Income: %d. Policy sensitivity: %v.\n"+
				"Current mood: {{.mood}}.\n"+
				"Combine your memories, needs, personality, economic situation and "+
				"the current policies to decide your next action.",
			role, a.Income, a.Sensitivity),
	}
}
