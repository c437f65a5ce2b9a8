package core

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Map bounds. Positions are always clamped into this rectangle.
const (
	MapWidth  = 800
	MapHeight = 600
)

// Point is a position on the town map.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Clamp returns the point constrained to the map rectangle.
func (p Point) Clamp() Point {
	if p.X < 0 {
		p.X = 0
	} else if p.X > MapWidth {
		p.X = MapWidth
	}
	if p.Y < 0 {
		p.Y = 0
	} else if p.Y > MapHeight {
		p.Y = MapHeight
	}
	return p
}

// Attributes is the bounded integer attribute bundle every agent carries.
// Event impact deltas are applied additively to these fields.
type Attributes struct {
	Energy      int `json:"energy" yaml:"energy"`
	Mood        int `json:"mood" yaml:"mood"`
	Sociability int `json:"sociability" yaml:"sociability"`
}

// Needs tracks an agent's current need levels.
type Needs struct {
	Energy int `json:"energy" yaml:"energy"`
	Social int `json:"social" yaml:"social"`
	Fun    int `json:"fun" yaml:"fun"`
}

// Relationship records one direction of the social graph between two agents.
// Affinity accumulates without bound; each adjustment is rounded to two
// decimals. Interactions and LastInteraction are bookkeeping for prompts.
type Relationship struct {
	Affinity        float64 `json:"affinity" yaml:"affinity"`
	Interactions    int     `json:"interactions" yaml:"interactions"`
	LastInteraction int64   `json:"last_interaction,omitempty" yaml:"last_interaction"`
}

// PromptSet holds the three named prompt templates configured per agent.
// Templates use Go text/template placeholders ({{.mood}}, {{.timeOfDay}},
// ...). Missing templates are synthesized at load time by the config
// package; the prompt builder treats an absent decision template as a
// configuration error, never a silent default.
type PromptSet struct {
	System   string `json:"system,omitempty" yaml:"system"`
	Role     string `json:"role,omitempty" yaml:"role"`
	Decision string `json:"decision,omitempty" yaml:"decision"`
}

// Agent is a simulated resident.
type Agent struct {
	ID            string                  `json:"id" yaml:"id"`
	Name          string                  `json:"name" yaml:"name"`
	Avatar        string                  `json:"avatar,omitempty" yaml:"avatar"`
	Role          string                  `json:"role,omitempty" yaml:"role"`
	Income        int                     `json:"income,omitempty" yaml:"income"`
	Sensitivity   map[string]float64      `json:"sensitivity,omitempty" yaml:"sensitivity"`
	Position      Point                   `json:"position" yaml:"position"`
	State         string                  `json:"state" yaml:"state"`
	CurrentAction string                  `json:"current_action,omitempty" yaml:"current_action"`
	Schedule      map[string]string       `json:"schedule,omitempty" yaml:"schedule"`
	Personality   string                  `json:"personality,omitempty" yaml:"personality"`
	Traits        []string                `json:"traits,omitempty" yaml:"traits"`
	Emotion       string                  `json:"emotion,omitempty" yaml:"emotion"`
	Goal          string                  `json:"goal,omitempty" yaml:"goal"`
	Attributes    Attributes              `json:"attributes" yaml:"attributes"`
	Needs         Needs                   `json:"needs" yaml:"needs"`
	Relationships map[string]Relationship `json:"relationships,omitempty" yaml:"relationships"`
	Memories      []Memory                `json:"memories,omitempty" yaml:"memories"`
	Prompts       PromptSet               `json:"prompts,omitempty" yaml:"prompts"`
	Model         string                  `json:"model,omitempty" yaml:"model"`
	Embedding     []float64               `json:"embedding,omitempty" yaml:"embedding"`
}

// Clone returns a deep copy safe for independent mutation.
func (a Agent) Clone() Agent {
	c := a
	if a.Sensitivity != nil {
		c.Sensitivity = make(map[string]float64, len(a.Sensitivity))
		for k, v := range a.Sensitivity {
			c.Sensitivity[k] = v
		}
	}
	if a.Schedule != nil {
		c.Schedule = make(map[string]string, len(a.Schedule))
		for k, v := range a.Schedule {
			c.Schedule[k] = v
		}
	}
	if a.Traits != nil {
		c.Traits = append([]string(nil), a.Traits...)
	}
	if a.Relationships != nil {
		c.Relationships = make(map[string]Relationship, len(a.Relationships))
		for k, v := range a.Relationships {
			c.Relationships[k] = v
		}
	}
	if a.Memories != nil {
		c.Memories = append([]Memory(nil), a.Memories...)
	}
	if a.Embedding != nil {
		c.Embedding = append([]float64(nil), a.Embedding...)
	}
	return c
}

// NowMillis returns the current wall clock as a millisecond epoch timestamp,
// the unit used by event StartTime and memory Timestamp throughout.
func NowMillis() int64 { return time.Now().UnixMilli() }

// NewEventID derives an event id from the current millisecond timestamp.
// Collisions are unlikely within one process but not impossible; stores
// treat inserts as upserts by id so a collision never duplicates rows.
func NewEventID() string { return strconv.FormatInt(NowMillis(), 10) }

// NewID generates a random unique identifier for records that have no
// natural time-derived key.
func NewID() string { return uuid.NewString() }
