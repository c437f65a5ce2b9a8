// Package action extracts structured action plans from free oracle text.
//
// The chain is strict-then-lenient: a well-formed JSON array of action
// objects is preferred; failing that, gjson digs a plan out of fenced or
// embedded JSON; failing that, a regex recovers a single MOVE from loose
// text. An empty plan is a valid outcome, not an error; narrative replies
// with no plan still produce a memory upstream.
package action

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/townlet-ai/townlet/core"
	"github.com/townlet-ai/townlet/logging"
)

// Kind tags the action variants the parser recognizes.
type Kind string

// Recognized action kinds. SPEAK, TALK and INTERACT normalize to Speak.
const (
	Move        Kind = "MOVE"
	Speak       Kind = "SPEAK"
	Gift        Kind = "GIFT"
	Cooperate   Kind = "COOPERATE"
	RequestHelp Kind = "REQUEST_HELP"
)

// Action is one step of an agent's plan. TargetPosition is set for Move;
// TargetID names a resolved agent for the interaction kinds; Item is only
// meaningful for Gift.
type Action struct {
	Kind           Kind
	TargetPosition core.Point
	TargetID       string
	Message        string
	Item           string
}

// Resolver maps a free-form target reference (agent name or id) to an agent
// id, reporting whether it resolved.
type Resolver func(ref string) (string, bool)

// Parser turns oracle text into an action plan. The resolver decides which
// interaction targets exist; unresolved targets are dropped with a log,
// never surfaced as an error.
type Parser struct {
	resolve Resolver
	logger  logging.Logger
}

// Options configure a Parser.
type Options struct {
	Logger logging.Logger
}

// NewParser constructs a Parser around a target resolver.
func NewParser(resolve Resolver, optFns ...func(o *Options)) *Parser {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if resolve == nil {
		resolve = func(string) (string, bool) { return "", false }
	}
	return &Parser{resolve: resolve, logger: opts.Logger}
}

// moveFallback recovers one MOVE from loosely formatted text like
// "ACTION: MOVE ... TARGET_POSITION: (120, 400)".
var moveFallback = regexp.MustCompile(`(?is)ACTION\s*:?\s*MOVE.*?TARGET_POSITION\s*:?\s*\(?\s*(-?\d+)\s*,\s*(-?\d+)\s*\)?`)

// Parse extracts an action plan from text. It never returns an error; a
// response the chain cannot interpret yields an empty plan.
func (p *Parser) Parse(text string) []Action {
	if raw := p.parseStrict(text); raw != nil {
		return p.validate(raw)
	}
	if raw := p.parseLenient(text); raw != nil {
		return p.validate(raw)
	}
	if m := moveFallback.FindStringSubmatch(text); m != nil {
		return p.validate([]rawAction{{
			Action: "MOVE",
			TargetPosition: []json.Number{
				json.Number(m[1]), json.Number(m[2]),
			},
		}})
	}
	return []Action{}
}

// rawAction is the wire shape of one plan entry before validation.
type rawAction struct {
	Action         string        `json:"action"`
	TargetPosition []json.Number `json:"target_position"`
	Target         string        `json:"target"`
	Message        string        `json:"message"`
	Item           string        `json:"item"`
}

func (p *Parser) parseStrict(text string) []rawAction {
	var raw []rawAction
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return nil
	}
	return raw
}

// parseLenient tolerates fenced blocks, surrounding narrative and a single
// bare object instead of an array.
func (p *Parser) parseLenient(text string) []rawAction {
	text = stripFences(text)
	candidate := ""
	if start := strings.Index(text, "["); start >= 0 {
		if end := strings.LastIndex(text, "]"); end > start {
			candidate = text[start : end+1]
		}
	}
	if candidate == "" || !gjson.Valid(candidate) {
		if start := strings.Index(text, "{"); start >= 0 {
			if end := strings.LastIndex(text, "}"); end > start {
				candidate = "[" + text[start:end+1] + "]"
			}
		}
	}
	if candidate == "" || !gjson.Valid(candidate) {
		return nil
	}

	var raw []rawAction
	parsed := gjson.Parse(candidate)
	if !parsed.IsArray() {
		return nil
	}
	parsed.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() || !item.Get("action").Exists() {
			return true
		}
		ra := rawAction{
			Action:  item.Get("action").String(),
			Target:  item.Get("target").String(),
			Message: item.Get("message").String(),
			Item:    item.Get("item").String(),
		}
		for _, n := range item.Get("target_position").Array() {
			ra.TargetPosition = append(ra.TargetPosition, json.Number(n.Raw))
		}
		raw = append(raw, ra)
		return true
	})
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	return strings.ReplaceAll(text, "```", "")
}

// validate normalizes kinds, clamps MOVE coordinates to the map and resolves
// interaction targets. Unknown kinds and unresolved targets are dropped.
func (p *Parser) validate(raw []rawAction) []Action {
	plan := make([]Action, 0, len(raw))
	for _, ra := range raw {
		switch strings.ToUpper(strings.TrimSpace(ra.Action)) {
		case "MOVE":
			pt, ok := position(ra.TargetPosition)
			if !ok {
				p.logger.Warn("move action without a usable target_position dropped")
				continue
			}
			plan = append(plan, Action{Kind: Move, TargetPosition: pt.Clamp()})
		case "SPEAK", "TALK", "INTERACT":
			if a, ok := p.interaction(Speak, ra); ok {
				plan = append(plan, a)
			}
		case "GIFT":
			if a, ok := p.interaction(Gift, ra); ok {
				plan = append(plan, a)
			}
		case "COOPERATE":
			if a, ok := p.interaction(Cooperate, ra); ok {
				plan = append(plan, a)
			}
		case "REQUEST_HELP":
			if a, ok := p.interaction(RequestHelp, ra); ok {
				plan = append(plan, a)
			}
		default:
			p.logger.Debug("unrecognized action kind dropped", "kind", ra.Action)
		}
	}
	return plan
}

func (p *Parser) interaction(kind Kind, ra rawAction) (Action, bool) {
	id, ok := p.resolve(ra.Target)
	if !ok {
		p.logger.Warn("interaction target did not resolve, action dropped",
			"kind", string(kind), "target", ra.Target)
		return Action{}, false
	}
	return Action{Kind: kind, TargetID: id, Message: ra.Message, Item: ra.Item}, true
}

func position(coords []json.Number) (core.Point, bool) {
	if len(coords) != 2 {
		return core.Point{}, false
	}
	x, errX := coords[0].Int64()
	y, errY := coords[1].Int64()
	if errX != nil || errY != nil {
		// Oracles occasionally emit floats for coordinates.
		fx, errX := coords[0].Float64()
		fy, errY := coords[1].Float64()
		if errX != nil || errY != nil {
			return core.Point{}, false
		}
		x, y = int64(fx), int64(fy)
	}
	return core.Point{X: int(x), Y: int(y)}, true
}

// EventType maps an action kind to the event type its emission carries.
func (a Action) EventType() string {
	switch a.Kind {
	case Speak:
		return core.EventDialogue
	case Gift:
		return core.EventGift
	case Cooperate:
		return core.EventCooperation
	case RequestHelp:
		return core.EventRequestHelp
	default:
		return core.EventLLM
	}
}

// Describe renders the human-readable event description for an emitted
// interaction, given the two display names.
func (a Action) Describe(fromName, toName string) string {
	switch a.Kind {
	case Gift:
		item := a.Item
		if item == "" {
			item = "a gift"
		}
		return fmt.Sprintf("%s gives %s to %s", fromName, item, toName)
	case Cooperate:
		return fmt.Sprintf("%s proposes to cooperate with %s", fromName, toName)
	case RequestHelp:
		return fmt.Sprintf("%s asks %s for help", fromName, toName)
	default:
		return fmt.Sprintf("%s talks to %s", fromName, toName)
	}
}
