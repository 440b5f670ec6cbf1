package qa

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonschema"

	"devhelper/internal/llm"
	"devhelper/internal/logging"
)

// ActionKind is the wire name of a scenario action.
type ActionKind string

const (
	ActionCheckStyle      ActionKind = "check_style"
	ActionCheckText       ActionKind = "check_text"
	ActionCheckVisibility ActionKind = "check_visibility"
	ActionClick           ActionKind = "click"
)

// Action is the closed set of things a scenario can do. Only the types in
// this package implement it.
type Action interface {
	Kind() ActionKind
	Selector() string
	// Want returns the expectation text echoed into the result.
	Want() string
	isAction()
}

// CheckStyle compares the computed style of Target against Expected.
type CheckStyle struct {
	Target   string
	Expected string
}

// CheckText checks that the text of Target contains Expected.
type CheckText struct {
	Target   string
	Expected string
}

// CheckVisibility checks whether Target is present. Expected names the
// wanted state, "visible" or "hidden".
type CheckVisibility struct {
	Target   string
	Expected string
}

// Click clicks Target. Note is the free-text expectation, not checked.
type Click struct {
	Target string
	Note   string
}

func (CheckStyle) isAction()      {}
func (CheckText) isAction()       {}
func (CheckVisibility) isAction() {}
func (Click) isAction()           {}

func (CheckStyle) Kind() ActionKind      { return ActionCheckStyle }
func (CheckText) Kind() ActionKind       { return ActionCheckText }
func (CheckVisibility) Kind() ActionKind { return ActionCheckVisibility }
func (Click) Kind() ActionKind           { return ActionClick }

func (a CheckStyle) Selector() string      { return a.Target }
func (a CheckText) Selector() string       { return a.Target }
func (a CheckVisibility) Selector() string { return a.Target }
func (a Click) Selector() string           { return a.Target }

func (a CheckStyle) Want() string      { return a.Expected }
func (a CheckText) Want() string       { return a.Expected }
func (a CheckVisibility) Want() string { return a.Expected }
func (a Click) Want() string           { return a.Note }

// Scenario is one step of a test plan. Order is execution order.
type Scenario struct {
	Description string
	Action      Action
	Value       string
}

// Scenarios is an ordered test plan.
type Scenarios []Scenario

// wireScenario is the model-facing JSON shape of a scenario.
type wireScenario struct {
	Description string     `json:"description"`
	Action      string     `json:"action"`
	Target      string     `json:"target"`
	Expected    flexString `json:"expected"`
	Value       flexString `json:"value,omitempty"`
}

// MarshalJSON encodes the scenario in its wire shape.
func (s Scenario) MarshalJSON() ([]byte, error) {
	w := wireScenario{Description: s.Description, Value: flexString(s.Value)}
	if s.Action != nil {
		w.Action = string(s.Action.Kind())
		w.Target = s.Action.Selector()
		w.Expected = flexString(s.Action.Want())
	}
	return json.Marshal(w)
}

// NewAction builds the variant for a wire action name.
func NewAction(kind, target, expected string) (Action, error) {
	switch ActionKind(kind) {
	case ActionCheckStyle:
		return CheckStyle{Target: target, Expected: expected}, nil
	case ActionCheckText:
		return CheckText{Target: target, Expected: expected}, nil
	case ActionCheckVisibility:
		return CheckVisibility{Target: target, Expected: expected}, nil
	case ActionClick:
		return Click{Target: target, Note: expected}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", kind)
	}
}

// flexString accepts a JSON string, number, boolean or null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

// planSchemaJSON checks the envelope only. Entries are judged one at a time
// against entrySchemaJSON so one bad entry never discards its neighbours.
const planSchemaJSON = `{
	"type": "object",
	"required": ["scenarios"],
	"properties": {
		"scenarios": {"type": "array"}
	}
}`

const entrySchemaJSON = `{
	"type": "object",
	"required": ["action"],
	"properties": {
		"description": {"type": "string"},
		"action": {"type": "string"},
		"target": {"type": "string"},
		"expected": {"type": ["string", "number", "boolean", "null"]},
		"value": {"type": ["string", "number", "boolean", "null"]}
	}
}`

var (
	planSchema  = mustCompileSchema(planSchemaJSON)
	entrySchema = mustCompileSchema(entrySchemaJSON)
)

func mustCompileSchema(src string) *jsonschema.Schema {
	schema, err := jsonschema.NewCompiler().Compile([]byte(src))
	if err != nil {
		panic(fmt.Sprintf("compile scenario schema: %v", err))
	}
	return schema
}

// ParseScenarios is the parse-or-degrade boundary for model output. It
// locates the first '{'...last '}' span and decodes the scenarios. ok is
// false only when the envelope is unusable. Entries that are malformed or
// name an unknown action are dropped individually.
func ParseScenarios(raw string) (Scenarios, bool) {
	span := llm.ExtractJSON(raw)
	if span == "" {
		return nil, false
	}

	if result := planSchema.ValidateJSON([]byte(span)); !result.IsValid() {
		logging.QADebug("Scenario output failed schema validation: %v", result.Errors)
		return nil, false
	}

	var payload struct {
		Scenarios []json.RawMessage `json:"scenarios"`
	}
	if err := json.Unmarshal([]byte(span), &payload); err != nil {
		return nil, false
	}

	out := make(Scenarios, 0, len(payload.Scenarios))
	for i, entry := range payload.Scenarios {
		s, err := decodeScenario(entry)
		if err != nil {
			logging.QAWarn("Dropping scenario %d: %v", i, err)
			continue
		}
		out = append(out, s)
	}
	return out, true
}

func decodeScenario(entry json.RawMessage) (Scenario, error) {
	if result := entrySchema.ValidateJSON(entry); !result.IsValid() {
		return Scenario{}, fmt.Errorf("invalid entry %s", entry)
	}
	var w wireScenario
	if err := json.Unmarshal(entry, &w); err != nil {
		return Scenario{}, err
	}
	action, err := NewAction(strings.TrimSpace(w.Action), w.Target, string(w.Expected))
	if err != nil {
		return Scenario{}, fmt.Errorf("%q: %w", w.Description, err)
	}
	return Scenario{Description: w.Description, Action: action, Value: string(w.Value)}, nil
}
