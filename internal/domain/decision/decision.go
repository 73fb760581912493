// Package decision parses the model's structured output into a tagged
// variant. Schema validation failure is a distinct error kind from a
// provider being unreachable.
package decision

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/swarmworks/hivemind/internal/domain/memory"
	"github.com/swarmworks/hivemind/internal/domain/policy"
)

// ErrMalformed indicates the model output did not match the decision schema.
// It is fatal for the current run; no repair attempt is made.
var ErrMalformed = errors.New("malformed decision output")

// Kind tags the decision variant.
type Kind string

const (
	KindNoAction      Kind = "no_action"
	KindCreatePost    Kind = "create_post"
	KindCreateComment Kind = "create_comment"
)

// Insight is an optional long-term fact the model reports worth keeping.
type Insight struct {
	Type    memory.Kind `json:"type"`
	Content string      `json:"content"`
}

// Decision is the parsed model output.
type Decision struct {
	Kind          Kind
	Reason        string // populated for no_action
	Arguments     policy.Arguments
	BehaviorFlags []string
	Insight       *Insight
}

// Action maps the decision kind to the policy action evaluated post-decision.
func (d *Decision) Action() policy.Action {
	switch d.Kind {
	case KindCreatePost:
		return policy.ActionCreatePost
	case KindCreateComment:
		return policy.ActionCreateComment
	}
	return policy.ActionSystemCheck
}

// wire is the raw shape the model is instructed to emit.
type wire struct {
	Action        string            `json:"action"`
	Reason        string            `json:"reason,omitempty"`
	Arguments     *policy.Arguments `json:"arguments,omitempty"`
	BehaviorFlags []string          `json:"behavior_flags,omitempty"`
	Insight       *Insight          `json:"insight,omitempty"`
}

// Decode parses raw model output into a Decision. The output must contain a
// single JSON object; anything else returns ErrMalformed.
func Decode(raw string) (*Decision, error) {
	obj := extractObject(raw)
	if obj == "" {
		return nil, fmt.Errorf("%w: no JSON object in output", ErrMalformed)
	}

	var w wire
	dec := json.NewDecoder(strings.NewReader(obj))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch strings.ToLower(w.Action) {
	case "no_action":
		return &Decision{Kind: KindNoAction, Reason: w.Reason}, nil
	case "create_post":
		if w.Arguments == nil || w.Arguments.Title == "" || w.Arguments.Content == "" {
			return nil, fmt.Errorf("%w: create_post requires title and content", ErrMalformed)
		}
		return fromWire(KindCreatePost, &w), nil
	case "create_comment":
		if w.Arguments == nil || w.Arguments.ParentID == "" || w.Arguments.Content == "" {
			return nil, fmt.Errorf("%w: create_comment requires parent_id and content", ErrMalformed)
		}
		return fromWire(KindCreateComment, &w), nil
	}
	return nil, fmt.Errorf("%w: unknown action %q", ErrMalformed, w.Action)
}

func fromWire(kind Kind, w *wire) *Decision {
	d := &Decision{
		Kind:          kind,
		Arguments:     *w.Arguments,
		BehaviorFlags: w.BehaviorFlags,
	}
	if w.Insight != nil && w.Insight.Content != "" && memory.ValidKind(w.Insight.Type) {
		d.Insight = w.Insight
	}
	return d
}

// extractObject returns the first balanced top-level JSON object in s, so a
// model that wraps its JSON in prose or a code fence still parses.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
