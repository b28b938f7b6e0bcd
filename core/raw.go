package core

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// RawSession is the session payload as delivered by the host application.
// Every field is optional; the snapshot acquirer resolves missing values to
// documented defaults.
type RawSession struct {
	Chat         []RawMessage       `json:"chat,omitempty" yaml:"chat,omitempty"`
	WorldInfo    []RawLoreEntry     `json:"world_info,omitempty" yaml:"world_info,omitempty"`
	Character    *RawCharacter      `json:"character,omitempty" yaml:"character,omitempty"`
	Participants map[string]RawCard `json:"participants,omitempty" yaml:"participants,omitempty"`
}

// RawMessage is one chat message in host format.
type RawMessage struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Mes      string `json:"mes,omitempty" yaml:"mes,omitempty"`
	IsUser   bool   `json:"is_user,omitempty" yaml:"is_user,omitempty"`
	IsSystem bool   `json:"is_system,omitempty" yaml:"is_system,omitempty"`
	SendDate any    `json:"send_date,omitempty" yaml:"send_date,omitempty"`
	SwipeID  int    `json:"swipe_id,omitempty" yaml:"swipe_id,omitempty"`
}

// RawLoreEntry is one world-info entry in host format.
type RawLoreEntry struct {
	Key     StringList `json:"key,omitempty" yaml:"key,omitempty"`
	Content string     `json:"content,omitempty" yaml:"content,omitempty"`
	Comment string     `json:"comment,omitempty" yaml:"comment,omitempty"`
	Disable bool       `json:"disable,omitempty" yaml:"disable,omitempty"`
}

// RawCharacter is the active character card in host format.
type RawCharacter struct {
	Name                    string     `json:"name,omitempty" yaml:"name,omitempty"`
	Description             string     `json:"description,omitempty" yaml:"description,omitempty"`
	Personality             string     `json:"personality,omitempty" yaml:"personality,omitempty"`
	Scenario                string     `json:"scenario,omitempty" yaml:"scenario,omitempty"`
	FirstMes                string     `json:"first_mes,omitempty" yaml:"first_mes,omitempty"`
	SystemPrompt            string     `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	PostHistoryInstructions string     `json:"post_history_instructions,omitempty" yaml:"post_history_instructions,omitempty"`
	Tags                    StringList `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// RawCard is the lightweight character summary the host keeps per group
// participant.
type RawCard struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// StringList decodes either a single string or a list of strings. Hosts are
// inconsistent about lore keys, so decoding never fails: scalars are kept in
// their text form, nested values are dropped and any other shape decodes to
// an empty list. WellFormedStringList reports whether a value had one of the
// two accepted shapes.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		*l = nil
		return nil
	}
	*l = stringListOf(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = nil
		if s := yamlScalar(value); s != "" {
			*l = StringList{s}
		}
	case yaml.SequenceNode:
		var out StringList
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode {
				continue
			}
			if s := yamlScalar(item); s != "" {
				out = append(out, s)
			}
		}
		*l = out
	default:
		*l = nil
	}
	return nil
}

func yamlScalar(n *yaml.Node) string {
	if n.Tag == "!!null" {
		return ""
	}
	return n.Value
}

// stringListOf converts a generically decoded value.
func stringListOf(v any) StringList {
	switch t := v.(type) {
	case []any:
		var out StringList
		for _, item := range t {
			if s, ok := scalarText(item); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s, ok := scalarText(t); ok && s != "" {
			return StringList{s}
		}
		return nil
	}
}

func scalarText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64, int, int64, uint64, bool:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}

// WellFormedStringList reports whether a generically decoded value is a
// string or a list of strings. Absent values (nil) are well formed.
func WellFormedStringList(v any) bool {
	switch t := v.(type) {
	case nil, string:
		return true
	case []any:
		for _, item := range t {
			if _, ok := item.(string); !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Clone returns a deep copy of the session structure. SendDate values are
// copied by reference.
func (r *RawSession) Clone() *RawSession {
	if r == nil {
		return nil
	}
	out := &RawSession{}
	if r.Chat != nil {
		out.Chat = append([]RawMessage(nil), r.Chat...)
	}
	if r.WorldInfo != nil {
		out.WorldInfo = make([]RawLoreEntry, len(r.WorldInfo))
		for i, e := range r.WorldInfo {
			e.Key = append(StringList(nil), e.Key...)
			out.WorldInfo[i] = e
		}
	}
	if r.Character != nil {
		c := *r.Character
		c.Tags = append(StringList(nil), c.Tags...)
		out.Character = &c
	}
	if r.Participants != nil {
		out.Participants = make(map[string]RawCard, len(r.Participants))
		for k, v := range r.Participants {
			out.Participants[k] = v
		}
	}
	return out
}
