package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// State is the serialized form of a store. YAML and JSON documents share it.
type State struct {
	Values    map[string]any `json:"values,omitempty" yaml:"values,omitempty"`
	Scenes    []Scene        `json:"scenes,omitempty" yaml:"scenes,omitempty"`
	PlotLines []PlotLine     `json:"plot_lines,omitempty" yaml:"plot_lines,omitempty"`
	Present   []string       `json:"present,omitempty" yaml:"present,omitempty"`
	Dialogue  []DialogueLine `json:"dialogue,omitempty" yaml:"dialogue,omitempty"`
	Factions  []Sheet        `json:"factions,omitempty" yaml:"factions,omitempty"`
	Locations []Sheet        `json:"locations,omitempty" yaml:"locations,omitempty"`
}

// FromState builds a store holding the given state. An explicit Present
// list overrides the cast of the last scene.
func FromState(st State) *InMemoryStore {
	m := NewInMemoryStore()
	for k, v := range st.Values {
		m.Put(k, v)
	}
	for _, s := range st.Scenes {
		m.AddScene(s)
	}
	for _, p := range st.PlotLines {
		m.AddPlotLine(p)
	}
	if len(st.Present) > 0 {
		m.SetPresent(st.Present...)
	}
	for _, d := range st.Dialogue {
		m.AddDialogue(d.Speaker, d.Text)
	}
	for _, f := range st.Factions {
		m.PutFaction(f)
	}
	for _, l := range st.Locations {
		m.PutLocation(l)
	}
	return m
}

// Parse decodes a YAML (or JSON) state document.
func Parse(data []byte) (*InMemoryStore, error) {
	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("memory: decode state: %w", err)
	}
	return FromState(st), nil
}

// LoadFile reads a state document from path.
func LoadFile(path string) (*InMemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memory: read state: %w", err)
	}
	return Parse(data)
}
