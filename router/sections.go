package router

import (
	"bytes"
	"encoding/json"
)

// Sections is an insertion-ordered map from section key to value.
type Sections struct {
	keys   []string
	values map[string]any
}

// NewSections returns an empty Sections.
func NewSections() *Sections {
	return &Sections{values: make(map[string]any)}
}

// Set stores v under key. Re-setting a key keeps its original position.
func (s *Sections) Set(key string, v any) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = v
}

// Get returns the value stored under key.
func (s *Sections) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.values[key]
	return v, ok
}

// Keys returns the section keys in insertion order.
func (s *Sections) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.keys...)
}

// Len returns the number of sections.
func (s *Sections) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Each calls fn for every section in order.
func (s *Sections) Each(fn func(key string, v any)) {
	if s == nil {
		return
	}
	for _, k := range s.keys {
		fn(k, s.values[k])
	}
}

// MarshalJSON encodes the sections as an object preserving insertion order.
func (s *Sections) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(s.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
