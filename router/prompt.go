package router

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SectionSeparator joins rendered sections.
const SectionSeparator = "\n\n"

// summaryFields are checked, in order, for a pre-rendered form of a nested
// object.
var summaryFields = []string{"summary", "formatted"}

// FormatForPrompt renders sections in insertion order under derived headers.
// A section is appended only while the output stays within maxLength
// characters; sections that would overflow are dropped whole and later,
// smaller sections may still fit. A non-positive maxLength selects
// DefaultMaxLength.
func FormatForPrompt(sections *Sections, maxLength int) string {
	out, _ := formatForPrompt(sections, maxLength)
	return out
}

func formatForPrompt(sections *Sections, maxLength int) (string, []string) {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	var (
		b       strings.Builder
		total   int
		dropped []string
	)

	sections.Each(func(key string, v any) {
		if isEmpty(v) {
			return
		}
		body := renderValue(v)
		if strings.TrimSpace(body) == "" {
			return
		}
		block := "## " + HeaderFor(key) + "\n" + body
		if total > 0 {
			block = SectionSeparator + block
		}
		n := utf8.RuneCountInString(block)
		if total+n > maxLength {
			dropped = append(dropped, key)
			return
		}
		b.WriteString(block)
		total += n
	})

	return b.String(), dropped
}

// HeaderFor derives a display header from a camelCase key:
// "currentSituation" becomes "Current Situation".
func HeaderFor(key string) string {
	var b strings.Builder
	for i, r := range key {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		if i == 0 {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func renderValue(v any) string {
	v = plainValue(v)
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return t.String()
	case map[string]any:
		return renderObject(t)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		lines := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item := rv.Index(i).Interface()
			if isEmpty(item) {
				continue
			}
			lines = append(lines, "- "+renderItem(item))
		}
		return strings.Join(lines, "\n")
	case reflect.Map:
		if m, ok := toObject(rv); ok {
			return renderObject(m)
		}
	}
	return fmt.Sprint(v)
}

// renderItem renders one element of a sequence on a single line.
func renderItem(v any) string {
	v = plainValue(v)
	m, ok := v.(map[string]any)
	if !ok {
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Map {
			m, ok = toObject(rv)
		}
	}
	if !ok {
		if s, isString := v.(string); isString {
			return strings.TrimSpace(s)
		}
		return fmt.Sprint(v)
	}
	if s, found := summaryOf(m); found {
		return s
	}
	if name, isString := lookupFold(m, "name").(string); isString && name != "" {
		if desc, isString := lookupFold(m, "description").(string); isString && desc != "" {
			return name + ": " + desc
		}
		return name
	}
	return strings.Join(scalarPairs(m), ", ")
}

// renderObject uses an embedded summary when present and otherwise lists the
// scalar fields as bullets.
func renderObject(m map[string]any) string {
	if s, ok := summaryOf(m); ok {
		return s
	}
	pairs := scalarPairs(m)
	for i, p := range pairs {
		pairs[i] = "- " + p
	}
	return strings.Join(pairs, "\n")
}

func summaryOf(m map[string]any) (string, bool) {
	for _, f := range summaryFields {
		if s, ok := lookupFold(m, f).(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}

func scalarPairs(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		v := m[k]
		if !isScalar(v) || isEmpty(v) {
			continue
		}
		pairs = append(pairs, k+": "+fmt.Sprint(v))
	}
	return pairs
}

// lookupFold returns m[name], falling back to a case-insensitive key match.
func lookupFold(m map[string]any, name string) any {
	if v, ok := m[name]; ok {
		return v
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.EqualFold(k, name) {
			return m[k]
		}
	}
	return nil
}

// plainValue dereferences pointers and turns structs into objects of their
// exported fields, keyed by json name or field name. Stringers are kept.
func plainValue(v any) any {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if _, ok := rv.Interface().(fmt.Stringer); ok {
			return v
		}
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	out := rv.Interface()
	if _, ok := out.(fmt.Stringer); ok || rv.Kind() != reflect.Struct {
		return out
	}

	rt := rv.Type()
	m := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag == "-" {
			continue
		} else if tag != "" {
			name = tag
		}
		m[name] = rv.Field(i).Interface()
	}
	return m
}

func toObject(rv reflect.Value) (map[string]any, bool) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true
}

func isScalar(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// isEmpty treats nil, blank strings, zero numbers, false and empty
// collections as absent.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return rv.IsZero()
	default:
		return false
	}
}
