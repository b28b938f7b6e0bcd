package extract

import (
	"strings"

	"github.com/hupe1980/contextmesh/core"
)

// Relationships scans the character description (only) for
// "A is/are [the] R of B" and possessive "A's R" triples. The dedup key is
// the lowercased "subject_object"; the first triple per key wins. Possessive
// triples have the object "unknown".
func Relationships(s *core.Snapshot) core.RelationshipSet {
	var set core.RelationshipSet
	if s == nil {
		return set
	}
	text := s.Character.Description
	if text == "" {
		return set
	}

	for _, m := range relationOfPattern.FindAllStringSubmatch(text, -1) {
		add(&set, m[1], m[2], m[3])
	}
	for _, m := range possessivePattern.FindAllStringSubmatch(text, -1) {
		add(&set, m[1], m[2], "")
	}
	return set
}

// RelationshipKey synthesizes the dedup key for a subject/object pair.
func RelationshipKey(subject, object string) string {
	return strings.ToLower(subject + "_" + object)
}

func add(set *core.RelationshipSet, subject, predicate, object string) {
	if object == "" {
		object = UnknownObject
	}
	set.Add(RelationshipKey(subject, object), core.Relationship{
		Subject:   subject,
		Predicate: strings.ToLower(predicate),
		Object:    object,
		Source:    SourceDescription,
	})
}
