package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/contextmesh/core"
	"github.com/hupe1980/contextmesh/logging"
)

// ParseOptions configure Parse.
type ParseOptions struct {
	// Logger receives a Debug entry per wrong-shaped field. Defaults to NoOp.
	Logger logging.Logger
}

// Parse decodes a raw session. ".json" and ".jsonc" select JSON, where
// comments and trailing commas are accepted; anything else is read as YAML.
// Only syntax errors fail: wrong-shaped lore keys and character tags are
// logged and decode to their closest usable value.
func Parse(data []byte, ext string, optFns ...func(o *ParseOptions)) (*core.RawSession, error) {
	opts := ParseOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	var (
		raw     core.RawSession
		generic any
	)
	if strings.EqualFold(ext, ".json") || strings.EqualFold(ext, ".jsonc") {
		data = jsonc.ToJSON(data)
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("session: decode json: %w", err)
		}
		_ = json.Unmarshal(data, &generic)
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("session: decode yaml: %w", err)
		}
		_ = yaml.Unmarshal(data, &generic)
	}

	for _, field := range malformedFields(generic) {
		opts.Logger.Debug("session.malformed", "field", field, "default", "coerced")
	}
	return &raw, nil
}

// malformedFields lists the string-list fields of a generically decoded
// session that are neither a string nor a list of strings.
func malformedFields(doc any) []string {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil
	}

	var out []string
	if entries, ok := root["world_info"].([]any); ok {
		for i, e := range entries {
			if entry, ok := e.(map[string]any); ok && !core.WellFormedStringList(entry["key"]) {
				out = append(out, fmt.Sprintf("world_info[%d].key", i))
			}
		}
	}
	if char, ok := root["character"].(map[string]any); ok && !core.WellFormedStringList(char["tags"]) {
		out = append(out, "character.tags")
	}
	return out
}

// LoadFile reads and decodes the session at path.
func LoadFile(path string, optFns ...func(o *ParseOptions)) (*core.RawSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("session: read: %w", err)
	}
	return Parse(data, filepath.Ext(path), optFns...)
}

// FileProvider is a SnapshotProvider that re-reads a session file on every
// call. Logger may be nil.
type FileProvider struct {
	Path   string
	Logger logging.Logger
}

var _ core.SnapshotProvider = FileProvider{}

// Session implements core.SnapshotProvider.
func (p FileProvider) Session(ctx context.Context) (*core.RawSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(p.Path, func(o *ParseOptions) { o.Logger = p.Logger })
}
