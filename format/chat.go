package format

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hupe1980/contextmesh/core"
)

// ChatMode selects how chat messages are rendered.
type ChatMode string

const (
	// ChatModeStandard renders "Speaker: text" lines.
	ChatModeStandard ChatMode = "standard"
	// ChatModeCompact truncates each message body to CompactLimit characters.
	ChatModeCompact ChatMode = "compact"
	// ChatModeDetailed keeps structured per-message fields.
	ChatModeDetailed ChatMode = "detailed"
)

const (
	// DefaultMaxMessages is the default chat window.
	DefaultMaxMessages = 50
	// CompactLimit is the per-message character limit in compact mode.
	CompactLimit = 200
	// Ellipsis marks truncated text.
	Ellipsis = "..."
)

// ChatOptions configures FormatChat.
type ChatOptions struct {
	MaxMessages   int
	IncludeSystem bool
	Mode          ChatMode
}

// DefaultChatOptions returns the default chat options.
func DefaultChatOptions() ChatOptions {
	return ChatOptions{MaxMessages: DefaultMaxMessages, Mode: ChatModeStandard}
}

// FormatChat selects the last MaxMessages eligible messages in chronological
// order and renders them. System messages are skipped unless IncludeSystem.
func FormatChat(messages []core.Message, optFns ...func(o *ChatOptions)) core.ChatResult {
	opts := DefaultChatOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = DefaultMaxMessages
	}

	type indexed struct {
		idx int
		msg core.Message
	}
	eligible := make([]indexed, 0, len(messages))
	for i, m := range messages {
		if m.IsSystem && !opts.IncludeSystem {
			continue
		}
		eligible = append(eligible, indexed{idx: i, msg: m})
	}
	if len(eligible) > opts.MaxMessages {
		eligible = eligible[len(eligible)-opts.MaxMessages:]
	}

	res := core.ChatResult{
		Messages:   make([]core.ChatLine, 0, len(eligible)),
		Speakers:   []string{},
		TotalCount: len(messages),
	}
	seen := map[string]struct{}{}
	blocks := make([]string, 0, len(eligible))
	for _, e := range eligible {
		text := e.msg.Text
		if opts.Mode == ChatModeCompact {
			text = Truncate(text, CompactLimit)
		}
		line := core.ChatLine{
			Index:     e.idx,
			Speaker:   e.msg.Speaker,
			Text:      text,
			IsUser:    e.msg.IsUser,
			Timestamp: e.msg.Timestamp,
		}
		res.Messages = append(res.Messages, line)
		if _, ok := seen[line.Speaker]; !ok {
			seen[line.Speaker] = struct{}{}
			res.Speakers = append(res.Speakers, line.Speaker)
		}
		blocks = append(blocks, renderChatLine(line, opts.Mode))
	}
	res.IncludedCount = len(res.Messages)
	res.Text = strings.Join(blocks, "\n\n")
	return res
}

func renderChatLine(l core.ChatLine, mode ChatMode) string {
	if mode != ChatModeDetailed {
		return fmt.Sprintf("%s: %s", l.Speaker, l.Text)
	}
	role := "character"
	if l.IsUser {
		role = "user"
	}
	header := fmt.Sprintf("[#%d] %s (%s)", l.Index, l.Speaker, role)
	if !l.Timestamp.IsZero() {
		header += " @ " + l.Timestamp.Format("2006-01-02 15:04")
	}
	return header + "\n" + l.Text
}

// Truncate shortens s to at most limit characters, appending Ellipsis when
// anything was cut.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + Ellipsis
}
