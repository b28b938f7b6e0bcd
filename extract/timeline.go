package extract

import (
	"github.com/hupe1980/contextmesh/core"
	"github.com/hupe1980/contextmesh/format"
)

// TimelineSummaryLimit bounds the summary text of a timeline event.
const TimelineSummaryLimit = 100

// Timeline derives one event per message, in message order.
func Timeline(messages []core.Message) core.Timeline {
	tl := make(core.Timeline, 0, len(messages))
	for i, m := range messages {
		typ := core.TimelineCharacter
		switch {
		case m.IsSystem:
			typ = core.TimelineSystem
		case m.IsUser:
			typ = core.TimelineUser
		}
		tl = append(tl, core.TimelineEvent{
			Index:     i,
			Type:      typ,
			Speaker:   m.Speaker,
			Summary:   format.Truncate(m.Text, TimelineSummaryLimit),
			Timestamp: m.Timestamp,
			FullText:  m.Text,
		})
	}
	return tl
}
