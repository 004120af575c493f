package sync

import (
	"github.com/chroniclehq/cli/internal/transcript"
)

// GroupMessages segments an ordered message stream into groups. A new group
// starts exactly at a user-authored plain-text message; every other message
// appends to the currently open group. Messages preceding the first prompt
// form a leading group with no user input, flushed as-is when the first
// prompt arrives.
//
// The function is pure: same input, same output, no side effects.
func GroupMessages(messages []transcript.Message) []Group {
	var groups []Group
	var open []transcript.Message

	for _, m := range messages {
		if startsGroup(m) {
			if len(open) > 0 {
				groups = append(groups, Group{Messages: open})
			}
			open = []transcript.Message{m}
			continue
		}
		open = append(open, m)
	}
	if len(open) > 0 {
		groups = append(groups, Group{Messages: open})
	}

	return groups
}

// startsGroup reports whether m opens a new group: a user-authored message
// whose content is plain text rather than a tool-result payload.
func startsGroup(m transcript.Message) bool {
	return m.Role == "user" && !m.IsToolResult && m.Content != ""
}
