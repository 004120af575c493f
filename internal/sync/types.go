package sync

import (
	"github.com/chroniclehq/cli/internal/transcript"
)

// Group is one logical exchange: a user prompt plus all dependent assistant
// and tool activity up to the next prompt. Groups are recomputed from the
// log on every run and never persisted themselves.
type Group struct {
	Messages []transcript.Message
}

// AnchorID returns the id of the group's first message. It is the key
// linking a recomputed group to its previously synced record.
func (g Group) AnchorID() string {
	if len(g.Messages) == 0 {
		return ""
	}
	return g.Messages[0].UUID
}

// LastID returns the id of the group's last message.
func (g Group) LastID() string {
	if len(g.Messages) == 0 {
		return ""
	}
	return g.Messages[len(g.Messages)-1].UUID
}

// Input returns the user prompt that opened the group, or "" for a leading
// group that began before the first prompt.
func (g Group) Input() string {
	if len(g.Messages) == 0 {
		return ""
	}
	first := g.Messages[0]
	if first.Role == "user" && !first.IsToolResult {
		return first.Content
	}
	return ""
}

// Output returns the concatenated assistant text of the group.
func (g Group) Output() string {
	var out string
	for _, m := range g.Messages {
		if m.Role == "assistant" && m.Content != "" {
			if out != "" {
				out += "\n"
			}
			out += m.Content
		}
	}
	return out
}

// ToolNames returns the distinct tool names invoked within the group, in
// first-use order.
func (g Group) ToolNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range g.Messages {
		if m.ToolName != "" && !seen[m.ToolName] {
			seen[m.ToolName] = true
			names = append(names, m.ToolName)
		}
	}
	return names
}

// SyncedGroup is the last-known-published shape of one group.
type SyncedGroup struct {
	RemoteID        string `json:"remote_id"`
	AnchorMessageID string `json:"anchor_message_id"`
	LastMessageID   string `json:"last_message_id"`
	MessageCount    int    `json:"message_count"`
}

// SessionState is the persisted sync record for one session.
type SessionState struct {
	SessionID       string        `json:"session_id"`
	LastSyncTime    string        `json:"last_sync_time"`
	Fingerprint     string        `json:"fingerprint"`
	MessageCount    int           `json:"message_count"`
	LastMessageTime string        `json:"last_message_time"`
	SyncedGroups    []SyncedGroup `json:"synced_groups"`
}

// StateFile is the whole persisted store, rewritten wholesale on every
// mutation.
type StateFile struct {
	Sessions    map[string]*SessionState `json:"sessions"`
	LastUpdated string                   `json:"last_updated"`
}

// Action is one remote mutation decided by the diff engine.
type Action interface {
	isAction()
}

// CreateAction publishes a group that has no synced counterpart yet.
type CreateAction struct {
	Group Group
}

// UpdateAction re-publishes a group whose shape changed since it was last
// synced, addressed by its existing remote record.
type UpdateAction struct {
	Group    Group
	RemoteID string
}

func (CreateAction) isAction() {}
func (UpdateAction) isAction() {}

// RecordCreate is one new conversation record submitted to the publisher.
// RecordID is minted client-side so the id is known even if the remote
// response omits it.
type RecordCreate struct {
	RecordID        string
	SessionID       string
	AnchorMessageID string
	LastMessageID   string
	MessageCount    int
	Input           string
	Output          string
	Repo            string
	Branch          string
	Messages        []transcript.Message
}

// RecordPatch carries the changed shape of an already-published record.
type RecordPatch struct {
	LastMessageID string
	MessageCount  int
	Output        string
	Messages      []transcript.Message
}
