package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Message is one entry of a session log. Messages are owned by the tool
// writing the log; this package only reads them.
type Message struct {
	UUID         string
	ParentUUID   string
	Type         string // user, assistant, system, ...
	Role         string
	Content      string
	ToolName     string
	ToolUseID    string
	ToolInput    string
	ToolResult   string
	IsToolResult bool
	Timestamp    string
	Sequence     int
}

// Session is one fully parsed session log plus the file metadata the sync
// engine needs for change detection.
type Session struct {
	SessionID        string
	Path             string
	Summary          string
	WorkingDirectory string
	FirstTimestamp   string
	LastTimestamp    string
	FileModTime      time.Time
	FileSize         int64
	Messages         []Message
}

// ReadSession parses a single JSONL session log. Lines that fail to parse
// are skipped; summary entries contribute metadata but are never emitted as
// messages.
func ReadSession(path string) (*Session, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat session log: %w", err)
	}

	sess := &Session{
		SessionID:   strings.TrimSuffix(filepath.Base(path), ".jsonl"),
		Path:        path,
		FileModTime: info.ModTime(),
		FileSize:    info.Size(),
	}

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024) // 10MB max line

	sequence := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var raw map[string]json.RawMessage
		if err := json.Unmarshal(line, &raw); err != nil {
			continue
		}

		var msgType string
		if typeRaw, ok := raw["type"]; ok {
			json.Unmarshal(typeRaw, &msgType)
		}

		if msgType == "summary" {
			if summaryRaw, ok := raw["summary"]; ok {
				json.Unmarshal(summaryRaw, &sess.Summary)
			}
			continue
		}

		timestamp := rawString(raw, "timestamp")
		if timestamp == "" {
			timestamp = time.Now().UTC().Format(time.RFC3339)
		}
		if sess.FirstTimestamp == "" {
			sess.FirstTimestamp = timestamp
		}
		sess.LastTimestamp = timestamp

		var msg *Message
		switch msgType {
		case "user":
			msg = parseUserMessage(raw, sequence, timestamp)
		case "assistant":
			msg = parseAssistantMessage(raw, sequence, timestamp)
		default:
			msg = parseGenericMessage(raw, msgType, sequence, timestamp)
		}
		if msg != nil {
			sess.Messages = append(sess.Messages, *msg)
			sequence++
		}

		if sess.WorkingDirectory == "" {
			sess.WorkingDirectory = rawString(raw, "cwd")
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading session log: %w", err)
	}

	return sess, nil
}

// FindSessionFile locates the log file for a session id under logRoot.
// Session logs are laid out as <logRoot>/<project>/<sessionID>.jsonl.
func FindSessionFile(logRoot, sessionID string) (string, error) {
	target := sessionID + ".jsonl"
	var found string
	err := filepath.Walk(logRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if !info.IsDir() && filepath.Base(path) == target {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to walk log root: %w", err)
	}
	if found == "" {
		return "", os.ErrNotExist
	}
	return found, nil
}

// ListSessionFiles returns all session log paths under logRoot, newest first.
func ListSessionFiles(logRoot string) ([]string, error) {
	if _, err := os.Stat(logRoot); os.IsNotExist(err) {
		return nil, nil // no logs yet
	}

	var files []string
	err := filepath.Walk(logRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() && strings.HasSuffix(path, ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk log root: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		infoI, errI := os.Stat(files[i])
		infoJ, errJ := os.Stat(files[j])
		if errI != nil || errJ != nil {
			return false
		}
		return infoI.ModTime().After(infoJ.ModTime())
	})

	return files, nil
}

// SessionIDFromPath derives the session id from a log file path.
func SessionIDFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".jsonl")
}

func parseUserMessage(raw map[string]json.RawMessage, sequence int, timestamp string) *Message {
	msg := &Message{
		UUID:       rawString(raw, "uuid"),
		ParentUUID: rawString(raw, "parentUuid"),
		Type:       "user",
		Role:       "user",
		Timestamp:  timestamp,
		Sequence:   sequence,
	}

	// Content lives in message.content as an array of typed blocks. A user
	// entry carrying a tool_result block is tool output, not a prompt.
	if msgRaw, ok := raw["message"]; ok {
		var inner struct {
			Content []json.RawMessage `json:"content"`
		}
		if err := json.Unmarshal(msgRaw, &inner); err == nil {
			for _, c := range inner.Content {
				var block struct {
					Type      string          `json:"type"`
					Text      string          `json:"text"`
					ToolUseID string          `json:"tool_use_id"`
					Content   json.RawMessage `json:"content"`
				}
				if err := json.Unmarshal(c, &block); err != nil {
					continue
				}
				switch block.Type {
				case "text":
					if msg.Content == "" {
						msg.Content = block.Text
					}
				case "tool_result":
					msg.IsToolResult = true
					msg.ToolUseID = block.ToolUseID
					msg.ToolResult = string(block.Content)
				}
			}
		}
	}

	// Older logs carry a plain string content field.
	if msg.Content == "" && !msg.IsToolResult {
		if contentRaw, ok := raw["content"]; ok {
			json.Unmarshal(contentRaw, &msg.Content)
		}
	}

	if msg.UUID == "" {
		msg.UUID = fmt.Sprintf("user-%d", sequence)
	}
	return msg
}

func parseAssistantMessage(raw map[string]json.RawMessage, sequence int, timestamp string) *Message {
	msg := &Message{
		UUID:       rawString(raw, "uuid"),
		ParentUUID: rawString(raw, "parentUuid"),
		Type:       "assistant",
		Role:       "assistant",
		Timestamp:  timestamp,
		Sequence:   sequence,
	}

	if msgRaw, ok := raw["message"]; ok {
		var inner struct {
			Content []json.RawMessage `json:"content"`
		}
		if err := json.Unmarshal(msgRaw, &inner); err == nil {
			for _, c := range inner.Content {
				var block struct {
					Type  string          `json:"type"`
					Text  string          `json:"text"`
					Name  string          `json:"name"`
					ID    string          `json:"id"`
					Input json.RawMessage `json:"input"`
				}
				if err := json.Unmarshal(c, &block); err != nil {
					continue
				}
				switch block.Type {
				case "text":
					msg.Content += block.Text
				case "tool_use":
					msg.ToolName = block.Name
					msg.ToolUseID = block.ID
					if block.Input != nil {
						msg.ToolInput = string(block.Input)
					}
				}
			}
		}
	}

	if msg.UUID == "" {
		msg.UUID = fmt.Sprintf("assistant-%d", sequence)
	}
	return msg
}

func parseGenericMessage(raw map[string]json.RawMessage, msgType string, sequence int, timestamp string) *Message {
	msg := &Message{
		UUID:      rawString(raw, "uuid"),
		Type:      msgType,
		Timestamp: timestamp,
		Sequence:  sequence,
	}
	if contentRaw, ok := raw["content"]; ok {
		json.Unmarshal(contentRaw, &msg.Content)
	}
	if msg.UUID == "" {
		msg.UUID = fmt.Sprintf("%s-%d", msgType, sequence)
	}
	return msg
}

func rawString(raw map[string]json.RawMessage, key string) string {
	var s string
	if v, ok := raw[key]; ok {
		json.Unmarshal(v, &s)
	}
	return s
}
