package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeLog(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("Failed to write log: %v", err)
	}
	return path
}

func TestReadSession_FullExchange(t *testing.T) {
	path := writeLog(t, t.TempDir(), "abc-123.jsonl",
		`{"type":"summary","summary":"Fixing the build"}`,
		`{"type":"user","uuid":"u1","timestamp":"2026-01-01T10:00:00Z","cwd":"/home/dev/proj","message":{"role":"user","content":[{"type":"text","text":"fix the build"}]}}`,
		`{"type":"assistant","uuid":"a1","timestamp":"2026-01-01T10:00:01Z","message":{"role":"assistant","content":[{"type":"text","text":"looking at it"}]}}`,
		`{"type":"assistant","uuid":"a2","timestamp":"2026-01-01T10:00:02Z","message":{"role":"assistant","content":[{"type":"tool_use","id":"call-1","name":"Bash","input":{"command":"make"}}]}}`,
		`{"type":"user","uuid":"r1","timestamp":"2026-01-01T10:00:03Z","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"call-1","content":"ok"}]}}`,
	)

	sess, err := ReadSession(path)
	if err != nil {
		t.Fatalf("ReadSession failed: %v", err)
	}

	if sess.SessionID != "abc-123" {
		t.Errorf("Expected session id abc-123, got %s", sess.SessionID)
	}
	if sess.Summary != "Fixing the build" {
		t.Errorf("Expected summary from summary line, got %q", sess.Summary)
	}
	if sess.WorkingDirectory != "/home/dev/proj" {
		t.Errorf("Expected working directory, got %q", sess.WorkingDirectory)
	}
	if sess.FirstTimestamp != "2026-01-01T10:00:00Z" || sess.LastTimestamp != "2026-01-01T10:00:03Z" {
		t.Errorf("Unexpected timestamps: %s .. %s", sess.FirstTimestamp, sess.LastTimestamp)
	}

	// The summary line carries metadata only; 4 real messages remain.
	if len(sess.Messages) != 4 {
		t.Fatalf("Expected 4 messages, got %d", len(sess.Messages))
	}

	user := sess.Messages[0]
	if user.Role != "user" || user.Content != "fix the build" || user.IsToolResult {
		t.Errorf("Unexpected user message: %+v", user)
	}

	toolUse := sess.Messages[2]
	if toolUse.ToolName != "Bash" || toolUse.ToolUseID != "call-1" {
		t.Errorf("Unexpected tool use: %+v", toolUse)
	}
	if !strings.Contains(toolUse.ToolInput, "make") {
		t.Errorf("Expected tool input to carry the command, got %q", toolUse.ToolInput)
	}

	toolResult := sess.Messages[3]
	if !toolResult.IsToolResult || toolResult.ToolUseID != "call-1" {
		t.Errorf("Unexpected tool result: %+v", toolResult)
	}

	for i, m := range sess.Messages {
		if m.Sequence != i {
			t.Errorf("Message %d has sequence %d", i, m.Sequence)
		}
	}
}

func TestReadSession_SkipsMalformedLines(t *testing.T) {
	path := writeLog(t, t.TempDir(), "sess.jsonl",
		`{"type":"user","uuid":"u1","timestamp":"2026-01-01T10:00:00Z","message":{"role":"user","content":[{"type":"text","text":"hello"}]}}`,
		`not json at all`,
		``,
		`{"type":"assistant","uuid":"a1","timestamp":"2026-01-01T10:00:01Z","message":{"role":"assistant","content":[{"type":"text","text":"hi"}]}}`,
	)

	sess, err := ReadSession(path)
	if err != nil {
		t.Fatalf("ReadSession failed: %v", err)
	}
	if len(sess.Messages) != 2 {
		t.Fatalf("Expected malformed lines to be skipped, got %d messages", len(sess.Messages))
	}
}

func TestReadSession_LegacyStringContent(t *testing.T) {
	path := writeLog(t, t.TempDir(), "sess.jsonl",
		`{"type":"user","uuid":"u1","timestamp":"2026-01-01T10:00:00Z","content":"plain prompt"}`,
	)

	sess, err := ReadSession(path)
	if err != nil {
		t.Fatalf("ReadSession failed: %v", err)
	}
	if len(sess.Messages) != 1 || sess.Messages[0].Content != "plain prompt" {
		t.Errorf("Expected legacy content to parse, got %+v", sess.Messages)
	}
}

func TestReadSession_SyntheticUUIDs(t *testing.T) {
	path := writeLog(t, t.TempDir(), "sess.jsonl",
		`{"type":"user","timestamp":"2026-01-01T10:00:00Z","message":{"role":"user","content":[{"type":"text","text":"hello"}]}}`,
		`{"type":"assistant","timestamp":"2026-01-01T10:00:01Z","message":{"role":"assistant","content":[{"type":"text","text":"hi"}]}}`,
		`{"type":"system","timestamp":"2026-01-01T10:00:02Z","content":"note"}`,
	)

	sess, err := ReadSession(path)
	if err != nil {
		t.Fatalf("ReadSession failed: %v", err)
	}
	wantIDs := []string{"user-0", "assistant-1", "system-2"}
	for i, want := range wantIDs {
		if sess.Messages[i].UUID != want {
			t.Errorf("Message %d: expected synthetic uuid %s, got %s", i, want, sess.Messages[i].UUID)
		}
	}
}

func TestReadSession_MissingFile(t *testing.T) {
	if _, err := ReadSession(filepath.Join(t.TempDir(), "nope.jsonl")); err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestFindSessionFile(t *testing.T) {
	root := t.TempDir()
	projDir := filepath.Join(root, "-home-dev-proj")
	if err := os.MkdirAll(projDir, 0755); err != nil {
		t.Fatalf("Failed to create project dir: %v", err)
	}
	want := writeLog(t, projDir, "abc-123.jsonl", `{"type":"user","uuid":"u1"}`)

	got, err := FindSessionFile(root, "abc-123")
	if err != nil {
		t.Fatalf("FindSessionFile failed: %v", err)
	}
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}

	if _, err := FindSessionFile(root, "missing"); !os.IsNotExist(err) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestListSessionFiles(t *testing.T) {
	root := t.TempDir()
	projDir := filepath.Join(root, "proj")
	if err := os.MkdirAll(projDir, 0755); err != nil {
		t.Fatalf("Failed to create project dir: %v", err)
	}

	older := writeLog(t, projDir, "old.jsonl", `{}`)
	newer := writeLog(t, projDir, "new.jsonl", `{}`)
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("Failed to age file: %v", err)
	}

	files, err := ListSessionFiles(root)
	if err != nil {
		t.Fatalf("ListSessionFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(files))
	}
	if files[0] != newer || files[1] != older {
		t.Errorf("Expected newest first, got %v", files)
	}
}

func TestListSessionFiles_MissingRoot(t *testing.T) {
	files, err := ListSessionFiles(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Expected nil error for missing root, got %v", err)
	}
	if files != nil {
		t.Errorf("Expected no files, got %v", files)
	}
}

func TestSessionIDFromPath(t *testing.T) {
	if got := SessionIDFromPath("/logs/proj/abc-123.jsonl"); got != "abc-123" {
		t.Errorf("Expected abc-123, got %s", got)
	}
}
