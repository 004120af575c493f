package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chroniclehq/cli/internal/sync"
	"github.com/chroniclehq/cli/internal/transcript"
)

const (
	maxRetries = 3
	retryDelay = 500 * time.Millisecond
)

// Client is the HTTP publisher for the Chronicle API. It implements
// sync.Publisher.
type Client struct {
	config     *Config
	httpClient *http.Client
	version    string
}

// NewClient creates a new API client
func NewClient(config *Config, version string) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		version: version,
	}
}

// recordMessage is the wire shape of one message within a record.
type recordMessage struct {
	UUID       string `json:"uuid"`
	ParentUUID string `json:"parent_uuid,omitempty"`
	Type       string `json:"type"`
	Role       string `json:"role,omitempty"`
	Content    string `json:"content,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	ToolUseID  string `json:"tool_use_id,omitempty"`
	ToolInput  string `json:"tool_input,omitempty"`
	ToolResult string `json:"tool_result,omitempty"`
	Timestamp  string `json:"timestamp"`
	Sequence   int    `json:"sequence"`
}

// recordCreatePayload is one record in a batch create request.
type recordCreatePayload struct {
	RecordID        string          `json:"record_id"`
	SessionID       string          `json:"session_id"`
	AnchorMessageID string          `json:"anchor_message_id"`
	LastMessageID   string          `json:"last_message_id"`
	MessageCount    int             `json:"message_count"`
	Input           string          `json:"input,omitempty"`
	Output          string          `json:"output,omitempty"`
	Repo            string          `json:"repo,omitempty"`
	Branch          string          `json:"branch,omitempty"`
	Messages        []recordMessage `json:"messages"`
}

type batchCreateRequest struct {
	Records []recordCreatePayload `json:"records"`
}

type batchCreateResponse struct {
	RecordIDs []string `json:"record_ids"`
}

type recordPatchPayload struct {
	LastMessageID string          `json:"last_message_id"`
	MessageCount  int             `json:"message_count"`
	Output        string          `json:"output,omitempty"`
	Messages      []recordMessage `json:"messages"`
}

type tagRequest struct {
	Tags []string `json:"tags"`
}

// CreateBatch publishes new records in a single call.
func (c *Client) CreateBatch(ctx context.Context, records []sync.RecordCreate) ([]string, error) {
	req := batchCreateRequest{Records: make([]recordCreatePayload, len(records))}
	for i, rec := range records {
		req.Records[i] = recordCreatePayload{
			RecordID:        rec.RecordID,
			SessionID:       rec.SessionID,
			AnchorMessageID: rec.AnchorMessageID,
			LastMessageID:   rec.LastMessageID,
			MessageCount:    rec.MessageCount,
			Input:           rec.Input,
			Output:          rec.Output,
			Repo:            rec.Repo,
			Branch:          rec.Branch,
			Messages:        wireMessages(rec.Messages),
		}
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/v1/records/batch", req)
	if err != nil {
		return nil, err
	}

	var resp batchCreateResponse
	if len(body) > 0 {
		// A response without ids is fine; the client-minted ids stand.
		json.Unmarshal(body, &resp)
	}
	return resp.RecordIDs, nil
}

// UpdateOne re-publishes one record by its remote id.
func (c *Client) UpdateOne(ctx context.Context, remoteID string, patch sync.RecordPatch) error {
	payload := recordPatchPayload{
		LastMessageID: patch.LastMessageID,
		MessageCount:  patch.MessageCount,
		Output:        patch.Output,
		Messages:      wireMessages(patch.Messages),
	}
	_, err := c.doRequest(ctx, http.MethodPatch, "/v1/records/"+remoteID, payload)
	return err
}

// TagThread sets derived labels on a remote conversation thread.
func (c *Client) TagThread(ctx context.Context, threadID string, tags []string) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/v1/threads/"+threadID+"/tags", tagRequest{Tags: tags})
	return err
}

// Ping verifies API connectivity and authentication.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/v1/ping", nil)
	return err
}

// doRequest performs an HTTP request with bounded retries on transport
// errors and 5xx responses. All publisher calls are idempotent on the
// server side (ids are minted client-side), so retrying is safe.
func (c *Client) doRequest(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var jsonData []byte
	if payload != nil {
		var err error
		jsonData, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay * time.Duration(attempt)):
			}
		}

		var reqBody io.Reader
		if jsonData != nil {
			reqBody = bytes.NewReader(jsonData)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.config.APIURL+path, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}

		lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode < 500 {
			// Client errors will not heal on retry.
			return nil, lastErr
		}
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, lastErr)
}

// setHeaders sets common HTTP headers
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("User-Agent", fmt.Sprintf("Chronicle-CLI/%s", c.version))
}

func wireMessages(messages []transcript.Message) []recordMessage {
	out := make([]recordMessage, len(messages))
	for i, m := range messages {
		out[i] = recordMessage{
			UUID:       m.UUID,
			ParentUUID: m.ParentUUID,
			Type:       m.Type,
			Role:       m.Role,
			Content:    m.Content,
			ToolName:   m.ToolName,
			ToolUseID:  m.ToolUseID,
			ToolInput:  m.ToolInput,
			ToolResult: m.ToolResult,
			Timestamp:  m.Timestamp,
			Sequence:   m.Sequence,
		}
	}
	return out
}
