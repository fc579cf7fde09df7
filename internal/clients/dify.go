package clients

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tbourn/go-chat-intake/internal/domain"
)

// Response modes of the chat-messages endpoint.
const (
	ModeStreaming = "streaming"
	ModeBlocking  = "blocking"
)

// emptyQuery stands in for an empty buyer message; the engine rejects "".
const emptyQuery = "这个"

// Dify is a client for a Dify-style chat application.
type Dify struct {
	BaseURL string
	AppKey  string
	Mode    string
	HTTP    *http.Client
}

// NewDify returns an engine client. An unknown mode falls back to streaming.
func NewDify(baseURL, appKey, mode string, timeout time.Duration) *Dify {
	if mode != ModeBlocking {
		mode = ModeStreaming
	}
	return &Dify{
		BaseURL: strings.TrimRight(baseURL, "/"),
		AppKey:  appKey,
		Mode:    mode,
		HTTP:    newHTTPClient(timeout),
	}
}

type difyFile struct {
	Type           string `json:"type"`
	TransferMethod string `json:"transfer_method"`
	URL            string `json:"url"`
}

type difyRequest struct {
	Query          string         `json:"query"`
	User           string         `json:"user"`
	Inputs         map[string]any `json:"inputs"`
	ResponseMode   string         `json:"response_mode"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Files          []difyFile     `json:"files,omitempty"`
}

type difyEvent struct {
	Event          string `json:"event"`
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Message        string `json:"message"`
}

// Converse sends one turn and returns the full answer. In streaming mode the
// answer is assembled from the message events of the SSE stream.
func (d *Dify) Converse(ctx context.Context, req domain.ConverseRequest) (domain.ConverseResult, error) {
	q := req.Query
	if strings.TrimSpace(q) == "" {
		q = emptyQuery
	}
	inputs := req.Inputs
	if inputs == nil {
		inputs = map[string]any{}
	}
	payload := difyRequest{
		Query:          q,
		User:           req.User,
		Inputs:         inputs,
		ResponseMode:   d.Mode,
		ConversationID: req.ConversationID,
	}
	for _, u := range req.ImageURLs {
		payload.Files = append(payload.Files, difyFile{Type: "image", TransferMethod: "remote_url", URL: u})
	}

	h := http.Header{"Authorization": []string{"Bearer " + d.AppKey}}
	body, err := postJSON(ctx, d.HTTP, "dify", d.BaseURL+"/chat-messages", payload, h)
	if err != nil {
		return domain.ConverseResult{}, err
	}
	defer body.Close()

	if d.Mode == ModeBlocking {
		var ev difyEvent
		if err := json.NewDecoder(body).Decode(&ev); err != nil {
			return domain.ConverseResult{}, fmt.Errorf("dify: decode response: %w", err)
		}
		return domain.ConverseResult{Answer: ev.Answer, ConversationID: ev.ConversationID, MessageID: ev.MessageID}, nil
	}

	var res domain.ConverseResult
	var answer strings.Builder
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if strings.TrimSpace(data) == "[DONE]" {
			break
		}
		var ev difyEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}
		switch ev.Event {
		case "agent_message", "message":
			answer.WriteString(ev.Answer)
		case "error":
			return domain.ConverseResult{}, fmt.Errorf("dify: stream error: %s", ev.Message)
		}
		if ev.ConversationID != "" {
			res.ConversationID = ev.ConversationID
		}
		if ev.MessageID != "" {
			res.MessageID = ev.MessageID
		}
		if ev.Event == "message_end" {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return domain.ConverseResult{}, fmt.Errorf("dify: read stream: %w", err)
	}
	res.Answer = answer.String()
	return res, nil
}
