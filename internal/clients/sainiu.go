package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tbourn/go-chat-intake/internal/domain"
)

// Platform method names, appended to {base}/api/.
const (
	methodGetNewNews    = "GetNewNews"
	methodSendMessages  = "SendMessages"
	methodTransferGroup = "TransferBuyerToGroups"
	methodTransferNick  = "TransferBuyerNick"
)

const (
	defaultSiteID      = "cntaobao"
	defaultWaitingTime = 3000 // ms
)

// Sainiu talks to the chat platform's local JSON API. It serves as the event
// source for polling and as the dispatcher for replies and transfers.
type Sainiu struct {
	BaseURL string
	APIKey  string
	SiteID  string
	HTTP    *http.Client
}

// NewSainiu returns a platform client rooted at baseURL.
func NewSainiu(baseURL, apiKey string, timeout time.Duration) *Sainiu {
	return &Sainiu{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		SiteID:  defaultSiteID,
		HTTP:    newHTTPClient(timeout),
	}
}

func (s *Sainiu) call(ctx context.Context, method string, params any) ([]byte, error) {
	var h http.Header
	if s.APIKey != "" {
		h = http.Header{"Authorization": []string{"Bearer " + s.APIKey}}
	}
	body, err := postJSON(ctx, s.HTTP, "sainiu "+method, s.BaseURL+"/api/"+method, params, h)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

// NextEvent polls for one new buyer message. It returns (nil, nil) when the
// platform has nothing new. The platform answers either with the event
// object or with the same object JSON-encoded as a string.
func (s *Sainiu) NextEvent(ctx context.Context) (*domain.InboundEvent, error) {
	raw, err := s.call(ctx, methodGetNewNews, struct{}{})
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("sainiu %s: decode string payload: %w", methodGetNewNews, err)
		}
		raw = []byte(inner)
	}
	if len(bytes.TrimSpace(raw)) == 0 || string(raw) == "null" {
		return nil, nil
	}
	ev, err := domain.DecodeEvent(raw)
	if err != nil {
		return nil, fmt.Errorf("sainiu %s: decode event: %w", methodGetNewNews, err)
	}
	if ev.IsEmpty() {
		return nil, nil
	}
	return &ev, nil
}

type sendParams struct {
	UserNick    string `json:"userNick"`
	BuyerNick   string `json:"buyerNick"`
	Text        string `json:"text"`
	SiteID      string `json:"siteid"`
	WaitingTime int    `json:"waitingTime"`
}

// SendText sends text to buyerNick from the seller account sellerNick.
func (s *Sainiu) SendText(ctx context.Context, sellerNick, buyerNick, text string) error {
	_, err := s.call(ctx, methodSendMessages, sendParams{
		UserNick:    sellerNick,
		BuyerNick:   buyerNick,
		Text:        text,
		SiteID:      s.SiteID,
		WaitingTime: defaultWaitingTime,
	})
	return err
}

// TransferToGroup moves the buyer into a reception group.
func (s *Sainiu) TransferToGroup(ctx context.Context, sellerNick, buyerNick, group string) error {
	_, err := s.call(ctx, methodTransferGroup, map[string]string{
		"userNick":  sellerNick,
		"buyerNick": buyerNick,
		"groupName": group,
	})
	return err
}

// TransferToNick moves the buyer to a specific agent.
func (s *Sainiu) TransferToNick(ctx context.Context, sellerNick, buyerNick, target string) error {
	_, err := s.call(ctx, methodTransferNick, map[string]string{
		"userNick":   sellerNick,
		"buyerNick":  buyerNick,
		"targetNick": target,
	})
	return err
}
