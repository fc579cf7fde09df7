// Package domain defines the core types shared across the intake pipeline:
// inbound chat events as delivered by the chat platform, and the GORM
// persistence models for tracking, audit, catalog and the SQL key-value store.
package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MessageKind classifies an inbound event by payload type. The numeric values
// match the platform's type codes and are what the tracking table stores.
type MessageKind int

const (
	KindText  MessageKind = 1
	KindImage MessageKind = 2
	KindVideo MessageKind = 3
	KindVoice MessageKind = 4
	KindFile  MessageKind = 5
	KindLink  MessageKind = 6
	KindOther MessageKind = 7
)

// SourceUserReceive is the platform marker for "a buyer sent us a message".
// Events carrying any other source code never enter the pipeline.
const SourceUserReceive = "CHAT_RECEIVE_MSG"

var kindNames = map[MessageKind]string{
	KindText:  "TEXT",
	KindImage: "IMAGE",
	KindVideo: "VIDEO",
	KindVoice: "VOICE",
	KindFile:  "FILE",
	KindLink:  "LINK",
	KindOther: "OTHER",
}

// platform labels as sent by the chat platform
var kindLabels = map[string]MessageKind{
	"文本消息": KindText,
	"图片消息": KindImage,
	"视频消息": KindVideo,
	"语音消息": KindVoice,
	"文件消息": KindFile,
	"链接消息": KindLink,
	"其他消息": KindOther,
}

// String returns the upper-case kind name (e.g. "TEXT").
func (k MessageKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "OTHER"
}

// Code returns the numeric code as a string, as persisted in tracking rows.
func (k MessageKind) Code() string { return strconv.Itoa(int(k)) }

// ParseKind maps a platform label, a numeric code, or a kind name to a
// MessageKind. Anything unrecognized is KindOther.
func ParseKind(s string) MessageKind {
	s = strings.TrimSpace(s)
	if k, ok := kindLabels[s]; ok {
		return k
	}
	if n, err := strconv.Atoi(s); err == nil {
		if _, ok := kindNames[MessageKind(n)]; ok {
			return MessageKind(n)
		}
		return KindOther
	}
	up := strings.ToUpper(s)
	for k, name := range kindNames {
		if name == up {
			return k
		}
	}
	return KindOther
}

// MarshalJSON encodes the kind as its numeric code.
func (k MessageKind) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(k))), nil
}

// UnmarshalJSON accepts a numeric code or any string ParseKind understands.
func (k *MessageKind) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*k = ParseKind(s)
		return nil
	}
	*k = ParseKind(string(b))
	return nil
}

// RawTime holds the platform timestamp exactly as received. It is part of the
// dedup key, so it is never parsed, rounded or re-formatted.
type RawTime string

// UnmarshalJSON keeps string values unquoted and any other token verbatim.
func (t *RawTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = RawTime(s)
		return nil
	}
	if string(b) == "null" {
		*t = ""
		return nil
	}
	*t = RawTime(b)
	return nil
}

// InboundEvent is one chat event from the platform, via polling or push.
// It is treated as immutable after decoding; TraceID is attached once at
// intake on a copy.
type InboundEvent struct {
	Kind       MessageKind `json:"type"`
	MessageID  string      `json:"messageId"`
	BuyerUID   string      `json:"buyerUid"`
	LoginID    string      `json:"loginId"`
	Nickname   string      `json:"buyerNick"`
	Body       string      `json:"message"`
	ReceivedAt RawTime     `json:"time"`
	SourceCode string      `json:"codeType"`
	TraceID    string      `json:"traceId,omitempty"`
}

// DedupKey is buyerUid|loginId|receivedAt.
func (e InboundEvent) DedupKey() string {
	return e.BuyerUID + "|" + e.LoginID + "|" + string(e.ReceivedAt)
}

// UserKey identifies the buyer for activity tracking and handoff markers.
func (e InboundEvent) UserKey() string { return e.BuyerUID }

// IsEmpty reports whether the payload carries no identity at all, which is
// what the platform returns when there is nothing new.
func (e InboundEvent) IsEmpty() bool {
	return e.MessageID == "" && e.BuyerUID == "" && e.Body == ""
}

// DecodeEvent parses a platform payload. The body is NFC-normalized so that
// keyword matching sees one canonical form of composed characters.
func DecodeEvent(data []byte) (InboundEvent, error) {
	var ev InboundEvent
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ev, nil
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return InboundEvent{}, err
	}
	ev.Body = norm.NFC.String(ev.Body)
	return ev, nil
}
