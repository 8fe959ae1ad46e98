package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpRead   Op = "read" // snapshot rows
)

// ParseOp normalizes Debezium op codes (c/u/d/r) and plain verbs.
func ParseOp(s string) (Op, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "insert", "create":
		return OpInsert, true
	case "u", "update":
		return OpUpdate, true
	case "d", "delete":
		return OpDelete, true
	case "r", "read":
		return OpRead, true
	default:
		return "", false
	}
}

const (
	ChannelSMS       = "sms"
	DirectionInbound = "inbound"
)

// RefID is a record reference that may arrive as a JSON number or string.
type RefID string

func (r *RefID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = RefID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("ref id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("ref id %s: not an integer", n)
	}
	*r = RefID(n.String())
	return nil
}

func (r RefID) String() string { return string(r) }

// CommunicationLog is the message-log row as it appears in change events.
type CommunicationLog struct {
	ID            RefID   `json:"id"            db:"id"`
	Type          string  `json:"type"          db:"type"`
	Direction     string  `json:"direction"     db:"direction"`
	Content       *string `json:"content"       db:"content"`
	ApplicationID RefID   `json:"application_id" db:"application_id"`
}

// MessageEvent is one row-level change on the message log.
type MessageEvent struct {
	Op            Op
	Table         string
	ID            string
	Channel       string
	Direction     string
	Content       *string // nil when the column is absent or NULL
	ApplicationID string
}

// InboundSMS reports whether the event is a freshly inserted inbound SMS.
func (e MessageEvent) InboundSMS() bool {
	return e.Op == OpInsert && e.Channel == ChannelSMS && e.Direction == DirectionInbound
}

// ContentText returns the content or "" when absent.
func (e MessageEvent) ContentText() string {
	if e.Content == nil {
		return ""
	}
	return *e.Content
}

var ErrMalformedEvent = errors.New("malformed change event")

// changeEnvelope mirrors a Debezium change event; the schema wrapper is optional.
type changeEnvelope struct {
	Payload *changeEnvelope `json:"payload"`
	Op      string          `json:"op"`
	Table   string          `json:"table"` // flat producers
	Source  struct {
		Table string `json:"table"`
	} `json:"source"`
	After *CommunicationLog `json:"after"`
}

// DecodeChangeEvent parses a Debezium-style change event for the message log.
// It accepts both {"schema":..,"payload":{..}} and the bare payload.
func DecodeChangeEvent(data []byte) (MessageEvent, error) {
	var env changeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return MessageEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if env.Payload != nil {
		env = *env.Payload
	}

	op, ok := ParseOp(env.Op)
	if !ok {
		return MessageEvent{}, fmt.Errorf("%w: unknown op %q", ErrMalformedEvent, env.Op)
	}
	table := env.Source.Table
	if table == "" {
		table = env.Table
	}

	ev := MessageEvent{Op: op, Table: table}
	if env.After == nil {
		if op == OpInsert {
			return MessageEvent{}, fmt.Errorf("%w: insert without row", ErrMalformedEvent)
		}
		return ev, nil
	}

	ev.ID = env.After.ID.String()
	ev.Channel = strings.ToLower(strings.TrimSpace(env.After.Type))
	ev.Direction = strings.ToLower(strings.TrimSpace(env.After.Direction))
	ev.Content = env.After.Content
	ev.ApplicationID = env.After.ApplicationID.String()
	return ev, nil
}

// EncodeInsertEvent builds the bare-payload form of an insert on table.
func EncodeInsertEvent(table string, row CommunicationLog) ([]byte, error) {
	return json.Marshal(map[string]any{
		"op":     "c",
		"source": map[string]string{"table": table},
		"after":  row,
	})
}
