package model

import (
	"errors"
	"testing"
)

func TestDecodeChangeEventWithSchemaWrapper(t *testing.T) {
	raw := `{"schema":{"type":"struct"},"payload":{"op":"c","source":{"table":"communication_logs"},
		"after":{"id":17,"type":"SMS","direction":"inbound","content":"Hej","application_id":42}}}`

	ev, err := DecodeChangeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Op != OpInsert || ev.Table != "communication_logs" {
		t.Fatalf("unexpected op/table %q/%q", ev.Op, ev.Table)
	}
	if ev.ID != "17" || ev.ApplicationID != "42" {
		t.Fatalf("unexpected ids %q/%q", ev.ID, ev.ApplicationID)
	}
	if ev.Channel != ChannelSMS || ev.Direction != DirectionInbound {
		t.Fatalf("unexpected channel/direction %q/%q", ev.Channel, ev.Direction)
	}
	if !ev.InboundSMS() {
		t.Fatal("expected inbound sms")
	}
	if ev.ContentText() != "Hej" {
		t.Fatalf("unexpected content %q", ev.ContentText())
	}
}

func TestDecodeChangeEventBarePayload(t *testing.T) {
	raw := `{"op":"c","source":{"table":"communication_logs"},
		"after":{"id":"01J9","type":"sms","direction":"outbound","content":null,"application_id":"7b0c"}}`

	ev, err := DecodeChangeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Content != nil || ev.ContentText() != "" {
		t.Fatalf("expected absent content, got %v", ev.Content)
	}
	if ev.ApplicationID != "7b0c" {
		t.Fatalf("unexpected application id %q", ev.ApplicationID)
	}
	if ev.InboundSMS() {
		t.Fatal("outbound event must not be inbound sms")
	}
}

func TestDecodeChangeEventRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":           `{"op":`,
		"unknown op":         `{"op":"x","source":{"table":"communication_logs"}}`,
		"insert without row": `{"op":"c","source":{"table":"communication_logs"}}`,
		"fractional ref":     `{"op":"c","after":{"application_id":1.5}}`,
	}
	for name, raw := range cases {
		if _, err := DecodeChangeEvent([]byte(raw)); !errors.Is(err, ErrMalformedEvent) {
			t.Errorf("%s: expected ErrMalformedEvent, got %v", name, err)
		}
	}
}

func TestDecodeChangeEventDeleteWithoutRow(t *testing.T) {
	ev, err := DecodeChangeEvent([]byte(`{"op":"d","source":{"table":"communication_logs"},"after":null}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Op != OpDelete || ev.InboundSMS() {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestEncodeInsertEventRoundTrip(t *testing.T) {
	content := "Ring mig"
	b, err := EncodeInsertEvent("communication_logs", CommunicationLog{
		ID:            "1",
		Type:          ChannelSMS,
		Direction:     DirectionInbound,
		Content:       &content,
		ApplicationID: "9",
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	ev, err := DecodeChangeEvent(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ev.InboundSMS() || ev.ApplicationID != "9" || ev.ContentText() != content {
		t.Fatalf("unexpected event %+v", ev)
	}
}
