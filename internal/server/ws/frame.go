package ws

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

// Frame types.
const (
	FrameEvent  = "desk_event"
	FrameStatus = "desk_status"
)

// EncodeEvent renders ev as a protobuf Struct:
//
//	{type: "desk_event", channel: "desk:<category>", payload: <event JSON>}
func EncodeEvent(ev domain.DeskEvent) ([]byte, error) {
	return encodeFrame(FrameEvent, domain.EventChannel(ev.Category), ev)
}

// EncodeStatus renders a status snapshot frame.
func EncodeStatus(st domain.DeskStatus) ([]byte, error) {
	return encodeFrame(FrameStatus, "", st)
}

// DecodeFrame parses a binary frame back into a generic map.
func DecodeFrame(b []byte) (map[string]any, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("ws: decode frame: %w", err)
	}
	return s.AsMap(), nil
}

func encodeFrame(typ, channel string, payload any) ([]byte, error) {
	// structpb only takes plain JSON shapes, so the payload goes through a
	// JSON round trip first.
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ws: encode %s payload: %w", typ, err)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("ws: encode %s payload: %w", typ, err)
	}

	fields := map[string]any{"type": typ, "payload": generic}
	if channel != "" {
		fields["channel"] = channel
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("ws: build %s frame: %w", typ, err)
	}
	b, err := proto.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("ws: marshal %s frame: %w", typ, err)
	}
	return b, nil
}
