package websocket

import (
	"encoding/json"
	"fmt"
)

const (
	FrameSnapshot = "snapshot"
	FrameError    = "error"
)

// Frame is one message on a snapshot stream: either the full list for an
// entity or an error that replaces it.
type Frame struct {
	Type   string            `json:"type"`
	Entity string            `json:"entity"`
	Items  []json.RawMessage `json:"items"`
	Error  string            `json:"error,omitempty"`
}

// NewSnapshotFrame encodes items as a snapshot frame.
func NewSnapshotFrame[T any](entity string, items []T) (Frame, error) {
	raw := make([]json.RawMessage, 0, len(items))
	for i, it := range items {
		b, err := json.Marshal(it)
		if err != nil {
			return Frame{}, fmt.Errorf("encode %s item %d: %w", entity, i, err)
		}
		raw = append(raw, b)
	}
	return Frame{Type: FrameSnapshot, Entity: entity, Items: raw}, nil
}

func NewErrorFrame(entity string, err error) Frame {
	return Frame{Type: FrameError, Entity: entity, Items: []json.RawMessage{}, Error: err.Error()}
}

// DecodeItems decodes a snapshot frame's items. Items that fail to decode
// are reported to skip and left out; the rest of the snapshot still applies.
func DecodeItems[T any](f Frame, skip func(index int, err error)) []T {
	items := make([]T, 0, len(f.Items))
	for i, raw := range f.Items {
		var it T
		if err := json.Unmarshal(raw, &it); err != nil {
			if skip != nil {
				skip(i, err)
			}
			continue
		}
		items = append(items, it)
	}
	return items
}
