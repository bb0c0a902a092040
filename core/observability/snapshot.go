package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Proto converts the snapshot to a protobuf Struct
func (s Snapshot) Proto() (*structpb.Struct, error) {
	responses := make(map[string]interface{}, len(s.Responses))
	for status, n := range s.Responses {
		responses[strconv.Itoa(status)] = n
	}

	bounds := LatencyBounds()
	latency := make(map[string]interface{}, len(s.Latency))
	for i, n := range s.Latency {
		key := "inf"
		if i < len(bounds) {
			key = "lt_" + bounds[i].String()
		}
		latency[key] = n
	}

	return structpb.NewStruct(map[string]interface{}{
		"uptime_seconds": s.Uptime.Seconds(),
		"accepted":       s.Accepted,
		"rejected":       s.Rejected,
		"closed":         s.Closed,
		"aborted":        s.Aborted,
		"active":         s.Active,
		"bytes_sent":     s.BytesSent,
		"responses":      responses,
		"latency":        latency,
		"pools": map[string]interface{}{
			"slot_acquires": s.SlotAcquires,
			"slot_releases": s.SlotReleases,
			"slot_rejects":  s.SlotRejects,
			"buffer_gets":   s.BufferGets,
			"buffer_puts":   s.BufferPuts,
			"buffer_allocs": s.BufferAllocs,
		},
	})
}

// MarshalJSON encodes the snapshot with protojson
func (s Snapshot) MarshalJSON() ([]byte, error) {
	msg, err := s.Proto()
	if err != nil {
		return nil, err
	}
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(msg)
}

// WriteFile stores the snapshot at path: protojson for a .json path,
// binary protobuf otherwise
func (s Snapshot) WriteFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = s.MarshalJSON()
	} else {
		var msg *structpb.Struct
		if msg, err = s.Proto(); err == nil {
			data, err = proto.Marshal(msg)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	return nil
}

// ReadFile loads a snapshot written by WriteFile as a protobuf Struct
func ReadFile(path string) (*structpb.Struct, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	msg := &structpb.Struct{}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = protojson.Unmarshal(data, msg)
	} else {
		err = proto.Unmarshal(data, msg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode stats: %w", err)
	}
	return msg, nil
}
