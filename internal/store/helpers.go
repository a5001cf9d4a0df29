package store

import (
	"encoding/json"
	"log/slog"
)

// marshalMap serializes a string map for a nullable text column. Empty maps
// store as the empty string.
func marshalMap(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	data, err := json.Marshal(m)
	if err != nil {
		// map[string]string cannot fail to marshal; keep the row writable.
		slog.Error("store failed to marshal map column", "error", err)
		return ""
	}
	return string(data)
}

// unmarshalMap deserializes a text column back into a map. Corrupt JSON is
// logged and yields an empty map rather than failing the read.
func unmarshalMap(s string) map[string]string {
	if s == "" {
		return nil
	}
	m := make(map[string]string)
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		slog.Error("store failed to unmarshal map column", "error", err)
		return nil
	}
	return m
}
