package storage

import (
	"fmt"

	json "github.com/segmentio/encoding/json"
)

// marshalJSON and unmarshalJSON centralize the fast-JSON encoding used for
// every array/object column (contained_fact_ids, indexed_document_ids,
// settings, a persisted QueryResult) — SQLite has no native array type.
func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("storage: marshal: %w", err)
	}
	return string(b), nil
}

func unmarshalJSON[T any](s string) (T, error) {
	var out T
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return out, fmt.Errorf("storage: unmarshal: %w", err)
	}
	return out, nil
}
