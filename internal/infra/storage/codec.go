package storage

import (
	"bytes"
	"encoding/json"

	domain "github.com/bryanwahyu/phishguard/internal/domain/assessment"
)

// decodeHistory parses a stored history document. Empty or malformed
// documents are treated as an empty history.
func decodeHistory(data []byte) ([]*domain.HistoryEntry, bool) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []*domain.HistoryEntry{}, true
	}
	var list []*domain.HistoryEntry
	if err := json.Unmarshal(data, &list); err != nil {
		return []*domain.HistoryEntry{}, false
	}
	out := list[:0]
	for _, e := range list {
		if e != nil {
			out = append(out, e)
		}
	}
	return out, true
}

func encodeHistory(list []*domain.HistoryEntry) ([]byte, error) {
	if list == nil {
		list = []*domain.HistoryEntry{}
	}
	return json.MarshalIndent(list, "", "  ")
}

func prepend(list []*domain.HistoryEntry, e *domain.HistoryEntry) []*domain.HistoryEntry {
	out := make([]*domain.HistoryEntry, 0, len(list)+1)
	out = append(out, e)
	return append(out, list...)
}
