package cache

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// SearchKey derives a deterministic key from a query and its options.
// Options are rendered as "name:json(value)" sorted by name and joined by "|",
// so map iteration order never changes the key.
func SearchKey(query string, fields map[string]any) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+":"+encodeValue(fields[name]))
	}
	return "search:" + query + ":" + strings.Join(parts, "|")
}

// PaperKey is the cache key for a single paper or paper detail.
func PaperKey(id string) string {
	return "paper:" + id
}

func encodeValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
