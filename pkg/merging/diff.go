package merging

import (
	"encoding/json"
	"sort"
	"strings"
)

// equalIgnoring reports whether two entities carry the same data once the
// excluded top-level fields are removed. Both values are reduced to a
// canonical JSON form (sorted keys, no insignificant whitespace) so that
// nested lists and objects compare by value regardless of field order.
func equalIgnoring(a, b any, exclude map[string]bool) bool {
	return canonicalJSON(a, exclude) == canonicalJSON(b, exclude)
}

// canonicalJSON renders v as a deterministic JSON string with the given
// top-level fields dropped. Exclusions only apply to the outermost object;
// nested structures are rendered in full.
func canonicalJSON(v any, exclude map[string]bool) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return string(raw)
	}

	var sb strings.Builder
	writeCanonical(&sb, decoded, exclude)
	return sb.String()
}

func writeCanonical(sb *strings.Builder, data any, exclude map[string]bool) {
	switch v := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			if exclude[k] {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			keyJSON, _ := json.Marshal(k)
			sb.Write(keyJSON)
			sb.WriteByte(':')
			// exclusions are top-level only
			writeCanonical(sb, v[k], nil)
		}
		sb.WriteByte('}')
	case []any:
		sb.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCanonical(sb, item, nil)
		}
		sb.WriteByte(']')
	default:
		b, _ := json.Marshal(v)
		sb.Write(b)
	}
}
