package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// cleanJSONResponse strips code fences and any prose around the outermost
// JSON array or object.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.IndexAny(content, "[{")
	if start < 0 {
		return content
	}
	closer := "}"
	if content[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(content, closer)
	if end > start {
		content = content[start : end+1]
	}
	return content
}

// parseNewsItems accepts a bare array, an object with a single array-valued
// key ({"articles": [...]}) or a single item object.
func parseNewsItems(content string) ([]NewsItem, error) {
	content = cleanJSONResponse(content)

	var items []NewsItem
	if err := json.Unmarshal([]byte(content), &items); err == nil {
		return items, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, content: %s", err, content)
	}

	if _, ok := obj["title"]; ok {
		var one NewsItem
		if err := json.Unmarshal([]byte(content), &one); err != nil {
			return nil, fmt.Errorf("failed to parse item: %w", err)
		}
		return []NewsItem{one}, nil
	}

	var arrays []json.RawMessage
	for _, v := range obj {
		if t := strings.TrimSpace(string(v)); strings.HasPrefix(t, "[") {
			arrays = append(arrays, v)
		}
	}
	if len(arrays) != 1 {
		return nil, fmt.Errorf("expected one array in response object, found %d", len(arrays))
	}
	if err := json.Unmarshal(arrays[0], &items); err != nil {
		return nil, fmt.Errorf("failed to parse items: %w", err)
	}
	return items, nil
}

func limitItems(items []NewsItem, max int) []NewsItem {
	if max > 0 && len(items) > max {
		return items[:max]
	}
	return items
}
