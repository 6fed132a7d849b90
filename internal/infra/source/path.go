package source

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a dotted path. Index steps carry IsIndex.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// ParsePath splits "data.items[0].name" into key and index segments
func ParsePath(path string) ([]Segment, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	var segs []Segment
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, fmt.Errorf("empty segment in path %q", path)
		}
		key := part
		rest := ""
		if i := strings.IndexByte(part, '['); i >= 0 {
			key, rest = part[:i], part[i:]
		}
		if key != "" {
			segs = append(segs, Segment{Key: key})
		}
		for rest != "" {
			end := strings.IndexByte(rest, ']')
			if rest[0] != '[' || end < 0 {
				return nil, fmt.Errorf("malformed index in path %q", path)
			}
			idx, err := strconv.Atoi(rest[1:end])
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("invalid index %q in path %q", rest[1:end], path)
			}
			segs = append(segs, Segment{Index: idx, IsIndex: true})
			rest = rest[end+1:]
		}
	}
	return segs, nil
}

// Walk resolves segs against a decoded JSON value
func Walk(v any, segs []Segment) (any, bool) {
	cur := v
	for _, s := range segs {
		if s.IsIndex {
			arr, ok := cur.([]any)
			if !ok || s.Index >= len(arr) {
				return nil, false
			}
			cur = arr[s.Index]
			continue
		}
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := obj[s.Key]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}
