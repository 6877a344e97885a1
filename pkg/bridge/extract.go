package bridge

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ExtractField walks the provider payload looking up each candidate path in
// order and returns the first non-null value found. Paths are dot-separated
// for nested objects ("delivery.scheduled_at"). The same lookup serves
// classification, dashboard rows and CSV export, so the fallback order lives
// in exactly one place.
func ExtractField(raw json.RawMessage, paths ...string) (interface{}, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false
	}
	for _, path := range paths {
		if v, ok := lookupPath(payload, path); ok {
			return v, true
		}
	}
	return nil, false
}

func lookupPath(payload map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = payload
	for _, part := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// ExtractString is ExtractField for callers that want a display value: numbers
// are formatted, everything else non-string comes back as empty.
func ExtractString(raw json.RawMessage, paths ...string) string {
	v, ok := ExtractField(raw, paths...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// ExtractTime resolves a timestamp through the fallback paths. The upstream
// is inconsistent about formats: RFC 3339, "2006-01-02 15:04:05" and unix
// epoch numbers all occur in the wild.
func ExtractTime(raw json.RawMessage, paths ...string) (time.Time, bool) {
	v, ok := ExtractField(raw, paths...)
	if !ok {
		return time.Time{}, false
	}
	return parseWhen(v)
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseWhen(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		if epoch, err := strconv.ParseInt(s, 10, 64); err == nil {
			return epochToTime(epoch), true
		}
		return time.Time{}, false
	case float64:
		return epochToTime(int64(t)), true
	default:
		return time.Time{}, false
	}
}

func epochToTime(epoch int64) time.Time {
	// Millisecond epochs show up on some webhook payloads.
	if epoch > 1e12 {
		return time.UnixMilli(epoch).UTC()
	}
	return time.Unix(epoch, 0).UTC()
}
