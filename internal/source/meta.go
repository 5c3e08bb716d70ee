package source

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Meta is the decoded front matter of a source.
type Meta map[string]any

// String returns the value of key formatted as a string, or "".
func (m Meta) String(key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// Bool returns the boolean value of key, or def when missing or not a bool.
func (m Meta) Bool(key string, def bool) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Int returns the integer value of key, or def.
func (m Meta) Int(key string, def int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

// Strings returns key as a list. A scalar string becomes a one-element list;
// comma separated strings are not split.
func (m Meta) Strings(key string) []string {
	switch v := m[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

// Map returns a nested mapping for key, or nil.
func (m Meta) Map(key string) Meta {
	switch v := m[key].(type) {
	case map[string]any:
		return Meta(v)
	case Meta:
		return v
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Time returns key parsed as a timestamp. Both decoded YAML timestamps and
// strings in the common date layouts are accepted.
func (m Meta) Time(key string) (time.Time, bool) {
	switch v := m[key].(type) {
	case time.Time:
		return v, true
	case string:
		return ParseTime(v)
	}
	return time.Time{}, false
}

// ParseTime parses s with the date layouts accepted in front matter.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Clone returns a shallow copy of m.
func (m Meta) Clone() Meta {
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
