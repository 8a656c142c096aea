package config

import (
	"maps"
	"time"
)

// Config wraps a decoded configuration document.
// Accessors never fail: a missing key or a value of the wrong type yields the
// supplied default.
type Config struct {
	data map[string]any
}

// New creates a Config from the given map.
// If data is nil, an empty Config is returned.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

func lookup[T any](c Config, key string) (T, bool) {
	var zero T
	v, ok := c.data[key]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// String returns the string at key, or defaultVal.
func (c Config) String(key, defaultVal string) string {
	if s, ok := lookup[string](c, key); ok {
		return s
	}
	return defaultVal
}

// Bool returns the boolean at key, or defaultVal.
func (c Config) Bool(key string, defaultVal bool) bool {
	if b, ok := lookup[bool](c, key); ok {
		return b
	}
	return defaultVal
}

// Int returns the integer at key, or defaultVal.
// Floats are accepted only when they have no fractional part, which is how
// JSON documents deliver integers.
func (c Config) Int(key string, defaultVal int) int {
	switch v := c.data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	}
	return defaultVal
}

// Duration returns the duration at key, or defaultVal.
// Strings are parsed with time.ParseDuration; bare numbers are seconds.
func (c Config) Duration(key string, defaultVal time.Duration) time.Duration {
	switch v := c.data[key].(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case time.Duration:
		return v
	}
	return defaultVal
}

// StringSlice returns the string list at key, or defaultVal.
// A list containing anything other than strings yields defaultVal.
func (c Config) StringSlice(key string, defaultVal []string) []string {
	switch v := c.data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return defaultVal
			}
			out = append(out, s)
		}
		return out
	}
	return defaultVal
}

// StringMap returns the mapping at key, or nil when absent or not a mapping.
func (c Config) StringMap(key string) map[string]any {
	switch v := c.data[key].(type) {
	case map[string]any:
		return maps.Clone(v)
	case Config:
		return maps.Clone(v.data)
	}
	return nil
}

// Section returns the nested mapping at key as a Config.
// Missing or non-mapping values yield an empty Config.
func (c Config) Section(key string) Config {
	return New(c.StringMap(key))
}

// Sections returns each mapping in the list at key as a Config, skipping
// entries that are not mappings.
func (c Config) Sections(key string) []Config {
	items, ok := lookup[[]any](c, key)
	if !ok {
		return nil
	}
	out := make([]Config, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, New(m))
		}
	}
	return out
}

// Any returns the raw value at key, or defaultVal.
func (c Config) Any(key string, defaultVal any) any {
	if v, ok := c.data[key]; ok {
		return v
	}
	return defaultVal
}

// Has reports whether key is present.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Raw returns the underlying map. It must not be modified.
func (c Config) Raw() map[string]any {
	return c.data
}
