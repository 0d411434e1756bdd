// Package config defines the JSON pipeline configuration model.
package config

import (
	"encoding/json"
	"strings"
)

// Pipeline is the top-level configuration for one ETL run.
type Pipeline struct {
	Job     string  `json:"job"`
	Source  Source  `json:"source"`
	Parser  Parser  `json:"parser"`
	Storage Storage `json:"storage"`
	Runtime Runtime `json:"runtime"`
}

// Source describes where raw rows come from.
type Source struct {
	Kind string `json:"kind"` // "file"
	File File   `json:"file"`
}

// File points at a local input file.
type File struct {
	Path string `json:"path"`
}

// Parser selects and configures the raw-row parser.
type Parser struct {
	Kind    string  `json:"kind"` // "csv" or "html"
	Options Options `json:"options"`
}

// Storage selects the destination backend.
//
// DSN supports ${ENV_VAR} expansion so credentials stay out of config files.
type Storage struct {
	Kind string `json:"kind"` // "postgres", "sqlite", "mssql"
	DSN  string `json:"dsn"`
}

// Runtime holds knobs that shape execution rather than semantics.
type Runtime struct {
	BatchSize int `json:"batch_size"`
}

// Options is a free-form configuration bag with typed accessors.
//
// Accessors are nil-safe and fall back to the given default when the key is
// absent or the value has the wrong shape.
type Options map[string]any

// UnmarshalJSON tolerates a JSON null by leaving the map nil.
func (o *Options) UnmarshalJSON(data []byte) error {
	if strings.TrimSpace(string(data)) == "null" {
		*o = nil
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*o = m
	return nil
}

// Any returns the raw value for key, or nil.
func (o Options) Any(key string) any {
	if o == nil {
		return nil
	}
	return o[key]
}

// String returns a string option or def.
func (o Options) String(key, def string) string {
	if v, ok := o.Any(key).(string); ok {
		return v
	}
	return def
}

// Bool returns a bool option or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o.Any(key).(bool); ok {
		return v
	}
	return def
}

// Int returns an int option or def. JSON numbers decode as float64, so both
// shapes are accepted.
func (o Options) Int(key string, def int) int {
	switch v := o.Any(key).(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// Rune returns the first rune of a one-character string option, or def.
func (o Options) Rune(key string, def rune) rune {
	s, ok := o.Any(key).(string)
	if !ok || s == "" {
		return def
	}
	return []rune(s)[0]
}

// StringMap returns a map[string]string option. Values with a non-string
// shape are skipped. Returns nil when the key is absent.
func (o Options) StringMap(key string) map[string]string {
	raw, ok := o.Any(key).(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
