// Package models - jsonmap.go provides the JSONB column type shared by audit
// entries and analytics events.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap is a JSON object stored in a JSONB column.
type JSONMap map[string]any

// Value implements driver.Valuer. A nil map is stored as an empty object.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(m))
}

// Scan implements sql.Scanner. Older writers stored the object as a JSON
// string holding its serialized form; that encoding is unwrapped once.
func (m *JSONMap) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", src)
	}

	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return fmt.Errorf("decode jsonb: %w", err)
		}
		raw = []byte(inner)
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode jsonb: %w", err)
	}
	*m = out
	return nil
}
