package data

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap maps a JSONB column to a Go map. A nil map round-trips as SQL NULL.
type JSONMap map[string]any

// Value implements the driver.Valuer interface.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}

	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshalling JSONMap: %w", err)
	}
	return jsonBytes, nil
}

var _ driver.Valuer = (JSONMap)(nil)

// Scan implements the sql.Scanner interface.
func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}

	var jsonBytes []byte
	switch v := src.(type) {
	case []byte:
		jsonBytes = v
	case string:
		jsonBytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", src)
	}

	if err := json.Unmarshal(jsonBytes, m); err != nil {
		return fmt.Errorf("unmarshalling JSONMap: %w", err)
	}
	return nil
}

var _ sql.Scanner = (*JSONMap)(nil)
