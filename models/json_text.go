package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONText is a JSON document stored in a text/jsonb column. It is emitted
// as raw JSON in API responses instead of as a quoted string.
type JSONText string

func (j JSONText) MarshalJSON() ([]byte, error) {
	if j == "" {
		return []byte("null"), nil
	}
	if !json.Valid([]byte(j)) {
		return nil, fmt.Errorf("invalid JSON in JSONText: %q", string(j))
	}
	return []byte(j), nil
}

func (j *JSONText) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*j = ""
		return nil
	}
	*j = JSONText(data)
	return nil
}

func (j JSONText) Value() (driver.Value, error) {
	if j == "" {
		return "{}", nil
	}
	return string(j), nil
}

func (j *JSONText) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*j = ""
	case string:
		*j = JSONText(v)
	case []byte:
		*j = JSONText(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONText", src)
	}
	return nil
}
