package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/elee1766/genstudio/src/model"
	"github.com/elee1766/genstudio/src/studio"
)

// JSONStringArray is a custom type for handling JSON arrays stored as strings in the database
type JSONStringArray []string

func (j *JSONStringArray) Scan(value interface{}) error {
	return scanJSON(value, j, func() { *j = []string{} })
}

func (j JSONStringArray) Value() (driver.Value, error) {
	return valueJSON(len(j), j)
}

// JSONSlots stores generation slots as a JSON array
type JSONSlots []studio.Slot

func (j *JSONSlots) Scan(value interface{}) error {
	return scanJSON(value, j, func() { *j = []studio.Slot{} })
}

func (j JSONSlots) Value() (driver.Value, error) {
	return valueJSON(len(j), j)
}

// JSONMessages stores a restored conversation as a JSON array
type JSONMessages []model.Message

func (j *JSONMessages) Scan(value interface{}) error {
	return scanJSON(value, j, func() { *j = []model.Message{} })
}

func (j JSONMessages) Value() (driver.Value, error) {
	return valueJSON(len(j), j)
}

func scanJSON(value interface{}, dst any, empty func()) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		empty()
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan type %T into %T", value, dst)
	}
	if len(data) == 0 || string(data) == "[]" || string(data) == "null" {
		empty()
		return nil
	}
	return json.Unmarshal(data, dst)
}

func valueJSON(n int, v any) (driver.Value, error) {
	if n == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
