package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// StringList is a JSON-encoded list of strings stored in a single column.
type StringList []string

func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}

	return json.Unmarshal(bytes, s)
}

func (s StringList) Value() (driver.Value, error) {
	if len(s) == 0 {
		return json.Marshal([]string{})
	}
	return json.Marshal(s)
}

func (s StringList) Contains(v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}

// PermissionMap maps a subject class (currently only "other", the public
// slot) to the permission strings granted to that class.
type PermissionMap map[string]StringList

func (m *PermissionMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}

	return json.Unmarshal(bytes, m)
}

func (m PermissionMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(PermissionMap{})
	}
	return json.Marshal(m)
}
