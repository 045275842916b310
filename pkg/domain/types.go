package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type (
	CountriesJSON []string
	EvidenceJSON  map[string]interface{}
)

func (c CountriesJSON) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

func (c *CountriesJSON) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("expected []byte, got %T", value)
	}
	return json.Unmarshal(bytes, c)
}

// Contains reports membership using ISO country codes.
func (c CountriesJSON) Contains(code string) bool {
	for _, v := range c {
		if v == code {
			return true
		}
	}
	return false
}

func (e EvidenceJSON) Value() (driver.Value, error) {
	if e == nil {
		return nil, nil
	}
	return json.Marshal(e)
}

func (e *EvidenceJSON) Scan(value interface{}) error {
	if value == nil {
		*e = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("expected []byte, got %T", value)
	}
	return json.Unmarshal(bytes, e)
}
