package database

import (
	"encoding/json"
	"fmt"
)

// ID lists and emoji lists are stored as JSON text columns.

func marshalInt64s(v []int64) (string, error) {
	if v == nil {
		v = []int64{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshalling id list: %w", err)
	}
	return string(b), nil
}

func unmarshalInt64s(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	var v []int64
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("unmarshalling id list: %w", err)
	}
	return v, nil
}

func marshalStrings(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshalling string list: %w", err)
	}
	return string(b), nil
}

func unmarshalStrings(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var v []string
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("unmarshalling string list: %w", err)
	}
	return v, nil
}
