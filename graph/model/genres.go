package model

import (
	"database/sql/driver"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Genres is stored as a jsonb array so it can be matched with the @> operator.
type Genres []string

func (g Genres) Value() (driver.Value, error) {
	if g == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(g))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (g *Genres) Scan(src interface{}) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*g = Genres{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported genres value %T", src)
	}
	var genres []string
	if err := json.Unmarshal(b, &genres); err != nil {
		return err
	}
	if genres == nil {
		genres = []string{}
	}
	*g = genres
	return nil
}
