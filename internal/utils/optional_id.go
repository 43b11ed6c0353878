package utils

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// OptionalID is a reference id that the inventory backend may leave unset by
// sending -1. Any value outside 1..MaxInt32, and any non-number, decodes as
// absent instead of failing the whole document.
type OptionalID struct {
	ID    int
	Valid bool
}

func SomeID(id int) OptionalID {
	return OptionalID{ID: id, Valid: true}
}

func (o OptionalID) Ptr() *int {
	if !o.Valid {
		return nil
	}
	id := o.ID
	return &id
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	*o = OptionalID{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	// some endpoints quote their ids
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		data = []byte(s)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil || n < 1 || n > math.MaxInt32 {
		return nil
	}
	*o = SomeID(int(n))
	return nil
}

func (o OptionalID) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(o.ID)), nil
}
