package utils

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalID_Unmarshal(t *testing.T) {
	tests := []struct {
		in    string
		want  int
		valid bool
	}{
		{`3`, 3, true},
		{`"12"`, 12, true},
		{`-1`, 0, false},
		{`0`, 0, false},
		{`4294967296`, 0, false},
		{`1.5`, 0, false},
		{`"abc"`, 0, false},
		{`null`, 0, false},
		{`{"id":1}`, 0, false},
	}
	for _, tt := range tests {
		var doc struct {
			LocationID OptionalID `json:"location_id"`
			Name       string     `json:"name"`
		}
		err := json.Unmarshal([]byte(`{"location_id":`+tt.in+`,"name":"Kyl"}`), &doc)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.valid, doc.LocationID.Valid, tt.in)
		assert.Equal(t, tt.want, doc.LocationID.ID, tt.in)
		assert.Equal(t, "Kyl", doc.Name, "the rest of the document still decodes")
	}
}

func TestOptionalID_Ptr(t *testing.T) {
	assert.Nil(t, OptionalID{}.Ptr())
	p := SomeID(7).Ptr()
	require.NotNil(t, p)
	assert.Equal(t, 7, *p)

	b, err := json.Marshal([]OptionalID{SomeID(7), {}})
	require.NoError(t, err)
	assert.JSONEq(t, `[7,null]`, string(b))
}

func TestDueDateOrNever(t *testing.T) {
	assert.Equal(t, NeverExpires, DueDateOrNever(nil))
	d := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-10", DueDateOrNever(&d))

	got, err := ParseYMD("2024-01-10")
	require.NoError(t, err)
	assert.Equal(t, d, got)
}
