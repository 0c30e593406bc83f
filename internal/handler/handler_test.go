package handler

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateUnmarshal(t *testing.T) {
	var payload struct {
		Start Date `json:"start_date"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"start_date": "2024-01-15"}`), &payload))
	require.NotNil(t, payload.Start.Time)
	assert.Equal(t, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), *payload.Start.Time)

	payload.Start = Date{}
	require.NoError(t, json.Unmarshal([]byte(`{"start_date": ""}`), &payload))
	assert.Nil(t, payload.Start.Time, "empty string means absent")

	assert.Error(t, json.Unmarshal([]byte(`{"start_date": "15/01/2024"}`), &payload))
}

func TestNumberUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *float64
		err  bool
	}{
		{"number", `1.25`, fptr(1.25), false},
		{"numeric string", `"42.5"`, fptr(42.5), false},
		{"empty string means null", `""`, nil, false},
		{"explicit null", `null`, nil, false},
		{"garbage string", `"abc"`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Number
			err := json.Unmarshal([]byte(tt.raw), &n)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, n.Value)
				return
			}
			require.NotNil(t, n.Value)
			assert.Equal(t, *tt.want, *n.Value)
		})
	}
}

func fptr(v float64) *float64 { return &v }
