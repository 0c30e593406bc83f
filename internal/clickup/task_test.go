package clickup

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawNumberForms(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *float64
	}{
		{"json number", `0.95`, ptr(0.95)},
		{"numeric string", `"1.25"`, ptr(1.25)},
		{"integer string", `"150000"`, ptr(150000)},
		{"empty string", `""`, nil},
		{"non-numeric string", `"n/a"`, nil},
		{"object", `{"a": 1}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rawNumber(json.RawMessage(tt.raw))
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestFieldPercentNestedAndBare(t *testing.T) {
	fields := []customField{
		{Name: FieldPlanProgress, Value: json.RawMessage(`{"percent_completed": 62.5}`)},
		{Name: FieldActualProgress, Value: json.RawMessage(`55`)},
	}

	plan := fieldPercent(fields, FieldPlanProgress)
	require.NotNil(t, plan)
	assert.Equal(t, 62.5, *plan)

	actual := fieldPercent(fields, FieldActualProgress)
	require.NotNil(t, actual)
	assert.Equal(t, 55.0, *actual)

	assert.Nil(t, fieldPercent(fields, FieldSPI), "absent field stays nil")
}

func TestEpochDateTruncatesToCalendarDay(t *testing.T) {
	// 2024-03-04T15:42:07Z in epoch milliseconds.
	raw := json.RawMessage(`1709566927000`)

	got := epochDate(raw)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), *got)
}

func TestEpochDateAbsentValues(t *testing.T) {
	assert.Nil(t, epochDate(nil))
	assert.Nil(t, epochDate(json.RawMessage(`null`)))
	assert.Nil(t, epochDate(json.RawMessage(`""`)))
}

func TestLookupFieldSkipsNull(t *testing.T) {
	fields := []customField{
		{Name: FieldRateCard, Value: json.RawMessage(`null`)},
		{Name: FieldSPI, Value: nil},
	}
	_, ok := lookupField(fields, FieldRateCard)
	assert.False(t, ok)
	_, ok = lookupField(fields, FieldSPI)
	assert.False(t, ok)
}

func TestCompletedLabels(t *testing.T) {
	tests := []struct {
		label *string
		want  bool
	}{
		{ptrStr("complete"), true},
		{ptrStr("Complete"), true},
		{ptrStr("closed"), true},
		{ptrStr("in progress"), false},
		{ptrStr("open"), false},
		{nil, false},
	}
	for _, tt := range tests {
		state := TaskState{StatusLabel: tt.label}
		assert.Equal(t, tt.want, state.Completed())
	}
}

func TestNormalizeEmptyPayload(t *testing.T) {
	var p taskPayload
	state := p.normalize()

	assert.Nil(t, state.Title, "empty name must not become an empty-string title")
	assert.Nil(t, state.StatusLabel)
	assert.Nil(t, state.StartDate)
	assert.Nil(t, state.RateCard)
}

func ptr(v float64) *float64  { return &v }
func ptrStr(s string) *string { return &s }
