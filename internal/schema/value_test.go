package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		dataType string
		want     FieldValue
	}{
		{"nil is null", nil, TypeString, Null()},
		{"number passthrough", 123.45, TypeNumber, Number(123.45)},
		{"numeric string", "123.45", TypeNumber, Number(123.45)},
		{"thousands separators", "1,234.50", TypeNumber, Number(1234.5)},
		{"empty numeric string", "  ", TypeNumber, Null()},
		{"unparsable number degrades", "N/A", TypeNumber, String("N/A")},
		{"iso date", "2024-01-15", TypeDate, DateOf(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))},
		{"unparsable date degrades", "Jan sometime", TypeDate, String("Jan sometime")},
		{"string passthrough", "ACME Corp", TypeString, String("ACME Corp")},
		{"bool becomes string", true, TypeString, String("true")},
		{"number under string type stays number", 7.0, TypeString, Number(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CoerceValue(tt.raw, tt.dataType))
		})
	}
}

func TestFieldValueDisplay(t *testing.T) {
	assert.Equal(t, "", Null().Display())
	assert.Equal(t, "42.5", Number(42.5).Display())
	assert.Equal(t, "100", Number(100).Display())
	assert.Equal(t, "hello", String("hello").Display())

	// Midnight keeps the clock so date columns render uniformly.
	dateOnly := DateOf(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-03-01 00:00:00", dateOnly.Display())

	stamped := DateOf(time.Date(2024, 3, 1, 14, 30, 5, 0, time.UTC))
	assert.Equal(t, "2024-03-01 14:30:05", stamped.Display())
}

func TestFieldValueJSONRoundTrip(t *testing.T) {
	values := map[string]FieldValue{
		"null":   Null(),
		"string": String("ACME"),
		"number": Number(99.9),
		"date":   DateOf(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)),
	}

	data, err := json.Marshal(values)
	require.NoError(t, err)

	var back map[string]FieldValue
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, values, back)
}
