package servo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var weatherSchema = map[string]any{
	"namespace": "test",
	"name":      "Weather",
	"type":      "record",
	"fields": []any{
		map[string]any{"name": "station", "type": "string"},
		map[string]any{"name": "time", "type": "long"},
		map[string]any{"name": "temp", "type": "int"},
	},
}

func TestSerializeKnownBytes(t *testing.T) {
	record := map[string]any{
		"station": "012650-99999",
		"time":    int64(1433275478),
		"temp":    111,
	}

	data, err := Serialize(record, weatherSchema)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x18012650-99999\xac\xb1\xf0\xd6\x0a\xde\x01"), data)
}

func TestDeserializeKnownBytes(t *testing.T) {
	data := []byte("\x18012650-99999\xac\xb1\xf0\xd6\x0a\xde\x01")

	record, err := Deserialize(data, weatherSchema)
	require.NoError(t, err)
	assert.Equal(t, "012650-99999", record["station"])
	assert.Equal(t, int64(1433275478), record["time"])
	assert.Equal(t, 111, record["temp"])
}

func TestRoundTrip(t *testing.T) {
	schema := map[string]any{
		"namespace": "test",
		"name":      "Point",
		"type":      "record",
		"fields": []any{
			map[string]any{"name": "x", "type": "int"},
			map[string]any{"name": "y", "type": "int"},
		},
	}
	record := map[string]any{"x": 1, "y": 2}

	data, err := Serialize(record, schema)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x04}, data)

	back, err := Deserialize(data, schema)
	require.NoError(t, err)
	assert.Equal(t, record, back)
}

func TestSerializeRejectsBadSchema(t *testing.T) {
	_, err := SerializeWithSchemaJSON(map[string]any{}, "{not json")
	assert.Error(t, err)
}
