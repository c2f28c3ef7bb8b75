package datatype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaGeneration(t *testing.T) {
	def := MustDefine("test_datatype", "DataChunk",
		Int("my_number"),
		Float("my_float"),
		String("my_string"),
		Boolean("my_boolean"),
		List("my_list", AtomicInt),
	)

	schema := def.Schema()
	assert.Equal(t, "test_datatype", schema["namespace"])
	assert.Equal(t, "DataChunk", schema["name"])
	assert.Equal(t, "record", schema["type"])
	assert.Equal(t, []any{
		map[string]any{"name": "my_number", "type": "int"},
		map[string]any{"name": "my_float", "type": "float"},
		map[string]any{"name": "my_string", "type": "string"},
		map[string]any{"name": "my_boolean", "type": "boolean"},
		map[string]any{"name": "my_list", "type": map[string]any{"type": "array", "items": "int"}},
	}, schema["fields"])
}

func TestDictAppliesDefaults(t *testing.T) {
	def := MustDefine("test_datatype", "DataChunk",
		Int("my_number"),
		StringDefault("my_string", "hello"),
	)

	dict, err := def.New(Values{"my_number": 0}).Dict()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"my_number": 0, "my_string": "hello"}, dict)
}

func TestDictAllDefaults(t *testing.T) {
	def := MustDefine("test_datatype", "DataChunk",
		IntDefault("my_number", 0),
		StringDefault("my_string", "hello"),
	)

	dict, err := def.New(nil).Dict()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"my_number": 0, "my_string": "hello"}, dict)
}

func TestDictMissingRequiredField(t *testing.T) {
	def := MustDefine("test_datatype", "DataChunk",
		Int("my_number"),
	)

	_, err := def.New(nil).Dict()
	assert.Error(t, err)
}

func TestListField(t *testing.T) {
	def := MustDefine("test_datatype", "DataChunk",
		List("my_list", AtomicString),
	)

	dict, err := def.New(Values{"my_list": []any{"hello", "world"}}).Dict()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"my_list": []any{"hello", "world"}}, dict)
}

func TestNestedRecordSchema(t *testing.T) {
	inner := MustDefine("test_datatype", "InnerChunk", Int("my_number"))
	outer := MustDefine("test_datatype", "DataChunk", Nested("my_data", inner))

	schema := outer.Schema()
	fields := schema["fields"].([]any)
	require.Len(t, fields, 1)
	assert.Equal(t, map[string]any{
		"name": "my_data",
		"type": map[string]any{
			"namespace": "test_datatype",
			"name":      "InnerChunk",
			"type":      "record",
			"fields": []any{
				map[string]any{"name": "my_number", "type": "int"},
			},
		},
	}, fields[0])
}

func TestListOfRecordSchema(t *testing.T) {
	inner := MustDefine("test_datatype", "InnerChunk", Int("my_number"))
	outer := MustDefine("test_datatype", "DataChunk", ListOf("my_list", inner))

	schema := outer.Schema()
	fields := schema["fields"].([]any)
	require.Len(t, fields, 1)
	field := fields[0].(map[string]any)
	arr := field["type"].(map[string]any)
	assert.Equal(t, "array", arr["type"])
	assert.Equal(t, "InnerChunk", arr["items"].(map[string]any)["name"])
}

func TestNestedRecordDict(t *testing.T) {
	inner := MustDefine("test_datatype", "InnerChunk", Int("my_number"))
	outer := MustDefine("test_datatype", "DataChunk", Nested("my_data", inner))

	dict, err := outer.New(Values{"my_data": inner.New(Values{"my_number": 10})}).Dict()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"my_data": map[string]any{"my_number": 10}}, dict)
}

func TestNonDefaultAfterDefaultRejected(t *testing.T) {
	_, err := Define("test_datatype", "DataChunk",
		IntDefault("my_number", 0),
		String("my_string"),
	)
	assert.Error(t, err)
}

func TestCoercion(t *testing.T) {
	def := MustDefine("test_datatype", "DataChunk",
		Int("n"),
		Float("f"),
	)

	dict, err := def.New(Values{"n": int64(7), "f": 1.5}).Dict()
	require.NoError(t, err)
	assert.Equal(t, 7, dict["n"])
	assert.Equal(t, float32(1.5), dict["f"])
}

func TestSchemaOverride(t *testing.T) {
	custom := map[string]any{"type": "record", "name": "X", "fields": []any{}}
	def := MustDefine("ns", "X").WithSchema(custom)
	assert.Equal(t, custom, def.Schema())
}
