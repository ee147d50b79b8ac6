package typeconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbal/internal/schema"
)

func TestToParamBoolean(t *testing.T) {
	f := &schema.Field{Name: "active", Type: schema.TypeBoolean}
	v, err := ToParam(f, true)
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	v, err = ToParam(f, false)
	require.NoError(t, err)
	assert.Equal(t, "0", v)
}

func TestToParamInteger(t *testing.T) {
	f := &schema.Field{Name: "count", Type: schema.TypeNumber}
	v, err := ToParam(f, float64(42))
	require.NoError(t, err)
	assert.Equal(t, "42", v)
}

func TestToParamNull(t *testing.T) {
	f := &schema.Field{Name: "title", Type: schema.TypeString}
	v, err := ToParam(f, nil)
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestToParamJSON(t *testing.T) {
	f := &schema.Field{Name: "payload", Type: schema.TypeJSON}
	v, err := ToParam(f, map[string]any{"a": float64(1)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, v)
}

func TestToParamRejectsWrongType(t *testing.T) {
	f := &schema.Field{Name: "active", Type: schema.TypeBoolean}
	_, err := ToParam(f, "yes")
	require.Error(t, err)
}

func TestGenerateValueUUID(t *testing.T) {
	f := &schema.Field{Name: "id", Type: schema.TypeUUID}
	v, ok := GenerateValue(f)
	require.True(t, ok)
	assert.NotEmpty(t, v)
}

func TestGenerateValueUnsupportedType(t *testing.T) {
	f := &schema.Field{Name: "id", Type: schema.TypeInteger}
	_, ok := GenerateValue(f)
	assert.False(t, ok)
}
