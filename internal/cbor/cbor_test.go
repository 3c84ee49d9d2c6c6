package cbor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name string
	Tags map[string]uint64
}

func TestEncodeDeterministic(t *testing.T) {
	r := record{Name: "x", Tags: map[string]uint64{"b": 2, "a": 1, "c": 3}}
	first, err := Encode(r)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Encode(r)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	var decoded record
	require.NoError(t, Decode(first, &decoded))
	assert.Equal(t, r, decoded)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	data, err := Encode(map[string]interface{}{"Name": "x", "Extra": 1})
	require.NoError(t, err)

	var decoded record
	assert.Error(t, Decode(data, &decoded))
}
