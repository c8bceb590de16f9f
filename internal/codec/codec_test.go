package codec_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zedseven/textsteg/internal/codec"
)

type item struct {
	ID   int64  `json:"id" msgpack:"id"`
	Name string `json:"name" msgpack:"name"`
}

func TestJSONCodec(t *testing.T) {
	c := codec.JSON{}
	orig := item{ID: 1, Name: "encoded_cat.png"}
	b, err := c.Marshal(orig)
	require.NoError(t, err)

	var got item
	require.NoError(t, c.Unmarshal(b, &got))
	assert.Equal(t, orig, got)
	assert.Equal(t, "json", c.Name())
}

func TestMsgPackCodec(t *testing.T) {
	c := codec.MsgPack{}
	orig := item{ID: 42, Name: "pack"}
	b, err := c.Marshal(orig)
	require.NoError(t, err)

	var got item
	require.NoError(t, c.Unmarshal(b, &got))
	assert.Equal(t, orig, got)
	assert.Equal(t, "msgpack", c.Name())
}

func TestZstdCodec_Compresses(t *testing.T) {
	c := codec.Zstd{Inner: codec.JSON{}}
	orig := item{ID: 7, Name: string(bytes.Repeat([]byte("hidden "), 200))}
	b, err := c.Marshal(orig)
	require.NoError(t, err)

	plain, err := codec.JSON{}.Marshal(orig)
	require.NoError(t, err)
	assert.Less(t, len(b), len(plain))

	var got item
	require.NoError(t, c.Unmarshal(b, &got))
	assert.Equal(t, orig, got)
	assert.Equal(t, "json+zstd", c.Name())
}

func TestZstdCodec_RejectsCorruptData(t *testing.T) {
	var got item
	assert.Error(t, codec.Default.Unmarshal([]byte("definitely not zstd"), &got))
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "msgpack", "msgpack+zstd"} {
		c, ok := codec.ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
	}
	_, ok := codec.ByName("gob")
	assert.False(t, ok)
}
