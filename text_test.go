package textsteg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zedseven/textsteg"
)

func TestTextToPayload_Latin1(t *testing.T) {
	b, err := textsteg.TextToPayload("café")
	require.NoError(t, err)
	assert.Equal(t, []byte{'c', 'a', 'f', 0xe9}, b)
	assert.Equal(t, "café", textsteg.PayloadToText(b))
}

func TestTextToPayload_RejectsWideRunes(t *testing.T) {
	_, err := textsteg.TextToPayload("日本")
	var fmtErr *textsteg.InvalidFormatError
	require.ErrorAs(t, err, &fmtErr)
}

func TestEncodeText_RoundTrip(t *testing.T) {
	grid := textsteg.NewGrid(10, 10)
	_, err := textsteg.EncodeText(grid, "¡Hola, señor!")
	require.NoError(t, err)

	got, err := textsteg.DecodeText(grid)
	require.NoError(t, err)
	assert.Equal(t, "¡Hola, señor!", got)
}

func TestEncodeText_RejectsBeforeTouchingGrid(t *testing.T) {
	grid := textsteg.NewGrid(10, 10)
	grid.Pix[0] = textsteg.Pixel{9, 9, 9}
	before := grid.Clone()

	_, err := textsteg.EncodeText(grid, "ok 🙂")
	require.Error(t, err)
	assert.Equal(t, before, grid)
}

func TestDecodeText_Partial(t *testing.T) {
	got, err := textsteg.DecodeText(textsteg.NewGrid(3, 1))
	var mtErr *textsteg.MissingTerminatorError
	require.ErrorAs(t, err, &mtErr)
	assert.Equal(t, "\x00", got)
}
