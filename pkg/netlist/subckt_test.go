package netlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const driverLibrary = `* Tweeter library
* FS: 1.2k Hz
* QTS: 0.35
* MFR: Acme
.SUBCKT TW25 p n
R1 p 1 6.0
L1 1 n 0.05m
.ENDS TW25

* orphan: meta
R9 a b 1
.subckt WOOF a b params: re=6
.subckt INNER x y
R1 x y 1
.ends INNER
R2 a b {re}
.ends WOOF
.subckt BROKEN a b
R1 a b 1
`

func TestParseLibrary(t *testing.T) {
	blocks, errs := ParseLibrary(driverLibrary)

	require.Len(t, blocks, 2)
	tw := blocks[0]
	assert.Equal(t, "TW25", tw.Name)
	assert.Equal(t, []string{"p", "n"}, tw.Ports)
	assert.Equal(t, []string{"R1 p 1 6.0", "L1 1 n 0.05m"}, tw.Body)
	assert.Equal(t, map[string]string{"fs": "1.2k Hz", "qts": "0.35", "mfr": "Acme"}, tw.Metadata)
	assert.Equal(t, 5, tw.Line)

	woof := blocks[1]
	assert.Equal(t, "WOOF", woof.Name)
	assert.Nil(t, woof.Metadata, "metadata does not carry across an unrelated statement")
	assert.Equal(t, []Param{{Key: "re", Value: "6"}}, woof.Defaults)
	assert.Equal(t, []string{
		".subckt INNER x y",
		"R1 x y 1",
		".ends INNER",
		"R2 a b {re}",
	}, woof.Body)

	require.Len(t, errs, 1)
	assert.Equal(t, "BROKEN", errs[0].Name)
	assert.ErrorContains(t, errs[0], "no matching .ends")
}

func TestParseSubcktHeader(t *testing.T) {
	block, err := parseSubcktHeader(".subckt amp in out vcc params: gain=10 rin=1k")
	require.NoError(t, err)
	assert.Equal(t, "amp", block.Name)
	assert.Equal(t, []string{"in", "out", "vcc"}, block.Ports)
	assert.Len(t, block.Defaults, 2)

	block, err = parseSubcktHeader(".subckt amp in out gain=10")
	require.NoError(t, err)
	assert.Equal(t, []string{"in", "out"}, block.Ports)
	assert.Equal(t, []Param{{Key: "gain", Value: "10"}}, block.Defaults)

	_, err = parseSubcktHeader(".subckt")
	assert.Error(t, err)

	_, err = parseSubcktHeader(".subckt amp in gain=1 out")
	assert.ErrorContains(t, err, "after parameters")
}

func TestMetadataComment(t *testing.T) {
	key, value, ok := metadataComment("* FS: 25 Hz")
	require.True(t, ok)
	assert.Equal(t, "fs", key)
	assert.Equal(t, "25 Hz", value)

	_, _, ok = metadataComment("* just a note")
	assert.False(t, ok)

	_, _, ok = metadataComment("* two words: no")
	assert.False(t, ok)
}
