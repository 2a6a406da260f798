package netlist

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/spicelib/pkg/device"
)

func TestParseElementPassive(t *testing.T) {
	elem, err := ParseElement("R1 a b 4.7k tc1=0.001")
	require.NoError(t, err)

	assert.Equal(t, device.Resistor, elem.Kind)
	assert.Equal(t, "R1", elem.Name)
	assert.Equal(t, []string{"a", "b"}, elem.Nodes)
	require.NotNil(t, elem.Value)
	assert.InDelta(t, 4700, *elem.Value, 1e-9)

	params, ok := elem.Params.(PassiveParams)
	require.True(t, ok)
	require.NotNil(t, params.TC1)
	assert.InDelta(t, 0.001, *params.TC1, 1e-15)
	assert.Nil(t, params.TC2)
	assert.Empty(t, elem.Extra)
}

func TestParseElementCapacitorInitialCondition(t *testing.T) {
	elem, err := ParseElement("c1 a 0 10u IC = 0.5")
	require.NoError(t, err)

	assert.Equal(t, device.Capacitor, elem.Kind)
	params := elem.Params.(PassiveParams)
	require.NotNil(t, params.IC)
	assert.Equal(t, 0.5, *params.IC)
}

func TestParseElementValueKey(t *testing.T) {
	elem, err := ParseElement("L1 a b l=1m")
	require.NoError(t, err)
	require.NotNil(t, elem.Value)
	assert.InDelta(t, 1e-3, *elem.Value, 1e-18)
}

func TestParseElementSources(t *testing.T) {
	t.Run("dc and ac", func(t *testing.T) {
		elem, err := ParseElement("V1 in 0 DC 5 AC 1 90")
		require.NoError(t, err)

		assert.Equal(t, device.VoltageSource, elem.Kind)
		require.NotNil(t, elem.Value)
		assert.Equal(t, 5.0, *elem.Value)

		params := elem.Params.(SourceParams)
		require.NotNil(t, params.AC)
		assert.Equal(t, ACSpec{Mag: 1, Phase: 90}, *params.AC)
	})

	t.Run("bare dc value", func(t *testing.T) {
		elem, err := ParseElement("I1 0 n 2m")
		require.NoError(t, err)
		require.NotNil(t, elem.Value)
		assert.InDelta(t, 2e-3, *elem.Value, 1e-18)
	})

	t.Run("waveform", func(t *testing.T) {
		elem, err := ParseElement("V2 in 0 SIN(0 1 1k)")
		require.NoError(t, err)

		assert.Nil(t, elem.Value)
		params := elem.Params.(SourceParams)
		assert.Equal(t, "SIN", params.Waveform)
		assert.Equal(t, []float64{0, 1, 1000}, params.Args)
		assert.True(t, HasRequired(elem))
	})

	t.Run("missing dc value", func(t *testing.T) {
		_, err := ParseElement("V1 a b DC")
		var unrecognized *UnrecognizedLineError
		require.True(t, errors.As(err, &unrecognized))
	})

	t.Run("second bare value", func(t *testing.T) {
		_, err := ParseElement("V1 a b 1 2")
		var malformed *MalformedNumberError
		require.True(t, errors.As(err, &malformed))
		assert.Equal(t, "2", malformed.Token)
	})
}

func TestParseElementControlled(t *testing.T) {
	elem, err := ParseElement("E1 out 0 in 0 10")
	require.NoError(t, err)
	assert.Equal(t, device.VCVS, elem.Kind)
	assert.Len(t, elem.Nodes, 4)
	gain := elem.Params.(GainParams).Gain
	require.NotNil(t, gain)
	assert.Equal(t, 10.0, *gain)

	elem, err = ParseElement("G1 out 0 in 0 gain=2m")
	require.NoError(t, err)
	assert.Equal(t, device.VCCS, elem.Kind)
	gain = elem.Params.(GainParams).Gain
	require.NotNil(t, gain)
	assert.InDelta(t, 2e-3, *gain, 1e-18)
}

func TestParseElementSemiconductors(t *testing.T) {
	t.Run("diode area and off", func(t *testing.T) {
		elem, err := ParseElement("D1 a k D1N4148 2 off")
		require.NoError(t, err)

		assert.Equal(t, "D1N4148", elem.Model)
		params := elem.Params.(SemiconductorParams)
		require.NotNil(t, params.Area)
		assert.Equal(t, 2.0, *params.Area)
		assert.True(t, params.Off)
	})

	t.Run("mosfet geometry", func(t *testing.T) {
		elem, err := ParseElement("M1 d g s b NMOD w=10u l=1u")
		require.NoError(t, err)

		assert.Equal(t, []string{"d", "g", "s", "b"}, elem.Nodes)
		assert.Equal(t, "NMOD", elem.Model)
		params := elem.Params.(SemiconductorParams)
		require.NotNil(t, params.W)
		require.NotNil(t, params.L)
		assert.InDelta(t, 1e-5, *params.W, 1e-20)
		assert.InDelta(t, 1e-6, *params.L, 1e-21)
	})

	t.Run("bjt", func(t *testing.T) {
		elem, err := ParseElement("Q1 c b e QNPN")
		require.NoError(t, err)
		assert.Equal(t, device.BJT, elem.Kind)
		assert.Equal(t, "QNPN", elem.Model)
	})
}

func TestParseElementInstance(t *testing.T) {
	elem, err := ParseElement("X1 in out AMP params: gain=10 rin=1k")
	require.NoError(t, err)

	assert.True(t, elem.IsSubcircuit())
	assert.Equal(t, []string{"in", "out"}, elem.Nodes)
	assert.Equal(t, "AMP", elem.Subcircuit)
	assert.Equal(t, []Param{{Key: "gain", Value: "10"}, {Key: "rin", Value: "1k"}},
		elem.Params.(SubcircuitParams).Overrides)

	elem, err = ParseElement("Xspk in 0 UNKNOWN_SUB")
	require.NoError(t, err)
	assert.Equal(t, []string{"in", "0"}, elem.Nodes)
	assert.Equal(t, "UNKNOWN_SUB", elem.Subcircuit)

	_, err = ParseElement("X1")
	var unrecognized *UnrecognizedLineError
	require.True(t, errors.As(err, &unrecognized))
}

func TestParseElementExtraParams(t *testing.T) {
	elem, err := ParseElement("R1 a b 1k foo=bar")
	require.NoError(t, err)
	assert.Equal(t, []Param{{Key: "foo", Value: "bar"}}, elem.Extra)
}

func TestParseElementLenientNodes(t *testing.T) {
	// too few nodes is for the assembler to report
	elem, err := ParseElement("R1 a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, elem.Nodes)
	assert.Nil(t, elem.Value)
}

func TestParseElementErrors(t *testing.T) {
	_, err := ParseElement("R1 a b abc")
	var malformed *MalformedNumberError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "abc", malformed.Token)

	_, err = ParseElement("Z1 a b 1")
	var unrecognized *UnrecognizedLineError
	require.True(t, errors.As(err, &unrecognized))
}
