package netlist

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dividerNetlist = `Voltage divider
* supply
V1 in 0 DC 10
R1 in out 1k
R2 out 0 1k
.op
.end
R3 ignored 0 1k
`

func TestParseVoltageDivider(t *testing.T) {
	nl, err := Parse(dividerNetlist)
	require.NoError(t, err)

	assert.Equal(t, "Voltage divider", nl.Title)
	require.Len(t, nl.Elements(), 3)
	assert.Equal(t, "V1", nl.Elements()[0].Name)
	assert.Equal(t, 3, nl.Elements()[0].Line)
	assert.Equal(t, "R2", nl.Elements()[2].Name)
	assert.Empty(t, nl.Errors)

	require.Len(t, nl.Controls, 1)
	assert.Equal(t, ".op", nl.Controls[0].Text)
	assert.Equal(t, 6, nl.Controls[0].Line)
}

func TestParseTitleAuto(t *testing.T) {
	nl, err := Parse("V1 in 0 DC 1\nXspk in 0 UNKNOWN_SUB\n")
	require.NoError(t, err)

	assert.Empty(t, nl.Title)
	assert.Equal(t, 1, nl.UntitledAt)
	require.Len(t, nl.Elements(), 2)
	assert.Equal(t, "V1", nl.Elements()[0].Name)
	assert.Equal(t, "Xspk", nl.Elements()[1].Name)
}

func TestParseTitleAutoFirstLine(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		title    string
		elements int
		untitled int
	}{
		{"diode without model", "Driver test 8 ohm\nR1 a 0 1k\n", "Driver test 8 ohm", 1, 0},
		{"instance on unused node", "Xover board rev2\nR1 a 0 1k\n", "Xover board rev2", 1, 0},
		{"resistor off the netlist", "Rack unit 2u\nR1 a 0 1k\n", "Rack unit 2u", 1, 0},
		{"diode with model", "D1 a 0 DMOD\n.model DMOD D\nR1 a 0 1k\n", "", 2, 1},
		{"shared node", "* lead\nR1 a b 1k\nR2 b 0 1k\n", "", 2, 2},
		{"directive", ".model DMOD D\nD1 a 0 DMOD\n", "", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nl, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.title, nl.Title)
			assert.Len(t, nl.Elements(), tt.elements)
			assert.Equal(t, tt.untitled, nl.UntitledAt)
		})
	}
}

func TestParseTitleFirstLine(t *testing.T) {
	nl, err := Parse("V1 in 0 DC 1\nXspk in 0 UNKNOWN_SUB\n", WithTitleMode(TitleFirstLine))
	require.NoError(t, err)

	assert.Equal(t, "V1 in 0 DC 1", nl.Title)
	require.Len(t, nl.Elements(), 1)
	assert.Equal(t, "Xspk", nl.Elements()[0].Name)
}

func TestParseTitleFirstLineSkipsComments(t *testing.T) {
	nl, err := Parse("* header comment\nMy amplifier\nR1 a 0 1k\n", WithTitleMode(TitleFirstLine))
	require.NoError(t, err)

	assert.Equal(t, "My amplifier", nl.Title)
	require.Len(t, nl.Elements(), 1)
	assert.Equal(t, "R1", nl.Elements()[0].Name)
	assert.Zero(t, nl.UntitledAt)
}

func TestParseTitleDirective(t *testing.T) {
	nl, err := Parse("* header comment\n.title My Circuit\nR1 a 0 1\n")
	require.NoError(t, err)
	assert.Equal(t, "My Circuit", nl.Title)
	assert.Len(t, nl.Elements(), 1)

	nl, err = Parse(".title R1 a 0 1\nR1 a 0 1\n", WithTitleMode(TitleFirstLine))
	require.NoError(t, err)
	assert.Equal(t, "R1 a 0 1", nl.Title)
	assert.Len(t, nl.Elements(), 1)
}

func TestParseContinuationAndComments(t *testing.T) {
	nl, err := Parse("test\n* comment\nR1 a 0\n+ 1k ; trailing note\n\nC1 a 0 1u\n")
	require.NoError(t, err)

	elems := nl.Elements()
	require.Len(t, elems, 2)
	require.NotNil(t, elems[0].Value)
	assert.Equal(t, 1000.0, *elems[0].Value)
	assert.Equal(t, 3, elems[0].Line)
	assert.Equal(t, 6, elems[1].Line)
}

func TestParseRejectsNonNetlists(t *testing.T) {
	_, err := Parse("")
	assert.True(t, errors.Is(err, ErrEmptyNetlist))

	_, err = Parse("* only a comment\n\n   \n")
	assert.True(t, errors.Is(err, ErrEmptyNetlist))

	_, err = Parse("R1 a 0 1\x00k")
	assert.True(t, errors.Is(err, ErrBinaryInput))

	_, err = Parse("R1 a 0 \xff\xfe")
	assert.True(t, errors.Is(err, ErrBinaryInput))
}

func TestParseCollectsLineErrors(t *testing.T) {
	nl, err := Parse("t\nR1 a 0 1q2\nZ1 a b\n.foo bar\nR2 a 0 1k\n")
	require.NoError(t, err)

	require.Len(t, nl.Elements(), 1)
	assert.Equal(t, "R2", nl.Elements()[0].Name)

	require.Len(t, nl.Errors, 3)
	assert.Equal(t, 2, nl.Errors[0].Line)
	assert.Equal(t, "R1", nl.Errors[0].Name)
	var malformed *MalformedNumberError
	assert.True(t, errors.As(nl.Errors[0], &malformed))

	assert.Equal(t, 3, nl.Errors[1].Line)
	var unrecognized *UnrecognizedLineError
	assert.True(t, errors.As(nl.Errors[1], &unrecognized))

	assert.Equal(t, 4, nl.Errors[2].Line)
	assert.Equal(t, ".foo", nl.Errors[2].Name)
	assert.Equal(t, ".foo", nl.Errors[2].Directive)
	assert.Empty(t, nl.Errors[0].Directive)
	assert.ErrorContains(t, nl.Errors[2], "unsupported directive")
}

func TestParseInlineSubcircuit(t *testing.T) {
	input := `amp
.subckt buf in out params: gain=2
E1 out 0 in 0 {gain}
.ends buf
X1 a b buf
.end
`
	nl, err := Parse(input)
	require.NoError(t, err)

	require.Len(t, nl.Subcircuits, 1)
	block := nl.Subcircuits[0]
	assert.Equal(t, "buf", block.Name)
	assert.Equal(t, []string{"in", "out"}, block.Ports)
	assert.Equal(t, []Param{{Key: "gain", Value: "2"}}, block.Defaults)
	assert.Equal(t, []string{"E1 out 0 in 0 {gain}"}, block.Body)
	assert.Equal(t, 2, block.Line)

	require.Len(t, nl.Elements(), 1)
	assert.Equal(t, "buf", nl.Elements()[0].Subcircuit)
}

func TestParseModelLineErrorNamesModel(t *testing.T) {
	nl, err := Parse("t\n.MODEL bad FOO (a=1)\n.subckt open a b\n")
	require.NoError(t, err)

	require.Len(t, nl.Errors, 2)
	assert.Equal(t, "bad", nl.Errors[0].Name)
	assert.Equal(t, ".model", nl.Errors[0].Directive)
	assert.Equal(t, "open", nl.Errors[1].Name)
	assert.Equal(t, ".subckt", nl.Errors[1].Directive)
}

func TestParseBrokenSubcktHeaderSkipsBody(t *testing.T) {
	nl, err := Parse("t\n.subckt foo a params: x=1 b\nR1 a b 1k\n.ends foo\nR2 in 0 1k\nV1 in 0 DC 1\n.end\n")
	require.NoError(t, err)

	assert.Empty(t, nl.Subcircuits)
	require.Len(t, nl.Elements(), 2)
	assert.Equal(t, "R2", nl.Elements()[0].Name)
	assert.Equal(t, "V1", nl.Elements()[1].Name)

	require.Len(t, nl.Errors, 1)
	assert.Equal(t, 2, nl.Errors[0].Line)
	assert.Equal(t, "foo", nl.Errors[0].Name)
	assert.Equal(t, ".subckt", nl.Errors[0].Directive)
	assert.ErrorContains(t, nl.Errors[0], "after parameters")
}

func TestParseBrokenSubcktHeaderWithoutEnds(t *testing.T) {
	nl, err := Parse("t\n.subckt foo a x=1 b\nR1 a 0 1k\n")
	require.NoError(t, err)

	require.Len(t, nl.Errors, 1)
	require.Len(t, nl.Elements(), 1)
	assert.Equal(t, "R1", nl.Elements()[0].Name)
}

func TestParseModels(t *testing.T) {
	nl, err := Parse("t\n.model D1N4148 D (IS=2.52n N=1.752)\nD1 a 0 D1N4148\n")
	require.NoError(t, err)

	require.Len(t, nl.Models(), 1)
	m := nl.Models()[0]
	assert.Equal(t, "D1N4148", m.Name)
	assert.Equal(t, "D", m.Type)
	assert.Equal(t, []string{"is", "n"}, m.Order)
	assert.InEpsilon(t, 2.52e-9, m.Params["is"], 1e-12)
	assert.Equal(t, 1.752, m.Params["n"])
	assert.Equal(t, 2, m.Line)

	require.Len(t, nl.Items, 2)
	assert.Equal(t, 3, nl.Items[1].SourceLine())
}

func TestIsStatement(t *testing.T) {
	assert.True(t, IsStatement("V1 in 0 DC 1"))
	assert.True(t, IsStatement("R1 a b 1k"))
	assert.True(t, IsStatement(".title x"))
	assert.True(t, IsStatement("X1 a b sub"))

	assert.False(t, IsStatement("Voltage divider test"))
	assert.False(t, IsStatement("Resistor network"))
	assert.False(t, IsStatement("Common emitter amplifier"))
	assert.False(t, IsStatement("R1 a b 1k extra"))
}
