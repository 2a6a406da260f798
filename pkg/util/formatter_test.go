package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatValueFactor(t *testing.T) {
	tests := []struct {
		value float64
		unit  string
		want  string
	}{
		{0, "ohm", "0.000 ohm"},
		{4700, "ohm", "4.700 kohm"},
		{2.2e6, "ohm", "2.200 Mohm"},
		{6, "ohm", "6.000 ohm"},
		{0.5e-3, "H", "500.000 uH"},
		{1.5e-3, "H", "1.500 mH"},
		{-2e-9, "F", "-2.000 nF"},
		{3e-12, "F", "3.000 pF"},
		{12, "", "12.000"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValueFactor(tt.value, tt.unit))
	}
}

func TestFormatFrequency(t *testing.T) {
	assert.Equal(t, " 42.000 Hz ", FormatFrequency(42))
	assert.Equal(t, "  2.500 kHz", FormatFrequency(2500))
	assert.Equal(t, "  1.000 MHz", FormatFrequency(1e6))
}

func TestFormatDerived(t *testing.T) {
	assert.Equal(t, "28.000 Hz", FormatDerived("fs", 28))
	assert.Equal(t, "0.350", FormatDerived("QTS", 0.35))
	assert.Equal(t, "6.000 ohm", FormatDerived("re", 6))
	assert.Equal(t, "45.000 L", FormatDerived("vas", 45))
	assert.Equal(t, "7.000", FormatDerived("unknown", 7))
}
