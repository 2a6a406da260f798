package util

import (
	"fmt"
	"math"
	"strings"
)

// FormatValueFactor renders value with a metric prefix, 4700 ohm -> "4.700 kohm".
func FormatValueFactor(value float64, unit string) string {
	absValue := math.Abs(value)
	var s string
	switch {
	case absValue == 0:
		s = fmt.Sprintf("%.3f %s", value, unit)
	case absValue >= 1e6:
		s = fmt.Sprintf("%.3f M%s", value/1e6, unit)
	case absValue >= 1e3:
		s = fmt.Sprintf("%.3f k%s", value/1e3, unit)
	case absValue >= 1:
		s = fmt.Sprintf("%.3f %s", value, unit)
	case absValue >= 1e-3:
		s = fmt.Sprintf("%.3f m%s", value*1e3, unit)
	case absValue >= 1e-6:
		s = fmt.Sprintf("%.3f u%s", value*1e6, unit)
	case absValue >= 1e-9:
		s = fmt.Sprintf("%.3f n%s", value*1e9, unit)
	case absValue >= 1e-12:
		s = fmt.Sprintf("%.3f p%s", value*1e12, unit)
	default:
		s = fmt.Sprintf("%.3e %s", value, unit)
	}
	return strings.TrimSpace(s)
}

func FormatFrequency(freq float64) string {
	switch {
	case freq >= 1e6:
		return fmt.Sprintf("%7.3f MHz", freq/1e6)
	case freq >= 1e3:
		return fmt.Sprintf("%7.3f kHz", freq/1e3)
	default:
		return fmt.Sprintf("%7.3f Hz ", freq)
	}
}

// Units of the loudspeaker parameters found in driver library metadata
var derivedUnits = map[string]string{
	"re":        "ohm",
	"znom":      "ohm",
	"impedance": "ohm",
	"le":        "H",
	"bl":        "Tm",
	"mms":       "g",
	"cms":       "m/N",
	"rms":       "kg/s",
	"sd":        "m2",
	"xmax":      "m",
	"pe":        "W",
	"vas":       "L",
}

// FormatDerived renders a derived catalog parameter for display. Quality
// factors and levels are printed bare.
func FormatDerived(key string, value float64) string {
	key = strings.ToLower(key)
	switch key {
	case "fs":
		return strings.TrimSpace(FormatFrequency(value))
	case "qts", "qes", "qms", "spl", "sensitivity":
		return fmt.Sprintf("%.3f", value)
	}
	return FormatValueFactor(value, derivedUnits[key])
}
