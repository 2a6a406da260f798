package netlist

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var valueRe = regexp.MustCompile(`^([-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?)([a-zA-Z]*)$`)

// Decimal exponent per scale letter
var scaleExponents = map[byte]int{
	't': 12,
	'g': 9,
	'k': 3,
	'm': -3,
	'u': -6,
	'n': -9,
	'p': -12,
	'f': -15,
}

// ParseValue - Parse value and factor. 1k -> 1000, 2Meg -> 2e6, 10uF -> 1e-5
func ParseValue(val string) (float64, error) {
	token := strings.TrimSpace(val)
	matches := valueRe.FindStringSubmatch(token)
	if matches == nil {
		return 0, &MalformedNumberError{Token: val}
	}

	// meg and mil must win over the lone m (milli)
	tail := strings.ToLower(matches[2])
	exp := 0
	switch {
	case tail == "":
	case strings.HasPrefix(tail, "meg"):
		exp = 6
	case strings.HasPrefix(tail, "mil"):
		num, err := shifted(matches[1], -6)
		if err != nil {
			return 0, &MalformedNumberError{Token: val}
		}
		return num * 25.4, nil
	default:
		// Letters that are not a scale are units (V, A, ohm, Hz) and are ignored
		exp = scaleExponents[tail[0]]
	}

	num, err := shifted(matches[1], exp)
	if err != nil {
		return 0, &MalformedNumberError{Token: val}
	}
	return num, nil
}

// shifted parses a decimal literal with its exponent moved by exp, so the
// scale is applied before the single rounding: 0.36m is exactly 0.36e-3.
func shifted(literal string, exp int) (float64, error) {
	mantissa, e := literal, 0
	if idx := strings.IndexAny(literal, "eE"); idx >= 0 {
		n, err := strconv.Atoi(literal[idx+1:])
		if err != nil {
			return 0, err
		}
		mantissa, e = literal[:idx], n
	}
	return strconv.ParseFloat(mantissa+"e"+strconv.Itoa(e+exp), 64)
}

// scale applies 10^exp. Negative exponents divide by an exact power of ten
// so 1e-05 scales to 10 and not 9.999999999999999.
func scale(num float64, exp int) float64 {
	if exp < 0 {
		return num / math.Pow10(-exp)
	}
	return num * math.Pow10(exp)
}

// IsValue reports whether token parses as a numeric literal.
func IsValue(token string) bool {
	_, err := ParseValue(token)
	return err == nil
}

// FormatValue renders v in the canonical non-suffixed decimal form.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

var unitSteps = []struct {
	exp    int
	suffix string
}{
	{12, "t"},
	{9, "g"},
	{6, "meg"},
	{3, "k"},
	{0, ""},
	{-3, "m"},
	{-6, "u"},
	{-9, "n"},
	{-12, "p"},
	{-15, "f"},
}

// FormatValueUnits renders v with an engineering scale suffix, 1.5e-6 -> 1.5u.
func FormatValueUnits(v float64) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return FormatValue(v)
	}
	abs := math.Abs(v)
	for _, step := range unitSteps {
		if abs >= math.Pow10(step.exp) {
			return strconv.FormatFloat(scale(v, -step.exp), 'g', 12, 64) + step.suffix
		}
	}
	return FormatValue(v)
}
