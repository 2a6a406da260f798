package device

import "strings"

// Kind identifies a built-in element type or a subcircuit instance.
type Kind int

const (
	Unknown Kind = iota
	Resistor
	Capacitor
	Inductor
	VoltageSource
	CurrentSource
	Diode
	BJT
	MOSFET
	VCVS // E: voltage-controlled voltage source
	VCCS // G: voltage-controlled current source
	Subcircuit
)

// Required parameter keys
const (
	ParamValue  = "value"
	ParamSource = "dc"
	ParamGain   = "gain"
	ParamModel  = "model"
)

type kindInfo struct {
	prefix   byte
	name     string
	pins     []string
	required string
	models   []string
}

var kinds = map[Kind]kindInfo{
	Resistor:      {'R', "resistor", []string{"p", "n"}, ParamValue, []string{"R"}},
	Capacitor:     {'C', "capacitor", []string{"p", "n"}, ParamValue, []string{"C"}},
	Inductor:      {'L', "inductor", []string{"p", "n"}, ParamValue, []string{"L", "CORE"}},
	VoltageSource: {'V', "voltage source", []string{"p", "n"}, ParamSource, nil},
	CurrentSource: {'I', "current source", []string{"p", "n"}, ParamSource, nil},
	Diode:         {'D', "diode", []string{"a", "k"}, ParamModel, []string{"D"}},
	BJT:           {'Q', "bjt", []string{"c", "b", "e"}, ParamModel, []string{"NPN", "PNP"}},
	MOSFET:        {'M', "mosfet", []string{"d", "g", "s", "b"}, ParamModel, []string{"NMOS", "PMOS"}},
	VCVS:          {'E', "vcvs", []string{"p", "n", "cp", "cn"}, ParamGain, nil},
	VCCS:          {'G', "vccs", []string{"p", "n", "cp", "cn"}, ParamGain, nil},
	Subcircuit:    {'X', "subcircuit", nil, "", nil},
}

// FromPrefix maps the first character of an element name to its kind.
func FromPrefix(c byte) Kind {
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	for k, info := range kinds {
		if info.prefix == c {
			return k
		}
	}
	return Unknown
}

func (k Kind) Prefix() byte {
	return kinds[k].prefix
}

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return "unknown"
}

// Pins returns the formal pin names of a built-in kind. Subcircuit pins
// come from the definition, so the result is nil for Subcircuit.
func (k Kind) Pins() []string {
	return kinds[k].pins
}

func (k Kind) PinCount() int {
	return len(kinds[k].pins)
}

// Required returns the parameter key every instance of the kind must carry.
func (k Kind) Required() string {
	return kinds[k].required
}

// AcceptsModel reports whether a .model of the given type can back an
// element of this kind.
func (k Kind) AcceptsModel(modelType string) bool {
	for _, t := range kinds[k].models {
		if strings.EqualFold(t, modelType) {
			return true
		}
	}
	return false
}

var modelTypes = map[string]bool{
	"D": true, "NPN": true, "PNP": true, "NMOS": true, "PMOS": true,
	"NJF": true, "PJF": true, "R": true, "C": true, "L": true,
	"SW": true, "CSW": true, "CORE": true,
}

// ValidModelType reports whether t names a supported .model type.
func ValidModelType(t string) bool {
	return modelTypes[strings.ToUpper(t)]
}
