package library

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/edp1096/spicelib/pkg/netlist"
)

// fold case-folds s. A Caser is stateful, so one is made per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Key normalizes a subcircuit name for case-insensitive lookup.
func Key(name string) string {
	return fold(strings.TrimSpace(name))
}

// Metadata keys whose numeric values are promoted into Definition.Derived.
// These are the loudspeaker Thiele/Small parameters found in driver libraries.
var derivedKeys = map[string]bool{
	"fs": true, "qts": true, "qes": true, "qms": true, "vas": true,
	"re": true, "le": true, "bl": true, "mms": true, "cms": true,
	"rms": true, "sd": true, "xmax": true, "pe": true, "spl": true,
	"sensitivity": true, "znom": true, "impedance": true,
}

// Mass is quoted in grams, so a trailing g on these keys is the unit and
// not the giga scale: "15g" is 15, "150mg" is 0.15.
var gramKeys = map[string]bool{"mms": true}

func trimGrams(token string) string {
	lower := strings.ToLower(token)
	for _, unit := range []string{"grams", "gram", "g"} {
		if strings.HasSuffix(lower, unit) && len(token) > len(unit) {
			return token[:len(token)-len(unit)]
		}
	}
	return token
}

// Definition is an indexed subcircuit. It is never modified after indexing.
type Definition struct {
	Name     string
	Ports    []string
	Body     []string
	Defaults []netlist.Param
	Metadata map[string]string
	Derived  map[string]float64
	Source   string // file the definition was read from
	Line     int
}

func (d *Definition) Key() string { return Key(d.Name) }

func (d *Definition) String() string {
	return fmt.Sprintf("%s(%s)", d.Name, strings.Join(d.Ports, " "))
}

// NewDefinition builds a definition from a parsed block, promoting numeric
// metadata. Metadata values that do not parse stay metadata only.
func NewDefinition(block netlist.SubcircuitBlock, source string) *Definition {
	def := &Definition{
		Name:     block.Name,
		Ports:    block.Ports,
		Body:     block.Body,
		Defaults: block.Defaults,
		Metadata: block.Metadata,
		Source:   source,
		Line:     block.Line,
	}

	for key, value := range block.Metadata {
		if !derivedKeys[key] {
			continue
		}
		fields := strings.Fields(value)
		if len(fields) == 0 {
			continue
		}
		token := fields[0]
		if gramKeys[key] {
			token = trimGrams(token)
		}
		v, err := netlist.ParseValue(token)
		if err != nil {
			continue
		}
		if def.Derived == nil {
			def.Derived = make(map[string]float64)
		}
		def.Derived[key] = v
	}

	return def
}

// ParseFile parses library text into definitions.
func ParseFile(text, source string) ([]*Definition, []*netlist.LineError) {
	blocks, errs := netlist.ParseLibrary(text)
	defs := make([]*Definition, 0, len(blocks))
	for _, block := range blocks {
		defs = append(defs, NewDefinition(block, source))
	}
	return defs, errs
}

// matches reports whether the folded query occurs in the name or metadata.
func (d *Definition) matches(query string) bool {
	if strings.Contains(Key(d.Name), query) {
		return true
	}
	for key, value := range d.Metadata {
		if strings.Contains(fold(key), query) || strings.Contains(fold(value), query) {
			return true
		}
	}
	return false
}
