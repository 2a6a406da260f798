package netlist

import "github.com/edp1096/spicelib/pkg/device"

// Item is one parsed statement: *ElementSpec or *ModelSpec.
type Item interface {
	SourceLine() int
	item()
}

// Param is a raw key=value pair. Keys are lower-cased.
type Param struct {
	Key   string
	Value string
}

// ElementSpec describes one element or subcircuit instance line.
type ElementSpec struct {
	Kind       device.Kind
	Name       string
	Nodes      []string
	Value      *float64 // primary value: resistance, capacitance, DC level
	Model      string
	Subcircuit string // referenced definition when Kind == device.Subcircuit
	Params     Params
	Extra      []Param // unrecognized for the kind, never applied
	Line       int
}

func (e *ElementSpec) SourceLine() int { return e.Line }
func (e *ElementSpec) item()           {}

// IsSubcircuit reports whether the spec references a subcircuit definition.
func (e *ElementSpec) IsSubcircuit() bool { return e.Kind == device.Subcircuit }

// ModelSpec is a parsed .model line.
type ModelSpec struct {
	Name   string
	Type   string
	Params map[string]float64
	Order  []string // parameter keys in source order
	Line   int
}

func (m *ModelSpec) SourceLine() int { return m.Line }
func (m *ModelSpec) item()           {}

// Params is the closed set of per-kind parameter bags.
type Params interface {
	params()
}

// PassiveParams belong to R, C and L.
type PassiveParams struct {
	TC1 *float64
	TC2 *float64
	IC  *float64
}

// ACSpec is the small-signal stimulus of a source.
type ACSpec struct {
	Mag   float64
	Phase float64
}

// SourceParams belong to V and I. The DC level is the spec's Value.
type SourceParams struct {
	AC       *ACSpec
	Waveform string // SIN, PULSE, PWL, EXP, SFFM
	Args     []float64
}

// GainParams belong to E and G.
type GainParams struct {
	Gain *float64
}

// SemiconductorParams belong to D, Q and M.
type SemiconductorParams struct {
	Area *float64
	Off  bool
	W    *float64
	L    *float64
}

// SubcircuitParams belong to X instances; keys depend on the definition.
type SubcircuitParams struct {
	Overrides []Param
}

func (PassiveParams) params()       {}
func (SourceParams) params()        {}
func (GainParams) params()          {}
func (SemiconductorParams) params() {}
func (SubcircuitParams) params()    {}

// SubcircuitBlock is a .subckt ... .ends block, body kept verbatim.
type SubcircuitBlock struct {
	Name     string
	Ports    []string
	Defaults []Param
	Body     []string
	Metadata map[string]string
	Line     int
}

// Control is an analysis or option directive carried through unparsed.
type Control struct {
	Line int
	Text string
}

// Netlist is the parser output, statements in source order.
type Netlist struct {
	Title       string
	Items       []Item
	Subcircuits []SubcircuitBlock
	Controls    []Control
	Errors      []*LineError
	// UntitledAt is the line of a leading element read as a statement
	// instead of a title, 0 otherwise.
	UntitledAt int
}

func (n *Netlist) Elements() []*ElementSpec {
	var elems []*ElementSpec
	for _, it := range n.Items {
		if e, ok := it.(*ElementSpec); ok {
			elems = append(elems, e)
		}
	}
	return elems
}

func (n *Netlist) Models() []*ModelSpec {
	var models []*ModelSpec
	for _, it := range n.Items {
		if m, ok := it.(*ModelSpec); ok {
			models = append(models, m)
		}
	}
	return models
}
