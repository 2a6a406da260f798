package assembler

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/edp1096/spicelib/pkg/circuit"
	"github.com/edp1096/spicelib/pkg/device"
	"github.com/edp1096/spicelib/pkg/library"
	"github.com/edp1096/spicelib/pkg/netlist"
)

// Library resolves subcircuit names. *library.Catalog satisfies it.
type Library interface {
	Lookup(name string) (*library.Definition, bool)
}

// Assembler turns element specs into circuit mutations. Every failure is
// returned as an error; nothing is added to the circuit on failure.
type Assembler struct {
	lib    Library
	logger *zap.Logger
}

type Option func(*Assembler)

func WithLogger(logger *zap.Logger) Option {
	return func(a *Assembler) { a.logger = logger }
}

// New returns an assembler resolving subcircuits against lib. A nil lib
// means no library is configured.
func New(lib Library, opts ...Option) *Assembler {
	a := &Assembler{lib: lib, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// HasLibrary reports whether a library is configured.
func (a *Assembler) HasLibrary() bool { return a.lib != nil }

// Add validates spec and places it into c. The returned warnings describe
// input that was accepted but ignored.
func (a *Assembler) Add(c *circuit.Circuit, spec *netlist.ElementSpec) ([]string, error) {
	if spec == nil || strings.TrimSpace(spec.Name) == "" {
		return nil, &MissingParameterError{Component: "component", Key: "name"}
	}

	var (
		entity   *circuit.Entity
		def      *library.Definition
		warnings []string
		err      error
	)
	if spec.Kind == device.Subcircuit {
		entity, def, warnings, err = a.resolveInstance(c, spec)
	} else {
		entity, warnings, err = a.buildDevice(c, spec)
	}
	if err != nil {
		return nil, err
	}

	if c.HasEntity(spec.Name) {
		return nil, &DuplicateComponentError{Name: spec.Name}
	}
	if err := c.Insert(entity); err != nil {
		return nil, fmt.Errorf("inserting %s: %w", spec.Name, err)
	}
	if def != nil && c.UseSubcircuit(def) {
		a.logger.Debug("subcircuit materialized",
			zap.String("circuit", c.Name()),
			zap.String("subcircuit", def.Name),
			zap.String("source", def.Source))
	}

	for _, p := range spec.Extra {
		warnings = append(warnings, fmt.Sprintf("%s: ignored parameter %s", spec.Name, formatParam(p)))
	}
	a.logger.Debug("component added",
		zap.String("circuit", c.Name()),
		zap.String("name", spec.Name),
		zap.Stringer("kind", spec.Kind))
	return warnings, nil
}

func (a *Assembler) buildDevice(c *circuit.Circuit, spec *netlist.ElementSpec) (*circuit.Entity, []string, error) {
	kind := spec.Kind
	if kind.PinCount() == 0 {
		return nil, nil, &netlist.UnrecognizedLineError{Text: spec.Name, Reason: "unknown component kind"}
	}

	if len(spec.Nodes) != kind.PinCount() {
		return nil, nil, &NodeCountMismatchError{Component: spec.Name, Expected: kind.PinCount(), Got: len(spec.Nodes)}
	}

	params, err := paramsFor(kind, spec.Params)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", spec.Name, err)
	}
	placed := *spec
	placed.Params = params

	if !netlist.HasRequired(&placed) {
		return nil, nil, &MissingParameterError{Component: spec.Name, Key: kind.Required()}
	}

	var warnings []string
	if placed.Model != "" {
		if m, ok := c.Model(placed.Model); !ok {
			warnings = append(warnings, fmt.Sprintf("%s: model %s is not defined in this circuit", spec.Name, placed.Model))
		} else if !kind.AcceptsModel(m.Type) {
			warnings = append(warnings, fmt.Sprintf("%s: model %s has type %s, not usable by a %s", spec.Name, m.Name, m.Type, kind))
		}
	}

	pins := make([]circuit.Pin, len(spec.Nodes))
	for i, formal := range kind.Pins() {
		pins[i] = circuit.Pin{Formal: formal, Node: spec.Nodes[i]}
	}
	return &circuit.Entity{Spec: placed, Pins: pins}, warnings, nil
}

func (a *Assembler) resolveInstance(c *circuit.Circuit, spec *netlist.ElementSpec) (*circuit.Entity, *library.Definition, []string, error) {
	if strings.TrimSpace(spec.Subcircuit) == "" {
		return nil, nil, nil, &MissingParameterError{Component: spec.Name, Key: "subcircuit"}
	}

	def, err := a.lookup(c, spec.Subcircuit)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", spec.Name, err)
	}

	if len(spec.Nodes) != len(def.Ports) {
		return nil, nil, nil, &NodeCountMismatchError{Component: spec.Name, Expected: len(def.Ports), Got: len(spec.Nodes)}
	}

	params, err := paramsFor(device.Subcircuit, spec.Params)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", spec.Name, err)
	}
	placed := *spec
	placed.Params = params

	var warnings []string
	declared := make(map[string]bool, len(def.Defaults))
	for _, p := range def.Defaults {
		declared[p.Key] = true
	}
	for _, p := range params.(netlist.SubcircuitParams).Overrides {
		if !declared[p.Key] {
			warnings = append(warnings, fmt.Sprintf("%s: parameter %s is not declared by subcircuit %s", spec.Name, p.Key, def.Name))
		}
	}

	// instance node i binds to formal port i
	pins := make([]circuit.Pin, len(spec.Nodes))
	for i, node := range spec.Nodes {
		pins[i] = circuit.Pin{Formal: def.Ports[i], Node: node}
	}
	return &circuit.Entity{Spec: placed, Pins: pins}, def, warnings, nil
}

// lookup resolves inline definitions first, then the library.
func (a *Assembler) lookup(c *circuit.Circuit, name string) (*library.Definition, error) {
	if def, ok := c.LocalDefinition(name); ok {
		return def, nil
	}
	if a.lib == nil {
		return nil, ErrLibraryUnavailable
	}
	def, ok := a.lib.Lookup(name)
	if !ok {
		return nil, &SubcircuitNotFoundError{Name: name}
	}
	return def, nil
}

// paramsFor checks that params belong to kind, filling the zero bag when
// none were given.
func paramsFor(kind device.Kind, params netlist.Params) (netlist.Params, error) {
	var ok bool
	switch kind {
	case device.Resistor, device.Capacitor, device.Inductor:
		if params == nil {
			return netlist.PassiveParams{}, nil
		}
		_, ok = params.(netlist.PassiveParams)
	case device.VoltageSource, device.CurrentSource:
		if params == nil {
			return netlist.SourceParams{}, nil
		}
		_, ok = params.(netlist.SourceParams)
	case device.VCVS, device.VCCS:
		if params == nil {
			return netlist.GainParams{}, nil
		}
		_, ok = params.(netlist.GainParams)
	case device.Diode, device.BJT, device.MOSFET:
		if params == nil {
			return netlist.SemiconductorParams{}, nil
		}
		_, ok = params.(netlist.SemiconductorParams)
	case device.Subcircuit:
		if params == nil {
			return netlist.SubcircuitParams{}, nil
		}
		_, ok = params.(netlist.SubcircuitParams)
	}
	if !ok {
		return nil, fmt.Errorf("parameters %T do not apply to a %s", params, kind)
	}
	return params, nil
}

// AddModel places a .model definition into c.
func (a *Assembler) AddModel(c *circuit.Circuit, m *netlist.ModelSpec) error {
	if m == nil || strings.TrimSpace(m.Name) == "" {
		return &MissingParameterError{Component: "model", Key: "name"}
	}
	if !device.ValidModelType(m.Type) {
		return &netlist.UnrecognizedLineError{Text: m.Name, Reason: fmt.Sprintf("unsupported model type: %s", m.Type)}
	}
	if c.HasModel(m.Name) {
		return &DuplicateModelError{Name: m.Name}
	}
	if err := c.AddModel(m); err != nil {
		return fmt.Errorf("adding model %s: %w", m.Name, err)
	}
	return nil
}

func formatParam(p netlist.Param) string {
	if p.Value == "" {
		return p.Key
	}
	return p.Key + "=" + p.Value
}
