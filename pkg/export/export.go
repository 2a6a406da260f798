package export

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/edp1096/spicelib/internal/consts"
	"github.com/edp1096/spicelib/pkg/circuit"
	"github.com/edp1096/spicelib/pkg/library"
	"github.com/edp1096/spicelib/pkg/netlist"
)

type config struct {
	units       bool
	subcircuits bool
}

type Option func(*config)

// WithUnits writes values with engineering suffixes (4.7k) instead of plain
// decimals (4700).
func WithUnits() Option {
	return func(c *config) { c.units = true }
}

// WithSubcircuits appends the materialized .subckt blocks so the output
// stands alone without the library.
func WithSubcircuits() Option {
	return func(c *config) { c.subcircuits = true }
}

// Write serializes c as netlist text that Parse reads back into the same
// circuit.
func Write(w io.Writer, c *circuit.Circuit, opts ...Option) error {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	bw := bufio.NewWriter(w)
	f := &formatter{cfg: cfg}

	fmt.Fprintln(bw, titleLine(c))
	for _, e := range c.Entities() {
		fmt.Fprintln(bw, f.element(&e.Spec))
	}
	for _, m := range c.Models() {
		fmt.Fprintln(bw, f.model(m))
	}
	if cfg.subcircuits {
		for _, def := range c.Subcircuits() {
			for _, line := range subcktBlock(def) {
				fmt.Fprintln(bw, line)
			}
		}
	}
	fmt.Fprintln(bw, ".end")

	return bw.Flush()
}

// String is Write into a string.
func String(c *circuit.Circuit, opts ...Option) string {
	var sb strings.Builder
	_ = Write(&sb, c, opts...)
	return sb.String()
}

func titleLine(c *circuit.Circuit) string {
	switch {
	case c.Title == "":
		name := c.Name()
		if name == "" {
			name = consts.UntitledName
		}
		return "* " + name
	case netlist.IsStatement(c.Title), strings.HasPrefix(c.Title, "*"), strings.HasPrefix(c.Title, "+"):
		// a bare line here would read back as a statement or comment
		return ".title " + c.Title
	default:
		return c.Title
	}
}

type formatter struct {
	cfg config
}

func (f *formatter) value(v float64) string {
	if f.cfg.units {
		return netlist.FormatValueUnits(v)
	}
	return netlist.FormatValue(v)
}

func (f *formatter) element(spec *netlist.ElementSpec) string {
	fields := []string{spec.Name}
	fields = append(fields, spec.Nodes...)

	switch params := spec.Params.(type) {
	case netlist.PassiveParams:
		if spec.Value != nil {
			fields = append(fields, f.value(*spec.Value))
		}
		fields = f.appendOpt(fields, "tc1", params.TC1)
		fields = f.appendOpt(fields, "tc2", params.TC2)
		fields = f.appendOpt(fields, "ic", params.IC)

	case netlist.SourceParams:
		if spec.Value != nil {
			fields = append(fields, "DC", f.value(*spec.Value))
		}
		if params.AC != nil {
			fields = append(fields, "AC", f.value(params.AC.Mag))
			if params.AC.Phase != 0 {
				fields = append(fields, f.value(params.AC.Phase))
			}
		}
		if params.Waveform != "" {
			args := make([]string, len(params.Args))
			for i, a := range params.Args {
				args[i] = f.value(a)
			}
			fields = append(fields, params.Waveform+"("+strings.Join(args, " ")+")")
		}

	case netlist.GainParams:
		if params.Gain != nil {
			fields = append(fields, f.value(*params.Gain))
		}

	case netlist.SemiconductorParams:
		if spec.Model != "" {
			fields = append(fields, spec.Model)
		}
		if params.Area != nil {
			fields = append(fields, f.value(*params.Area))
		}
		if params.Off {
			fields = append(fields, "off")
		}
		fields = f.appendOpt(fields, "w", params.W)
		fields = f.appendOpt(fields, "l", params.L)

	case netlist.SubcircuitParams:
		fields = append(fields, spec.Subcircuit)
		if len(params.Overrides) == 0 && hasBareParam(spec.Extra) {
			// keeps a bare trailing token from reading back as the subcircuit name
			fields = append(fields, "params:")
		}
		for _, p := range params.Overrides {
			fields = append(fields, p.Key+"="+p.Value)
		}

	default:
		if spec.Value != nil {
			fields = append(fields, f.value(*spec.Value))
		}
	}

	for _, p := range spec.Extra {
		if p.Value == "" {
			fields = append(fields, p.Key)
			continue
		}
		fields = append(fields, p.Key+"="+p.Value)
	}

	return strings.Join(fields, " ")
}

func (f *formatter) appendOpt(fields []string, key string, v *float64) []string {
	if v == nil {
		return fields
	}
	return append(fields, key+"="+f.value(*v))
}

func hasBareParam(params []netlist.Param) bool {
	for _, p := range params {
		if p.Value == "" {
			return true
		}
	}
	return false
}

func (f *formatter) model(m *netlist.ModelSpec) string {
	line := ".model " + m.Name + " " + m.Type
	if len(m.Order) == 0 {
		return line
	}

	params := make([]string, 0, len(m.Order))
	for _, key := range m.Order {
		params = append(params, key+"="+f.value(m.Params[key]))
	}
	return line + " (" + strings.Join(params, " ") + ")"
}

// subcktBlock renders a definition with its metadata comments. The body is
// written back verbatim.
func subcktBlock(def *library.Definition) []string {
	var lines []string

	keys := make([]string, 0, len(def.Metadata))
	for key := range def.Metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("* %s: %s", strings.ToUpper(key), def.Metadata[key]))
	}

	header := append([]string{".subckt", def.Name}, def.Ports...)
	if len(def.Defaults) > 0 {
		header = append(header, "params:")
		for _, p := range def.Defaults {
			header = append(header, p.Key+"="+p.Value)
		}
	}
	lines = append(lines, strings.Join(header, " "))
	lines = append(lines, def.Body...)
	lines = append(lines, ".ends "+def.Name)

	return lines
}
