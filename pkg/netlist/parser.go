package netlist

import (
	"strings"
	"unicode/utf8"

	"github.com/edp1096/spicelib/internal/consts"
	"github.com/edp1096/spicelib/pkg/device"
)

type TitleMode int

const (
	// TitleAuto takes the first non-comment line as the title unless it is
	// a directive or an element wired into the rest of the netlist.
	TitleAuto TitleMode = iota
	// TitleFirstLine always takes the first non-comment line as the title,
	// as SPICE does.
	TitleFirstLine
)

type parseConfig struct {
	titleMode TitleMode
}

type Option func(*parseConfig)

func WithTitleMode(mode TitleMode) Option {
	return func(c *parseConfig) { c.titleMode = mode }
}

// Directives carried through to the engine without interpretation
var controlDirectives = map[string]bool{
	".op": true, ".tran": true, ".ac": true, ".dc": true, ".noise": true,
	".options": true, ".option": true, ".param": true, ".include": true,
	".lib": true, ".ic": true, ".nodeset": true, ".temp": true, ".print": true,
	".plot": true, ".probe": true, ".save": true, ".meas": true, ".measure": true,
	".global": true, ".four": true, ".tf": true, ".sens": true,
}

// Parse turns netlist text into statements. Per-line failures are collected
// in Netlist.Errors and parsing goes on; only input that is not a netlist
// at all fails the whole call.
func Parse(input string, opts ...Option) (*Netlist, error) {
	cfg := parseConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if strings.IndexByte(input, 0) >= 0 || !utf8.ValidString(input) {
		return nil, ErrBinaryInput
	}

	lines := splitLines(input)
	netlistData := &Netlist{}

	hasContent := false
	for _, ln := range lines {
		if !ln.comment {
			hasContent = true
			break
		}
	}
	if !hasContent {
		return nil, ErrEmptyNetlist
	}

	start := 0
	for lines[start].comment {
		start++
	}
	switch {
	case isDirective(lines[start].text, ".title"):
	case cfg.titleMode == TitleFirstLine || !leadsWithStatement(lines, start):
		netlistData.Title = lines[start].text
		start++
	case !strings.HasPrefix(lines[start].text, "."):
		netlistData.UntitledAt = lines[start].num
	}

	for i := start; i < len(lines); i++ {
		ln := lines[i]
		if ln.comment {
			continue
		}

		if !strings.HasPrefix(ln.text, ".") {
			elem, err := parseElement(ln.text, ln.num)
			if err != nil {
				netlistData.addError(ln, err)
				continue
			}
			netlistData.Items = append(netlistData.Items, elem)
			continue
		}

		directive := strings.ToLower(firstField(ln.text))
		switch {
		case directive == ".end" || directive == ".ends":
			return netlistData, nil

		case directive == ".title":
			netlistData.Title = strings.TrimSpace(ln.text[len(".title"):])

		case directive == ".model":
			model, err := parseModel(ln.text, ln.num)
			if err != nil {
				netlistData.addError(ln, err)
				continue
			}
			netlistData.Items = append(netlistData.Items, model)

		case directive == ".subckt":
			block, end, err := collectSubckt(lines, i)
			if err != nil {
				netlistData.addError(ln, err)
			} else {
				netlistData.Subcircuits = append(netlistData.Subcircuits, block)
			}
			i = end

		case controlDirectives[directive]:
			netlistData.Controls = append(netlistData.Controls, Control{Line: ln.num, Text: ln.text})

		default:
			netlistData.addError(ln, &UnrecognizedLineError{Text: ln.text, Reason: "unsupported directive"})
		}
	}

	return netlistData, nil
}

func (n *Netlist) addError(ln logicalLine, err error) {
	fields := strings.Fields(ln.text)
	lineErr := &LineError{Line: ln.num, Err: err}
	if len(fields) > 0 {
		lineErr.Name = fields[0]
	}
	if strings.HasPrefix(lineErr.Name, ".") {
		lineErr.Directive = strings.ToLower(lineErr.Name)
		// .model and .subckt lines are known by what they define
		if (lineErr.Directive == ".model" || lineErr.Directive == ".subckt") && len(fields) > 1 {
			lineErr.Name = fields[1]
		}
	}
	n.Errors = append(n.Errors, lineErr)
}

// IsStatement reports whether text reads as a directive or a complete
// element line, which keeps "V1 in 0 DC 1" from being eaten as a title.
func IsStatement(text string) bool {
	if strings.HasPrefix(text, ".") {
		return true
	}
	elem, err := parseElement(text, 0)
	if err != nil {
		return false
	}
	if elem.Kind == device.Subcircuit {
		return true
	}
	if len(elem.Nodes) != elem.Kind.PinCount() || len(elem.Extra) > 0 {
		return false
	}
	return HasRequired(elem)
}

// leadsWithStatement decides whether the first content line lines[idx] is
// a statement rather than a title. Beyond IsStatement, a device that names a
// model needs that .model in the same netlist, and an element must touch
// ground or a node used by some other line, so prose like "Driver test 8 ohm"
// stays a title.
func leadsWithStatement(lines []logicalLine, idx int) bool {
	text := lines[idx].text
	if strings.HasPrefix(text, ".") {
		return true
	}
	if !IsStatement(text) {
		return false
	}
	elem, err := parseElement(text, 0)
	if err != nil {
		return false
	}
	if elem.Kind.Required() == device.ParamModel && !definesModel(lines, elem.Model) {
		return false
	}
	return sharesNode(lines, idx, elem.Nodes)
}

func definesModel(lines []logicalLine, name string) bool {
	for _, ln := range lines {
		fields := strings.Fields(ln.text)
		if !ln.comment && len(fields) > 1 && strings.EqualFold(fields[0], ".model") && strings.EqualFold(fields[1], name) {
			return true
		}
	}
	return false
}

func sharesNode(lines []logicalLine, idx int, nodes []string) bool {
	used := make(map[string]bool)
	for i, ln := range lines {
		if i == idx || ln.comment || strings.HasPrefix(ln.text, ".") {
			continue
		}
		for _, tok := range strings.Fields(ln.text)[1:] {
			used[strings.ToLower(tok)] = true
		}
	}
	for _, node := range nodes {
		if node == consts.GroundNode || strings.EqualFold(node, consts.GroundAlias) || used[strings.ToLower(node)] {
			return true
		}
	}
	return false
}

// HasRequired reports whether the spec carries its kind's required parameter.
func HasRequired(elem *ElementSpec) bool {
	switch elem.Kind.Required() {
	case device.ParamValue:
		return elem.Value != nil
	case device.ParamSource:
		if elem.Value != nil {
			return true
		}
		src, _ := elem.Params.(SourceParams)
		return src.AC != nil || src.Waveform != ""
	case device.ParamGain:
		gain, _ := elem.Params.(GainParams)
		return gain.Gain != nil
	case device.ParamModel:
		return elem.Model != ""
	}
	return true
}
