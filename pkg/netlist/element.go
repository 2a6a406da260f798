package netlist

import (
	"fmt"
	"strings"

	"github.com/edp1096/spicelib/pkg/device"
)

var waveforms = map[string]bool{
	"SIN":   true,
	"PULSE": true,
	"PWL":   true,
	"EXP":   true,
	"SFFM":  true,
}

// ParseElement parses a single element or subcircuit instance statement.
func ParseElement(line string) (*ElementSpec, error) {
	return parseElement(normalizeStatement(strings.TrimSpace(line)), 0)
}

// Parse circuit element
func parseElement(line string, lineNum int) (*ElementSpec, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, &UnrecognizedLineError{Text: line, Reason: "empty statement"}
	}

	kind := device.FromPrefix(fields[0][0])
	if kind == device.Unknown {
		return nil, &UnrecognizedLineError{Text: line}
	}

	elem := &ElementSpec{
		Kind: kind,
		Name: fields[0],
		Line: lineNum,
	}

	if kind == device.Subcircuit {
		return parseInstance(elem, fields[1:], line)
	}

	// Fixed pin count. Missing nodes are left for the assembler to report.
	end := 1 + kind.PinCount()
	if end > len(fields) {
		end = len(fields)
	}
	elem.Nodes = append([]string(nil), fields[1:end]...)
	rest := fields[end:]

	var err error
	switch kind {
	case device.Resistor, device.Capacitor, device.Inductor:
		err = parsePassive(elem, rest)
	case device.VoltageSource, device.CurrentSource:
		err = parseSource(elem, rest)
	case device.VCVS, device.VCCS:
		err = parseControlled(elem, rest)
	case device.Diode, device.BJT, device.MOSFET:
		err = parseSemiconductor(elem, rest)
	}
	if err != nil {
		return nil, err
	}
	return elem, nil
}

func splitParam(token string) (Param, bool) {
	key, value, ok := strings.Cut(token, "=")
	if !ok {
		return Param{}, false
	}
	return Param{Key: strings.ToLower(key), Value: value}, true
}

func parseNumberParam(p Param) (*float64, error) {
	v, err := ParseValue(p.Value)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// R, C, L: name n+ n- value [tc1=.. tc2=.. ic=..]
func parsePassive(elem *ElementSpec, rest []string) error {
	params := PassiveParams{}

	for _, tok := range rest {
		p, isParam := splitParam(tok)
		if !isParam {
			if elem.Value != nil {
				elem.Extra = append(elem.Extra, Param{Key: strings.ToLower(tok)})
				continue
			}
			v, err := ParseValue(tok)
			if err != nil {
				return err
			}
			elem.Value = &v
			continue
		}

		var err error
		switch p.Key {
		case "tc1":
			params.TC1, err = parseNumberParam(p)
		case "tc2":
			params.TC2, err = parseNumberParam(p)
		case "ic":
			params.IC, err = parseNumberParam(p)
		case "r", "c", "l", "value":
			elem.Value, err = parseNumberParam(p)
		default:
			elem.Extra = append(elem.Extra, p)
		}
		if err != nil {
			return err
		}
	}

	elem.Params = params
	return nil
}

// V, I: name n+ n- [[DC] value] [AC mag [phase]] [SIN|PULSE|PWL|EXP|SFFM (args)]
func parseSource(elem *ElementSpec, rest []string) error {
	params := SourceParams{}

	// Append whitespace around parentheses
	joined := strings.Join(rest, " ")
	joined = strings.ReplaceAll(joined, "(", " ( ")
	joined = strings.ReplaceAll(joined, ")", " ) ")
	words := strings.Fields(joined)

	for i := 0; i < len(words); i++ {
		word := strings.ToUpper(words[i])
		switch {
		case word == "DC":
			if i+1 >= len(words) {
				return &UnrecognizedLineError{Text: strings.Join(rest, " "), Reason: "missing DC value"}
			}
			v, err := ParseValue(words[i+1])
			if err != nil {
				return err
			}
			elem.Value = &v
			i++

		case word == "AC":
			if i+1 >= len(words) {
				return &UnrecognizedLineError{Text: strings.Join(rest, " "), Reason: "missing AC magnitude"}
			}
			mag, err := ParseValue(words[i+1])
			if err != nil {
				return err
			}
			params.AC = &ACSpec{Mag: mag}
			i++
			if i+1 < len(words) && IsValue(words[i+1]) {
				params.AC.Phase, _ = ParseValue(words[i+1])
				i++
			}

		case waveforms[word]:
			params.Waveform = word
			j := i + 1
			if j < len(words) && words[j] == "(" {
				j++
			}
			for ; j < len(words) && words[j] != ")"; j++ {
				v, err := ParseValue(words[j])
				if err != nil {
					return err
				}
				params.Args = append(params.Args, v)
			}
			i = j

		case strings.Contains(words[i], "="):
			p, _ := splitParam(words[i])
			elem.Extra = append(elem.Extra, p)

		default:
			if elem.Value != nil {
				return &MalformedNumberError{Token: words[i]}
			}
			v, err := ParseValue(words[i])
			if err != nil {
				return err
			}
			elem.Value = &v
		}
	}

	elem.Params = params
	return nil
}

// E, G: name n+ n- nc+ nc- gain | gain=value
func parseControlled(elem *ElementSpec, rest []string) error {
	params := GainParams{}

	for _, tok := range rest {
		if p, isParam := splitParam(tok); isParam {
			if p.Key != "gain" {
				elem.Extra = append(elem.Extra, p)
				continue
			}
			gain, err := parseNumberParam(p)
			if err != nil {
				return err
			}
			params.Gain = gain
			continue
		}

		if params.Gain != nil {
			elem.Extra = append(elem.Extra, Param{Key: strings.ToLower(tok)})
			continue
		}
		v, err := ParseValue(tok)
		if err != nil {
			return err
		}
		params.Gain = &v
	}

	elem.Params = params
	return nil
}

// D, Q, M: name nodes... model [area] [off] [area=.. w=.. l=..]
func parseSemiconductor(elem *ElementSpec, rest []string) error {
	params := SemiconductorParams{}

	for _, tok := range rest {
		if p, isParam := splitParam(tok); isParam {
			var err error
			switch p.Key {
			case "area":
				params.Area, err = parseNumberParam(p)
			case "w":
				params.W, err = parseNumberParam(p)
			case "l":
				params.L, err = parseNumberParam(p)
			default:
				elem.Extra = append(elem.Extra, p)
			}
			if err != nil {
				return err
			}
			continue
		}

		switch {
		case elem.Model == "":
			elem.Model = tok
		case strings.EqualFold(tok, "off"):
			params.Off = true
		case params.Area == nil && IsValue(tok):
			v, _ := ParseValue(tok)
			params.Area = &v
		default:
			elem.Extra = append(elem.Extra, Param{Key: strings.ToLower(tok)})
		}
	}

	elem.Params = params
	return nil
}

// X: name node... subckt-name [params:] [k=v ...]
func parseInstance(elem *ElementSpec, rest []string, line string) (*ElementSpec, error) {
	split := len(rest)
	for i, tok := range rest {
		if strings.Contains(tok, "=") || strings.EqualFold(tok, "params:") {
			split = i
			break
		}
	}

	head := rest[:split]
	if len(head) == 0 {
		return nil, &UnrecognizedLineError{Text: line, Reason: fmt.Sprintf("instance %s names no subcircuit", elem.Name)}
	}
	elem.Nodes = append([]string(nil), head[:len(head)-1]...)
	elem.Subcircuit = head[len(head)-1]

	params := SubcircuitParams{}
	for _, tok := range rest[split:] {
		if strings.EqualFold(tok, "params:") {
			continue
		}
		if p, isParam := splitParam(tok); isParam {
			params.Overrides = append(params.Overrides, p)
			continue
		}
		elem.Extra = append(elem.Extra, Param{Key: strings.ToLower(tok)})
	}

	elem.Params = params
	return elem, nil
}
