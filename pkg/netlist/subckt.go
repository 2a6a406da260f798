package netlist

import (
	"fmt"
	"strings"
)

func isDirective(text, name string) bool {
	return strings.EqualFold(firstField(text), name)
}

// parseSubcktHeader reads ".subckt name port... [params:] [k=v ...]".
func parseSubcktHeader(text string) (SubcircuitBlock, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return SubcircuitBlock{}, &UnrecognizedLineError{Text: text, Reason: "subcircuit header names no subcircuit"}
	}

	block := SubcircuitBlock{Name: fields[1]}
	inParams := false
	for _, tok := range fields[2:] {
		if strings.EqualFold(tok, "params:") {
			inParams = true
			continue
		}
		if p, isParam := splitParam(tok); isParam {
			inParams = true
			block.Defaults = append(block.Defaults, p)
			continue
		}
		if inParams {
			return SubcircuitBlock{}, &UnrecognizedLineError{Text: text, Reason: fmt.Sprintf("port %q after parameters", tok)}
		}
		block.Ports = append(block.Ports, tok)
	}
	return block, nil
}

// collectSubckt consumes lines[start:] from a .subckt header to its
// matching .ends. Nested blocks stay part of the body. It returns the index
// of the closing line. A block with a broken header is still skipped up to
// its .ends so its body never reaches the enclosing netlist.
func collectSubckt(lines []logicalLine, start int) (SubcircuitBlock, int, error) {
	header := lines[start]
	block, headerErr := parseSubcktHeader(header.text)
	if headerErr != nil {
		if fields := strings.Fields(header.text); len(fields) > 1 {
			block.Name = fields[1]
		}
	}
	block.Line = header.num

	depth := 0
	for i := start + 1; i < len(lines); i++ {
		ln := lines[i]
		if !ln.comment {
			switch {
			case isDirective(ln.text, ".subckt"):
				depth++
			case isDirective(ln.text, ".ends"):
				if depth == 0 {
					return block, i, headerErr
				}
				depth--
			}
		}
		block.Body = append(block.Body, ln.raw...)
	}

	if headerErr != nil {
		// nothing to skip to, let the following lines parse on their own
		return block, start, headerErr
	}
	return block, len(lines) - 1, &UnrecognizedLineError{
		Text:   header.text,
		Reason: fmt.Sprintf("subcircuit %s has no matching .ends", block.Name),
	}
}

// metadataComment parses "* KEY: value".
func metadataComment(text string) (string, string, bool) {
	body := strings.TrimSpace(strings.TrimLeft(text, "*"))
	key, value, ok := strings.Cut(body, ":")
	if !ok {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, " \t") {
		return "", "", false
	}
	return strings.ToLower(key), strings.TrimSpace(value), true
}

// ParseLibrary extracts every top-level .subckt block of a library file.
// "* KEY: value" comments directly above a header become its metadata.
// Broken blocks are reported per line; the remaining blocks still load.
func ParseLibrary(text string) ([]SubcircuitBlock, []*LineError) {
	var (
		blocks  []SubcircuitBlock
		errs    []*LineError
		pending map[string]string
	)

	lines := splitLines(text)
	for i := 0; i < len(lines); i++ {
		ln := lines[i]
		if ln.comment {
			if key, value, ok := metadataComment(ln.text); ok {
				if pending == nil {
					pending = make(map[string]string)
				}
				pending[key] = value
			}
			continue
		}

		if !isDirective(ln.text, ".subckt") {
			pending = nil
			continue
		}

		block, end, err := collectSubckt(lines, i)
		if err != nil {
			errs = append(errs, &LineError{Line: ln.num, Name: block.Name, Directive: ".subckt", Err: err})
		} else {
			block.Metadata = pending
			blocks = append(blocks, block)
		}
		pending = nil
		i = end
	}

	return blocks, errs
}
