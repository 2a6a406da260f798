package netlist

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/edp1096/spicelib/pkg/device"
)

// modelLexer tokenizes a single .model statement.
var modelLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Keyword", Pattern: `(?i)\.model\b`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_.]*`},
	// Numbers may carry a scale suffix; names like 1N4148 also lex here
	{Name: "Number", Pattern: `[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?[A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[()=,]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// modelLine: .model NAME TYPE [(] k=v [,] ... [)]
type modelLine struct {
	Name   string        `parser:"Keyword @(Ident | Number)"`
	Type   string        `parser:"@Ident"`
	Params []*modelParam `parser:"( \"(\" ( @@ \",\"? )* \")\" | ( @@ \",\"? )* )"`
}

type modelParam struct {
	Key   string `parser:"@Ident \"=\""`
	Value string `parser:"@(Number | Ident)"`
}

var modelParser = participle.MustBuild[modelLine](
	participle.Lexer(modelLexer),
	participle.Elide("Whitespace"),
)

// ParseModel parses a .model statement.
func ParseModel(line string) (*ModelSpec, error) {
	return parseModel(normalizeStatement(strings.TrimSpace(line)), 0)
}

func parseModel(line string, lineNum int) (*ModelSpec, error) {
	parsed, err := modelParser.ParseString("", line)
	if err != nil {
		return nil, &UnrecognizedLineError{Text: line, Reason: err.Error()}
	}

	modelType := strings.ToUpper(parsed.Type)
	if !device.ValidModelType(modelType) {
		return nil, &UnrecognizedLineError{Text: line, Reason: fmt.Sprintf("unsupported model type: %s", parsed.Type)}
	}

	model := &ModelSpec{
		Name:   parsed.Name,
		Type:   modelType,
		Params: make(map[string]float64),
		Line:   lineNum,
	}

	for _, p := range parsed.Params {
		key := strings.ToLower(p.Key)
		value, err := ParseValue(p.Value)
		if err != nil {
			return nil, err
		}
		if _, seen := model.Params[key]; !seen {
			model.Order = append(model.Order, key)
		}
		model.Params[key] = value
	}

	return model, nil
}
