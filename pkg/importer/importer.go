package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/edp1096/spicelib/pkg/assembler"
	"github.com/edp1096/spicelib/pkg/circuit"
	"github.com/edp1096/spicelib/pkg/library"
	"github.com/edp1096/spicelib/pkg/netlist"
)

type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialSuccess Status = "partial_success"
	StatusFailed         Status = "failed"
)

// Failure explains one component or model that was not added.
type Failure struct {
	Name   string `json:"name" yaml:"name"`
	Line   int    `json:"line,omitempty" yaml:"line,omitempty"`
	Code   string `json:"code" yaml:"code"`
	Reason string `json:"reason" yaml:"reason"`
}

// Report is the outcome of a bulk import. ComponentsAdded always equals
// TotalComponents minus len(FailedComponents).
type Report struct {
	Status           Status    `json:"status" yaml:"status"`
	TotalComponents  int       `json:"total_components" yaml:"total_components"`
	ComponentsAdded  int       `json:"components_added" yaml:"components_added"`
	ModelsAdded      int       `json:"models_added" yaml:"models_added"`
	FailedComponents []Failure `json:"failed_components,omitempty" yaml:"failed_components,omitempty"`
	FailedModels     []Failure `json:"failed_models,omitempty" yaml:"failed_models,omitempty"`
	Errors           []string  `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings         []string  `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Err aggregates the failures of a non-successful report, nil on success.
func (r *Report) Err() error {
	if r.Status == StatusSuccess {
		return nil
	}
	var err error
	for _, msg := range r.Errors {
		err = multierr.Append(err, errors.New(msg))
	}
	for _, f := range append(append([]Failure(nil), r.FailedComponents...), r.FailedModels...) {
		err = multierr.Append(err, fmt.Errorf("%s: %s", f.Name, f.Reason))
	}
	if err == nil {
		err = fmt.Errorf("import %s", r.Status)
	}
	return err
}

type phase int

const (
	phaseParsing phase = iota
	phaseAssembling
	phaseReporting
)

func (p phase) String() string {
	switch p {
	case phaseParsing:
		return "parsing"
	case phaseAssembling:
		return "assembling"
	default:
		return "reporting"
	}
}

// Importer drives bulk assembly, isolating per-line failures.
type Importer struct {
	asm        *assembler.Assembler
	logger     *zap.Logger
	parserOpts []netlist.Option
}

type Option func(*Importer)

func WithLogger(logger *zap.Logger) Option {
	return func(im *Importer) { im.logger = logger }
}

func WithParserOptions(opts ...netlist.Option) Option {
	return func(im *Importer) { im.parserOpts = append(im.parserOpts, opts...) }
}

func New(asm *assembler.Assembler, opts ...Option) *Importer {
	im := &Importer{asm: asm, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

type run struct {
	im     *Importer
	c      *circuit.Circuit
	report *Report
	phase  phase
}

func (r *run) enter(p phase) {
	r.phase = p
	r.im.logger.Debug("import phase", zap.String("circuit", r.c.Name()), zap.Stringer("phase", p))
}

// Import parses text and assembles every statement into c. A bad line is
// recorded and the import continues with the next one.
func (im *Importer) Import(ctx context.Context, c *circuit.Circuit, text string) *Report {
	r := &run{im: im, c: c, report: &Report{}}

	r.enter(phaseParsing)
	parsed, err := netlist.Parse(text, im.parserOpts...)
	if err != nil {
		r.report.Errors = append(r.report.Errors, fmt.Sprintf("parse failed: %v", err))
		return r.finish(true)
	}

	if parsed.Title != "" && c.Title == "" {
		c.Title = parsed.Title
	}
	for _, block := range parsed.Subcircuits {
		c.DefineLocal(library.NewDefinition(block, "inline"))
	}
	if parsed.UntitledAt > 0 {
		r.report.Warnings = append(r.report.Warnings,
			fmt.Sprintf("line %d: first line read as a statement, netlist has no title; add .title or use --strict-title", parsed.UntitledAt))
	}
	for _, ctl := range parsed.Controls {
		r.report.Warnings = append(r.report.Warnings, fmt.Sprintf("line %d: control line ignored: %s", ctl.Line, ctl.Text))
	}

	r.enter(phaseAssembling)
	for _, lineErr := range parsed.Errors {
		r.recordLineError(lineErr)
	}
	for _, it := range parsed.Items {
		if err := ctx.Err(); err != nil {
			r.report.Errors = append(r.report.Errors, fmt.Sprintf("import interrupted: %v", err))
			break
		}
		switch item := it.(type) {
		case *netlist.ModelSpec:
			r.addModel(item)
		case *netlist.ElementSpec:
			r.addComponent(item)
		}
	}

	// rejected lines and assembly failures read in source order
	sort.SliceStable(r.report.FailedComponents, func(i, j int) bool {
		return r.report.FailedComponents[i].Line < r.report.FailedComponents[j].Line
	})
	sort.SliceStable(r.report.FailedModels, func(i, j int) bool {
		return r.report.FailedModels[i].Line < r.report.FailedModels[j].Line
	})

	return r.finish(false)
}

// AddComponents assembles discrete component records, same rules as Import.
func (im *Importer) AddComponents(ctx context.Context, c *circuit.Circuit, specs []*netlist.ElementSpec) *Report {
	r := &run{im: im, c: c, report: &Report{}}

	r.enter(phaseAssembling)
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			r.report.Errors = append(r.report.Errors, fmt.Sprintf("import interrupted: %v", err))
			break
		}
		r.addComponent(spec)
	}

	return r.finish(false)
}

// recordLineError files a rejected line. Element lines count as failed
// components and .model lines as failed models; any other broken directive
// is an import error.
func (r *run) recordLineError(lineErr *netlist.LineError) {
	name := lineErr.Name
	if name == "" {
		name = fmt.Sprintf("line %d", lineErr.Line)
	}

	failure := Failure{Name: name, Line: lineErr.Line, Code: assembler.Code(lineErr.Err), Reason: lineErr.Err.Error()}
	switch lineErr.Directive {
	case "":
		r.report.TotalComponents++
		r.report.FailedComponents = append(r.report.FailedComponents, failure)
	case ".model":
		r.report.FailedModels = append(r.report.FailedModels, failure)
	default:
		r.report.Errors = append(r.report.Errors, fmt.Sprintf("line %d: %v", lineErr.Line, lineErr.Err))
	}
	r.im.logger.Warn("line rejected",
		zap.String("circuit", r.c.Name()),
		zap.Int("line", lineErr.Line),
		zap.Error(lineErr.Err))
}

func (r *run) addComponent(spec *netlist.ElementSpec) {
	r.report.TotalComponents++

	warnings, err := r.im.asm.Add(r.c, spec)
	if err != nil {
		name := ""
		line := 0
		if spec != nil {
			name, line = spec.Name, spec.Line
		}
		r.report.FailedComponents = append(r.report.FailedComponents, Failure{
			Name:   name,
			Line:   line,
			Code:   assembler.Code(err),
			Reason: err.Error(),
		})
		r.im.logger.Warn("component rejected",
			zap.String("circuit", r.c.Name()),
			zap.String("name", name),
			zap.Error(err))
		return
	}
	r.report.Warnings = append(r.report.Warnings, warnings...)
}

func (r *run) addModel(m *netlist.ModelSpec) {
	if err := r.im.asm.AddModel(r.c, m); err != nil {
		r.report.FailedModels = append(r.report.FailedModels, Failure{
			Name:   m.Name,
			Line:   m.Line,
			Code:   assembler.Code(err),
			Reason: err.Error(),
		})
		r.im.logger.Warn("model rejected",
			zap.String("circuit", r.c.Name()),
			zap.String("model", m.Name),
			zap.Error(err))
		return
	}
	r.report.ModelsAdded++
}

// finish computes counts and status. fatal marks a parse that never
// reached assembly.
func (r *run) finish(fatal bool) *Report {
	r.enter(phaseReporting)
	rep := r.report
	rep.ComponentsAdded = rep.TotalComponents - len(rep.FailedComponents)

	failed := len(rep.FailedComponents) > 0 || len(rep.FailedModels) > 0 || len(rep.Errors) > 0
	switch {
	case fatal:
		rep.Status = StatusFailed
	case !failed:
		rep.Status = StatusSuccess
	case rep.ComponentsAdded > 0:
		rep.Status = StatusPartialSuccess
	case rep.TotalComponents > 0:
		// components were attempted and none made it
		rep.Status = StatusFailed
	case rep.ModelsAdded > 0:
		rep.Status = StatusPartialSuccess
	default:
		rep.Status = StatusFailed
	}

	r.im.logger.Info("import finished",
		zap.String("circuit", r.c.Name()),
		zap.String("status", string(rep.Status)),
		zap.Int("total", rep.TotalComponents),
		zap.Int("added", rep.ComponentsAdded),
		zap.Int("models", rep.ModelsAdded),
		zap.Int("failed", len(rep.FailedComponents)+len(rep.FailedModels)))
	return rep
}
