package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/edp1096/spicelib/pkg/importer"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// render writes v in the selected format; text falls back to textFn.
func (a *app) render(w io.Writer, v any, textFn func(io.Writer)) error {
	switch a.format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		textFn(w)
		return nil
	}
}

func statusColor(status importer.Status) *color.Color {
	switch status {
	case importer.StatusSuccess:
		return color.New(color.FgGreen, color.Bold)
	case importer.StatusPartialSuccess:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func writeReport(w io.Writer, r *importer.Report) {
	statusColor(r.Status).Fprintf(w, "%s\n", r.Status)
	fmt.Fprintf(w, "  components: %d/%d added\n", r.ComponentsAdded, r.TotalComponents)
	fmt.Fprintf(w, "  models:     %d added\n", r.ModelsAdded)

	red := color.New(color.FgRed)
	for _, f := range r.FailedComponents {
		red.Fprintf(w, "  ✗ %s", f.Name)
		fmt.Fprintf(w, " (line %d, %s): %s\n", f.Line, f.Code, f.Reason)
	}
	for _, f := range r.FailedModels {
		red.Fprintf(w, "  ✗ model %s", f.Name)
		fmt.Fprintf(w, " (line %d, %s): %s\n", f.Line, f.Code, f.Reason)
	}
	for _, msg := range r.Errors {
		red.Fprintf(w, "  error: %s\n", msg)
	}

	yellow := color.New(color.FgYellow)
	for _, msg := range r.Warnings {
		yellow.Fprintf(w, "  warning: %s\n", msg)
	}
}
