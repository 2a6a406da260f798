package assembler

import (
	"errors"
	"fmt"

	"github.com/edp1096/spicelib/pkg/netlist"
)

// ErrLibraryUnavailable means no subcircuit library is configured at all,
// as opposed to a configured library that lacks the name.
var ErrLibraryUnavailable = errors.New("no subcircuit library is configured; set library.roots to the directories holding .lib files")

type MissingParameterError struct {
	Component string
	Key       string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("%s: missing required parameter %q", e.Component, e.Key)
}

type DuplicateComponentError struct {
	Name string
}

func (e *DuplicateComponentError) Error() string {
	return fmt.Sprintf("component %s already exists", e.Name)
}

type DuplicateModelError struct {
	Name string
}

func (e *DuplicateModelError) Error() string {
	return fmt.Sprintf("model %s already exists", e.Name)
}

type NodeCountMismatchError struct {
	Component string
	Expected  int
	Got       int
}

func (e *NodeCountMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d nodes, got %d", e.Component, e.Expected, e.Got)
}

type SubcircuitNotFoundError struct {
	Name string
}

func (e *SubcircuitNotFoundError) Error() string {
	return fmt.Sprintf("subcircuit %q not found in library; search the catalog for the right name (spice lib search %s) or reindex after adding the file", e.Name, e.Name)
}

// Error codes reported alongside failure messages
const (
	CodeMalformedNumber    = "malformed_number"
	CodeUnrecognizedLine   = "unrecognized_line"
	CodeMissingParameter   = "missing_parameter"
	CodeDuplicateComponent = "duplicate_component"
	CodeDuplicateModel     = "duplicate_model"
	CodeNodeCountMismatch  = "node_count_mismatch"
	CodeLibraryUnavailable = "library_unavailable"
	CodeSubcircuitNotFound = "subcircuit_not_found"
	CodeInternal           = "internal"
)

// Code maps an error from parsing or assembly to its stable code.
func Code(err error) string {
	var (
		malformed    *netlist.MalformedNumberError
		unrecognized *netlist.UnrecognizedLineError
		missing      *MissingParameterError
		duplicate    *DuplicateComponentError
		dupModel     *DuplicateModelError
		mismatch     *NodeCountMismatchError
		notFound     *SubcircuitNotFoundError
	)

	switch {
	case errors.Is(err, ErrLibraryUnavailable):
		return CodeLibraryUnavailable
	case errors.As(err, &notFound):
		return CodeSubcircuitNotFound
	case errors.As(err, &mismatch):
		return CodeNodeCountMismatch
	case errors.As(err, &missing):
		return CodeMissingParameter
	case errors.As(err, &duplicate):
		return CodeDuplicateComponent
	case errors.As(err, &dupModel):
		return CodeDuplicateModel
	case errors.As(err, &malformed):
		return CodeMalformedNumber
	case errors.As(err, &unrecognized):
		return CodeUnrecognizedLine
	default:
		return CodeInternal
	}
}
