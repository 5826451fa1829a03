// Package mapping binds values extracted from a JSON response body to
// process variable names.
//
// A mapping specification is a comma separated list of name:path entries,
// for example "var1:$.name,var2:$.address". Paths use JSON-path syntax; a
// path without a leading "$" is taken relative to the document root, so
// "output.name" and "$.output.name" are equivalent.
package mapping

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	taskerrors "github.com/flunq-io/restinvoke/pkg/errors"
)

// SplitMode selects how an entry is split into variable name and path
type SplitMode int

const (
	// SplitFirstColon splits an entry on its first colon only, so a path
	// may itself contain colons.
	SplitFirstColon SplitMode = iota
	// SplitLegacy splits on every colon and rejects entries that do not
	// yield exactly two parts.
	SplitLegacy
)

// String returns the configuration name of the mode
func (m SplitMode) String() string {
	switch m {
	case SplitLegacy:
		return "legacy"
	default:
		return "first_colon"
	}
}

// Mapping binds one JSON-path expression to one variable
type Mapping struct {
	Variable string
	Path     string
}

// Binding is the value extracted for one Mapping
type Binding struct {
	Variable string
	Value    interface{}
}

// ParseMappings parses a mapping specification into its entries, in
// specification order.
func ParseMappings(spec string, mode SplitMode) ([]Mapping, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, taskerrors.MissingField("outputMappings")
	}

	entries := strings.Split(spec, ",")
	mappings := make([]Mapping, 0, len(entries))
	for _, entry := range entries {
		var parts []string
		switch mode {
		case SplitLegacy:
			parts = strings.Split(entry, ":")
		default:
			parts = strings.SplitN(entry, ":", 2)
		}

		if len(parts) != 2 {
			return nil, taskerrors.MalformedMapping(entry,
				fmt.Sprintf("expected name:path, got %d colon-delimited parts", len(parts)))
		}

		variable, path := parts[0], parts[1]
		if mode != SplitLegacy {
			variable, path = strings.TrimSpace(variable), strings.TrimSpace(path)
		}
		if variable == "" {
			return nil, taskerrors.MalformedMapping(entry, "empty variable name")
		}
		if path == "" {
			return nil, taskerrors.MalformedMapping(entry, "empty json path")
		}

		mappings = append(mappings, Mapping{Variable: variable, Path: path})
	}

	return mappings, nil
}

// Extract evaluates every mapping against body. It returns either one
// binding per mapping, in order, or an error and no bindings.
func Extract(body string, mappings []Mapping) ([]Binding, error) {
	var document interface{}
	if err := json.Unmarshal([]byte(body), &document); err != nil {
		return nil, taskerrors.NewInvokeErrorWithCause(taskerrors.CodeMappingEvaluation,
			"output mapping evaluation failed", fmt.Errorf("%w: %w", taskerrors.ErrInvalidJSON, err))
	}

	bindings := make([]Binding, 0, len(mappings))
	for _, m := range mappings {
		value, err := jsonpath.Get(rooted(m.Path), document)
		if err != nil {
			return nil, taskerrors.MappingFailed(m.Variable, m.Path, fmt.Errorf("%w: %w", taskerrors.ErrPathNotFound, err))
		}
		bindings = append(bindings, Binding{Variable: m.Variable, Value: value})
	}

	return bindings, nil
}

func rooted(path string) string {
	if strings.HasPrefix(path, "$") || strings.HasPrefix(path, "@") {
		return path
	}
	return "$." + path
}
