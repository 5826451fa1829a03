package expression

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/flunq-io/restinvoke/internal/variables"
	taskerrors "github.com/flunq-io/restinvoke/pkg/errors"
)

var placeholderPattern = regexp.MustCompile(`\$\{([^}]*)\}`)

// Evaluator resolves `${...}` placeholders in task fields against the
// variables of an execution. A placeholder names a variable and may walk
// into map values with dot notation: `${order.customer.id}`.
type Evaluator struct {
	logger *zap.Logger
}

// NewEvaluator creates a new Evaluator
func NewEvaluator(logger *zap.Logger) *Evaluator {
	return &Evaluator{
		logger: logger,
	}
}

// Resolve substitutes every placeholder in expression. Text outside
// placeholders is kept verbatim; string values are inserted as-is and any
// other value is inserted JSON-encoded.
func (e *Evaluator) Resolve(ctx context.Context, expression string, vars variables.Reader) (string, error) {
	matches := placeholderPattern.FindAllStringSubmatchIndex(expression, -1)
	if len(matches) == 0 {
		return expression, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(expression[last:m[0]])

		path := strings.TrimSpace(expression[m[2]:m[3]])
		value, err := e.lookup(ctx, path, vars)
		if err != nil {
			return "", taskerrors.NewInvokeErrorWithCause(taskerrors.CodeConfiguration,
				"failed to resolve expression", err).
				WithDetail("expression", expression)
		}

		text, err := stringify(value)
		if err != nil {
			return "", taskerrors.NewInvokeErrorWithCause(taskerrors.CodeConfiguration,
				"failed to render expression value", err).
				WithDetail("expression", expression)
		}
		b.WriteString(text)
		last = m[1]
	}
	b.WriteString(expression[last:])

	resolved := b.String()
	e.logger.Debug("Expression resolved",
		zap.String("expression", expression),
		zap.String("result", resolved))

	return resolved, nil
}

// lookup finds the value addressed by a dot separated path
func (e *Evaluator) lookup(ctx context.Context, path string, vars variables.Reader) (interface{}, error) {
	if path == "" {
		return nil, fmt.Errorf("empty placeholder")
	}

	parts := strings.Split(path, ".")
	value, ok, err := vars.GetVariable(ctx, parts[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read variable '%s': %w", parts[0], err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", taskerrors.ErrVariableNotFound, parts[0])
	}

	for _, part := range parts[1:] {
		current, ok := value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("path '%s' not found: '%s' is not a map", path, part)
		}
		if value, ok = current[part]; !ok {
			return nil, fmt.Errorf("path '%s' not found: field '%s' does not exist", path, part)
		}
	}

	return value, nil
}

func stringify(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
