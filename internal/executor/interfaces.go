package executor

import (
	"context"
	"time"

	"github.com/flunq-io/restinvoke/internal/invoker"
	"github.com/flunq-io/restinvoke/internal/mapping"
	"github.com/flunq-io/restinvoke/internal/variables"
)

// Invoker performs one outbound HTTP call and returns the response body
type Invoker interface {
	Invoke(ctx context.Context, req invoker.InvocationRequest) (string, error)
}

// Resolver evaluates a templated task field against execution variables.
// The expression language belongs to the host engine.
type Resolver interface {
	Resolve(ctx context.Context, expression string, vars variables.Reader) (string, error)
}

// Config holds the fields of one service task as declared in a process
// definition. ServiceURL and Input are expressions; the rest are literals.
type Config struct {
	Name           string `json:"name" yaml:"name"`
	Variant        string `json:"type,omitempty" yaml:"type,omitempty"`
	ServiceURL     string `json:"serviceURL" yaml:"serviceURL"`
	Method         string `json:"method,omitempty" yaml:"method,omitempty"`
	Input          string `json:"input,omitempty" yaml:"input,omitempty"`
	Vout           string `json:"vout,omitempty" yaml:"vout,omitempty"`
	OutputMappings string `json:"outputMappings,omitempty" yaml:"outputMappings,omitempty"`
}

// Options tune behaviour shared by all tasks
type Options struct {
	// SplitMode controls how outputMappings entries are split
	SplitMode mapping.SplitMode
}

// OutputMode selects where a response goes
type OutputMode int

const (
	// OutputNone means no output field is configured
	OutputNone OutputMode = iota
	// OutputRawBody stores the whole body under Vout
	OutputRawBody
	// OutputJSONPath stores one extracted value per output mapping
	OutputJSONPath
)

// String returns the log name of the mode
func (m OutputMode) String() string {
	switch m {
	case OutputRawBody:
		return "raw_body"
	case OutputJSONPath:
		return "json_path"
	default:
		return "none"
	}
}

// Phase is a step of a single task execution
type Phase string

const (
	PhaseConfigured      Phase = "configured"
	PhaseResolvingFields Phase = "resolving_fields"
	PhaseDispatching     Phase = "dispatching"
	PhaseMappingOutput   Phase = "mapping_output"
	PhaseDone            Phase = "done"
	PhaseFailed          Phase = "failed"
)

// TaskResult is the outcome of one execution. A failed execution carries
// the phase it failed in and a diagnostic, and has written no variables
// unless the variable store itself failed part way through.
type TaskResult struct {
	InvocationID string                 `json:"invocation_id"`
	TaskName     string                 `json:"task_name"`
	Variant      string                 `json:"variant"`
	ExecutionID  string                 `json:"execution_id"`
	Method       invoker.Method         `json:"method"`
	URL          string                 `json:"url,omitempty"`
	OutputMode   string                 `json:"output_mode"`
	Success      bool                   `json:"success"`
	Phase        Phase                  `json:"phase"`
	FailedPhase  Phase                  `json:"failed_phase,omitempty"`
	ErrorCode    string                 `json:"error_code,omitempty"`
	Diagnostic   string                 `json:"diagnostic,omitempty"`
	Err          error                  `json:"-"`
	Variables    map[string]interface{} `json:"variables,omitempty"`
	Duration     time.Duration          `json:"duration"`
	StartedAt    time.Time              `json:"started_at"`
	ExecutedAt   time.Time              `json:"executed_at"`
}
