package executor

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flunq-io/restinvoke/internal/events"
	"github.com/flunq-io/restinvoke/internal/invoker"
	"github.com/flunq-io/restinvoke/internal/mapping"
	"github.com/flunq-io/restinvoke/internal/variables"
	taskerrors "github.com/flunq-io/restinvoke/pkg/errors"
)

// InvokeTask calls a REST endpoint and writes the response into process
// variables. It is immutable once built and safe for concurrent Execute
// calls.
type InvokeTask struct {
	config    Config
	rules     FieldRules
	invoker   Invoker
	resolver  Resolver
	publisher events.Publisher
	options   Options
	logger    *zap.Logger
}

// NewInvokeTask creates an InvokeTask. Field problems are reported by
// Validate and by failed executions, never here.
func NewInvokeTask(cfg Config, rules FieldRules, deps Dependencies, logger *zap.Logger) *InvokeTask {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &InvokeTask{
		config:    cfg,
		rules:     rules,
		invoker:   deps.Invoker,
		resolver:  deps.Resolver,
		publisher: publisher,
		options:   deps.Options,
		logger:    logger.With(zap.String("task_name", cfg.Name)),
	}
}

// Config returns the task configuration
func (t *InvokeTask) Config() Config {
	return t.config
}

// OutputMode reports which output strategy the configured fields select
func (t *InvokeTask) OutputMode() OutputMode {
	switch {
	case strings.TrimSpace(t.config.OutputMappings) != "":
		return OutputJSONPath
	case t.config.Vout != "":
		return OutputRawBody
	default:
		return OutputNone
	}
}

// Validate checks the static task fields without touching any execution
func (t *InvokeTask) Validate() error {
	_, err := t.prepare()
	return err
}

// prepare validates the literal fields and parses the output mappings
func (t *InvokeTask) prepare() ([]mapping.Mapping, error) {
	cfg := t.config
	mode := t.OutputMode()

	if cfg.ServiceURL == "" {
		return nil, taskerrors.MissingField("serviceURL")
	}
	if invoker.ParseMethod(cfg.Method) == invoker.MethodPost && cfg.Input == "" {
		return nil, taskerrors.MissingField("input")
	}
	if t.rules.RequireVout && cfg.Vout == "" {
		return nil, taskerrors.MissingField("vout")
	}
	if t.rules.RequireMappings && mode != OutputJSONPath {
		return nil, taskerrors.MissingField("outputMappings")
	}
	if !t.rules.AllowMappings && strings.TrimSpace(cfg.OutputMappings) != "" {
		return nil, taskerrors.InvalidConfig("outputMappings", "output mappings are not supported by "+cfg.Variant)
	}

	switch mode {
	case OutputNone:
		return nil, taskerrors.MissingField("vout")
	case OutputJSONPath:
		return mapping.ParseMappings(cfg.OutputMappings, t.options.SplitMode)
	}
	return nil, nil
}

// Execute runs the task against execution. It never returns an error and
// never panics on bad input: every failure is logged with method and URL
// and reported in the returned TaskResult, with no output variable set.
func (t *InvokeTask) Execute(ctx context.Context, execution variables.Execution) *TaskResult {
	startTime := time.Now()
	method := invoker.ParseMethod(t.config.Method)

	result := &TaskResult{
		InvocationID: uuid.New().String(),
		TaskName:     t.config.Name,
		Variant:      t.config.Variant,
		ExecutionID:  execution.ID(),
		Method:       method,
		OutputMode:   t.OutputMode().String(),
		Phase:        PhaseConfigured,
		StartedAt:    startTime,
	}

	// Resolve fields; until resolved, URL carries the configured expression
	result.Phase = PhaseResolvingFields
	result.URL = t.config.ServiceURL
	mappings, err := t.prepare()
	if err != nil {
		return t.fail(ctx, result, err)
	}

	rawURL, err := t.resolver.Resolve(ctx, t.config.ServiceURL, execution)
	if err != nil {
		return t.fail(ctx, result, err)
	}
	result.URL = rawURL

	t.logger.Debug("Executing invoke task on "+rawURL,
		zap.String("invocation_id", result.InvocationID),
		zap.String("execution_id", result.ExecutionID),
		zap.String("method", string(method)))

	uri, err := invoker.ParseURI(rawURL)
	if err != nil {
		return t.fail(ctx, result, err)
	}

	request := invoker.InvocationRequest{URL: uri, Method: method}
	if method == invoker.MethodPost {
		body, err := t.resolver.Resolve(ctx, t.config.Input, execution)
		if err != nil {
			return t.fail(ctx, result, err)
		}
		request.Body = &body
	}

	// Dispatch
	result.Phase = PhaseDispatching
	output, err := t.invoker.Invoke(ctx, request)
	if err != nil {
		return t.fail(ctx, result, err)
	}

	// Map output; every binding is computed before the first write
	result.Phase = PhaseMappingOutput
	var bindings []mapping.Binding
	if mappings != nil {
		bindings, err = mapping.Extract(output, mappings)
		if err != nil {
			return t.fail(ctx, result, err)
		}
	} else {
		bindings = []mapping.Binding{{Variable: t.config.Vout, Value: output}}
	}

	written := make(map[string]interface{}, len(bindings))
	for _, b := range bindings {
		if err := execution.SetVariable(ctx, b.Variable, b.Value); err != nil {
			result.Variables = written
			return t.fail(ctx, result, taskerrors.VariableWriteFailed(b.Variable, err))
		}
		written[b.Variable] = b.Value
	}

	result.Phase = PhaseDone
	result.Success = true
	result.Variables = written
	result.ExecutedAt = time.Now()
	result.Duration = result.ExecutedAt.Sub(startTime)

	t.logger.Info("Invoke task completed",
		zap.String("invocation_id", result.InvocationID),
		zap.String("execution_id", result.ExecutionID),
		zap.String("method", string(method)),
		zap.String("url", rawURL),
		zap.String("output_mode", result.OutputMode),
		zap.Int("variables_set", len(written)),
		zap.Duration("duration", result.Duration))

	t.publish(ctx, result)
	return result
}

func (t *InvokeTask) fail(ctx context.Context, result *TaskResult, err error) *TaskResult {
	result.FailedPhase = result.Phase
	result.Phase = PhaseFailed
	result.Success = false
	result.Err = err
	result.ErrorCode = string(taskerrors.GetErrorCode(err))
	result.Diagnostic = err.Error()
	result.ExecutedAt = time.Now()
	result.Duration = result.ExecutedAt.Sub(result.StartedAt)

	t.logger.Error("Failed to execute "+string(result.Method)+" "+result.URL,
		zap.String("invocation_id", result.InvocationID),
		zap.String("execution_id", result.ExecutionID),
		zap.String("method", string(result.Method)),
		zap.String("url", result.URL),
		zap.String("phase", string(result.FailedPhase)),
		zap.String("error_code", result.ErrorCode),
		zap.Error(err),
		zap.Duration("duration", result.Duration))

	t.publish(ctx, result)
	return result
}

// publish emits the audit event; delivery problems never affect the task
func (t *InvokeTask) publish(ctx context.Context, result *TaskResult) {
	eventType := events.TaskCompleted
	if !result.Success {
		eventType = events.TaskFailed
	}

	event := &events.Event{
		ID:          result.InvocationID,
		Source:      "restinvoke",
		SpecVersion: "1.0",
		Type:        eventType,
		Time:        result.ExecutedAt,
		ExecutionID: result.ExecutionID,
		TaskID:      result.TaskName,
		Data: map[string]interface{}{
			"task_name":    result.TaskName,
			"variant":      result.Variant,
			"method":       string(result.Method),
			"url":          result.URL,
			"output_mode":  result.OutputMode,
			"success":      result.Success,
			"phase":        string(result.Phase),
			"failed_phase": string(result.FailedPhase),
			"error_code":   result.ErrorCode,
			"error":        result.Diagnostic,
			"variables":    variableNames(result.Variables),
			"duration_ms":  result.Duration.Milliseconds(),
		},
	}

	if err := t.publisher.Publish(ctx, event); err != nil {
		t.logger.Warn("Failed to publish task event",
			zap.String("invocation_id", result.InvocationID),
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}

func variableNames(vars map[string]interface{}) []string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
