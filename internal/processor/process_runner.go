package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flunq-io/restinvoke/internal/definition"
	"github.com/flunq-io/restinvoke/internal/executor"
	"github.com/flunq-io/restinvoke/internal/variables"
)

// RunResult is the outcome of running one definition
type RunResult struct {
	ExecutionID string                 `json:"execution_id"`
	Process     string                 `json:"process"`
	Results     []*executor.TaskResult `json:"results"`
	Variables   map[string]interface{} `json:"variables"`
	Success     bool                   `json:"success"`
	Duration    time.Duration          `json:"duration"`
}

// ProcessRunner runs the tasks of a definition in order against one execution
type ProcessRunner struct {
	registry *executor.Registry
	store    variables.Store
	logger   *zap.Logger
}

// NewProcessRunner creates a new ProcessRunner
func NewProcessRunner(registry *executor.Registry, store variables.Store, logger *zap.Logger) *ProcessRunner {
	return &ProcessRunner{
		registry: registry,
		store:    store,
		logger:   logger,
	}
}

// Prepare builds every task of def and checks its configuration, so a bad
// definition is rejected before any request is sent.
func (p *ProcessRunner) Prepare(def *definition.Definition) ([]*executor.InvokeTask, error) {
	tasks := make([]*executor.InvokeTask, 0, len(def.Tasks))
	for _, cfg := range def.Tasks {
		task := p.registry.NewTask(cfg)
		if err := task.Validate(); err != nil {
			return nil, fmt.Errorf("task %s: %w", cfg.Name, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Run prepares and executes def under a fresh execution id. Execution stops
// at the first failed task; the returned error is non-nil only when the run
// could not start or was cancelled.
func (p *ProcessRunner) Run(ctx context.Context, def *definition.Definition) (*RunResult, error) {
	tasks, err := p.Prepare(def)
	if err != nil {
		return nil, err
	}
	return p.RunPrepared(ctx, def, tasks)
}

// RunPrepared executes tasks returned by Prepare for def
func (p *ProcessRunner) RunPrepared(ctx context.Context, def *definition.Definition, tasks []*executor.InvokeTask) (*RunResult, error) {
	start := time.Now()
	execution := variables.NewExecution(uuid.New().String(), p.store)
	logger := p.logger.With(
		zap.String("process", def.Name),
		zap.String("execution_id", execution.ID()))

	if err := p.store.Register(ctx, execution.ID()); err != nil {
		return nil, fmt.Errorf("failed to register execution: %w", err)
	}
	if err := execution.Seed(ctx, def.Variables); err != nil {
		return nil, fmt.Errorf("failed to seed variables: %w", err)
	}

	logger.Info("Starting process", zap.Int("tasks", len(tasks)))

	result := &RunResult{
		ExecutionID: execution.ID(),
		Process:     def.Name,
		Success:     true,
	}

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			logger.Warn("Process cancelled", zap.Error(err))
			result.Success = false
			result.Duration = time.Since(start)
			return result, err
		}

		taskResult := task.Execute(ctx, execution)
		result.Results = append(result.Results, taskResult)

		if !taskResult.Success {
			logger.Error("Process stopped on failed task",
				zap.String("task_name", taskResult.TaskName),
				zap.String("failed_phase", string(taskResult.FailedPhase)),
				zap.String("error_code", taskResult.ErrorCode))
			result.Success = false
			break
		}
	}

	vars, err := execution.Variables(ctx)
	if err != nil {
		logger.Warn("Failed to read final variables", zap.Error(err))
	}
	result.Variables = vars
	result.Duration = time.Since(start)

	logger.Info("Process finished",
		zap.Bool("success", result.Success),
		zap.Any("variables", vars),
		zap.Duration("duration", result.Duration))

	return result, nil
}
