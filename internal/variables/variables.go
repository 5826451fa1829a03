package variables

import (
	"context"
)

// Reader reads process variables of one execution
type Reader interface {
	// GetVariable returns the value of name and whether it is set
	GetVariable(ctx context.Context, name string) (interface{}, bool, error)
}

// Writer writes process variables of one execution
type Writer interface {
	// SetVariable sets name to value, replacing any previous value
	SetVariable(ctx context.Context, name string, value interface{}) error
}

// Execution is the host surface a service task runs against: an
// identifier plus read and write access to its variables.
type Execution interface {
	ID() string
	Reader
	Writer
}

// Store persists variables for many executions
type Store interface {
	// Register records an execution so it is known before it writes anything
	Register(ctx context.Context, executionID string) error
	Exists(ctx context.Context, executionID string) (bool, error)
	Get(ctx context.Context, executionID, name string) (interface{}, bool, error)
	Set(ctx context.Context, executionID, name string, value interface{}) error
	GetAll(ctx context.Context, executionID string) (map[string]interface{}, error)
	Delete(ctx context.Context, executionID string) error
}

// StoreExecution binds a Store to a single execution id
type StoreExecution struct {
	id    string
	store Store
}

// NewExecution creates an Execution backed by store
func NewExecution(id string, store Store) *StoreExecution {
	return &StoreExecution{
		id:    id,
		store: store,
	}
}

// ID returns the execution id
func (e *StoreExecution) ID() string {
	return e.id
}

// GetVariable reads a variable of this execution
func (e *StoreExecution) GetVariable(ctx context.Context, name string) (interface{}, bool, error) {
	return e.store.Get(ctx, e.id, name)
}

// SetVariable writes a variable of this execution
func (e *StoreExecution) SetVariable(ctx context.Context, name string, value interface{}) error {
	return e.store.Set(ctx, e.id, name, value)
}

// Variables returns a snapshot of all variables of this execution
func (e *StoreExecution) Variables(ctx context.Context) (map[string]interface{}, error) {
	return e.store.GetAll(ctx, e.id)
}

// Seed writes every entry of values into the execution
func (e *StoreExecution) Seed(ctx context.Context, values map[string]interface{}) error {
	for name, value := range values {
		if err := e.store.Set(ctx, e.id, name, value); err != nil {
			return err
		}
	}
	return nil
}
