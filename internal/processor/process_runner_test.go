package processor

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flunq-io/restinvoke/internal/definition"
	"github.com/flunq-io/restinvoke/internal/executor"
	"github.com/flunq-io/restinvoke/internal/expression"
	"github.com/flunq-io/restinvoke/internal/invoker"
	"github.com/flunq-io/restinvoke/internal/variables"
	taskerrors "github.com/flunq-io/restinvoke/pkg/errors"
)

func newRunner(t *testing.T, store variables.Store) *ProcessRunner {
	t.Helper()

	logger := zap.NewNop()
	inv := invoker.New(invoker.DefaultConfig(), logger)
	t.Cleanup(inv.Close)

	registry := executor.NewRegistry(executor.Dependencies{
		Invoker:  inv,
		Resolver: expression.NewEvaluator(logger),
	}, logger)

	return NewProcessRunner(registry, store, logger)
}

func inventoryServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/woods/stock/chairs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("12"))
	})
	mux.HandleFunc("/customers", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, `{"stock":"12"}`, string(body))
		w.Write([]byte(`{"name":"a","address":"b"}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRunExecutesTasksInOrder(t *testing.T) {
	server := inventoryServer(t)
	store := variables.NewMemoryStore(0)
	runner := newRunner(t, store)

	def := &definition.Definition{
		Name:      "inventory",
		Variables: map[string]interface{}{"service1": "chairs"},
		Tasks: []executor.Config{
			{
				Name:       "checkInventory",
				Variant:    executor.VariantSync,
				ServiceURL: server.URL + "/woods/stock/${service1}",
				Vout:       "stock",
			},
			{
				Name:           "lookupCustomer",
				Variant:        executor.VariantJSONREST,
				ServiceURL:     server.URL + "/customers",
				Method:         "POST",
				Input:          `{"stock":"${stock}"}`,
				OutputMappings: "var1:$.name,var2:$.address",
			},
		},
	}

	result, err := runner.Run(context.Background(), def)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.NotEmpty(t, result.ExecutionID)
	require.Len(t, result.Results, 2)
	assert.Equal(t, map[string]interface{}{
		"service1": "chairs",
		"stock":    "12",
		"var1":     "a",
		"var2":     "b",
	}, result.Variables)

	stored, err := store.GetAll(context.Background(), result.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, result.Variables, stored)
}

func TestRunStopsAtFailedTask(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	store := variables.NewMemoryStore(0)
	runner := newRunner(t, store)
	def := &definition.Definition{
		Name: "broken",
		Tasks: []executor.Config{
			{Name: "unreachable", ServiceURL: "http://" + addr + "/x", Vout: "a"},
			{Name: "never", ServiceURL: server.URL, Vout: "b"},
		},
	}

	result, err := runner.Run(context.Background(), def)
	require.NoError(t, err)

	assert.False(t, result.Success)
	require.Len(t, result.Results, 1)
	assert.Equal(t, executor.PhaseDispatching, result.Results[0].FailedPhase)
	assert.Equal(t, string(taskerrors.CodeNetwork), result.Results[0].ErrorCode)
	assert.Empty(t, result.Variables)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	exists, err := store.Exists(context.Background(), result.ExecutionID)
	require.NoError(t, err)
	assert.True(t, exists, "execution is registered even when it wrote nothing")
}

func TestPrepareRejectsInvalidTask(t *testing.T) {
	runner := newRunner(t, variables.NewMemoryStore(0))
	def := &definition.Definition{
		Name: "invalid",
		Tasks: []executor.Config{
			{Name: "post", ServiceURL: "http://localhost/x", Method: "POST", Vout: "out"},
		},
	}

	_, err := runner.Run(context.Background(), def)
	require.Error(t, err)
	assert.True(t, taskerrors.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "post")
}

func TestRunCancelled(t *testing.T) {
	runner := newRunner(t, variables.NewMemoryStore(0))
	def := &definition.Definition{
		Name:  "cancelled",
		Tasks: []executor.Config{{Name: "a", ServiceURL: "http://localhost/x", Vout: "out"}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := runner.Run(ctx, def)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Empty(t, result.Results)
}
