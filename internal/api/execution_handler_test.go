package api

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/flunq-io/restinvoke/internal/executor"
	"github.com/flunq-io/restinvoke/internal/expression"
	"github.com/flunq-io/restinvoke/internal/invoker"
	"github.com/flunq-io/restinvoke/internal/processor"
	"github.com/flunq-io/restinvoke/internal/variables"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return newTestRouterWith(t, variables.NewMemoryStore(0), zap.NewNop())
}

func newTestRouterWith(t *testing.T, store variables.Store, logger *zap.Logger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	inv := invoker.New(invoker.DefaultConfig(), logger)
	t.Cleanup(inv.Close)

	registry := executor.NewRegistry(executor.Dependencies{
		Invoker:  inv,
		Resolver: expression.NewEvaluator(logger),
	}, logger)

	runner := processor.NewProcessRunner(registry, store, logger)

	return NewRouter(NewExecutionHandler(runner, store, logger), NewHealthHandler(nil), logger)
}

func TestRunAndReadVariables(t *testing.T) {
	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"a","address":"b"}`))
	}))
	defer service.Close()

	router := newTestRouter(t)

	body := fmt.Sprintf(`
name: customer
tasks:
  - name: lookup
    type: JSONRESTInvokeTask
    serviceURL: %s/customers
    outputMappings: "var1:$.name,var2:$.address"
`, service.URL)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/executions", strings.NewReader(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	var result processor.RunResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "customer", result.Process)
	assert.Equal(t, map[string]interface{}{"var1": "a", "var2": "b"}, result.Variables)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/executions/"+result.ExecutionID+"/variables", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var vars VariablesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vars))
	assert.Equal(t, result.ExecutionID, vars.ExecutionID)
	assert.Equal(t, "a", vars.Variables["var1"])
}

func TestRunRejectsDefinitions(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{name: "empty body", body: "", wantStatus: http.StatusBadRequest, wantCode: ErrorCodeValidation},
		{name: "schema violation", body: "name: p\ntasks: []\n", wantStatus: http.StatusBadRequest, wantCode: ErrorCodeInvalidDefinition},
		{
			name:       "post without input",
			body:       "name: p\ntasks:\n  - name: a\n    serviceURL: http://localhost/x\n    method: POST\n    vout: out\n",
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   ErrorCodeInvalidDefinition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/executions", strings.NewReader(tt.body))
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestVariablesUnknownExecution(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/executions/missing/variables", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func runDefinition(t *testing.T, router *gin.Engine, body string) processor.RunResult {
	t.Helper()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/executions", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result processor.RunResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func TestDeleteReleasesExecutions(t *testing.T) {
	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("12"))
	}))
	defer service.Close()

	store := variables.NewMemoryStore(0)
	router := newTestRouterWith(t, store, zap.NewNop())
	body := fmt.Sprintf("name: stock\ntasks:\n  - name: a\n    serviceURL: %s\n    vout: stock\n", service.URL)

	ids := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		ids = append(ids, runDefinition(t, router, body).ExecutionID)
	}
	assert.Equal(t, 50, store.Len())

	for _, id := range ids {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/executions/"+id, nil))
		require.Equal(t, http.StatusNoContent, w.Code)
	}
	assert.Equal(t, 0, store.Len())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/executions/"+ids[0], nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVariablesOfExecutionWithoutOutput(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	router := newTestRouter(t)
	result := runDefinition(t, router, fmt.Sprintf("name: down\ntasks:\n  - name: a\n    serviceURL: http://%s/x\n    vout: out\n", addr))
	require.False(t, result.Success)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/executions/"+result.ExecutionID+"/variables", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var vars VariablesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vars))
	assert.Equal(t, result.ExecutionID, vars.ExecutionID)
	assert.Empty(t, vars.Variables)
}

func TestRunBuildsTasksOnce(t *testing.T) {
	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer service.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	router := newTestRouterWith(t, variables.NewMemoryStore(0), zap.New(core))

	result := runDefinition(t, router, fmt.Sprintf("name: custom\ntasks:\n  - name: a\n    type: CustomInvokeTask\n    serviceURL: %s\n    vout: out\n", service.URL))
	require.True(t, result.Success)

	assert.Equal(t, 1, logs.FilterMessage("Unknown task variant, using generic rules").Len())
}

func TestHealthWithoutRedis(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Empty(t, resp.Dependencies)
}
