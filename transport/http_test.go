package transport

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hjeronen/FullStackGraphQL/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(exec Executor) (*httptest.Server, *graph.EventBus, *WSHandler) {
	bus := graph.NewEventBus(4)
	a := testAuthenticator()
	ws := NewWSHandler(exec, bus, a)
	return httptest.NewServer(Handler(testLogger(), NewHTTPHandler(exec), ws, a)), bus, ws
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHTTPHandler(t *testing.T) {
	exec := &fakeExecutor{}
	srv, _, _ := newTestServer(exec)
	defer srv.Close()

	t.Run("post query", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/", "application/json",
			strings.NewReader(`{"query":"query Count { bookCount }","operationName":"Count"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
		body := decodeBody(t, resp)
		assert.Equal(t, map[string]interface{}{"bookCount": float64(7)}, body["data"])

		calls := exec.Executions()
		require.NotEmpty(t, calls)
		last := calls[len(calls)-1]
		assert.Equal(t, "Count", last.req.OperationName)
		assert.Nil(t, last.user)
	})

	t.Run("get query with variables", func(t *testing.T) {
		q := url.Values{}
		q.Set("query", `query($genre: String) { allBooks(genre: $genre) { title } }`)
		q.Set("variables", `{"genre":"refactoring"}`)
		resp, err := http.Get(srv.URL + "/?" + q.Encode())
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		calls := exec.Executions()
		last := calls[len(calls)-1]
		assert.Equal(t, map[string]interface{}{"genre": "refactoring"}, last.req.Variables)
	})

	t.Run("request id is kept", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/", strings.NewReader(`{"query":"{ bookCount }"}`))
		req.Header.Set("X-Request-Id", "req-42")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "req-42", resp.Header.Get("X-Request-Id"))
	})

	t.Run("subscription over http is rejected", func(t *testing.T) {
		before := len(exec.Executions())
		resp, err := http.Post(srv.URL+"/", "application/json",
			strings.NewReader(`{"query":"subscription { bookAdded { title } }"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeBody(t, resp)
		errs := body["errors"].([]interface{})
		assert.Equal(t, "subscriptions require a websocket connection", errs[0].(map[string]interface{})["message"])
		assert.Len(t, exec.Executions(), before)
	})

	t.Run("missing query", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(`{"query":`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("method not allowed", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, srv.URL+"/", strings.NewReader(`{"query":"{ bookCount }"}`))
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("cors preflight", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/", nil)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("playground", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/playground")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	})
}

func TestAuthMiddleware(t *testing.T) {
	exec := &fakeExecutor{}
	srv, _, _ := newTestServer(exec)
	defer srv.Close()

	post := func(authorization string) *http.Response {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/", strings.NewReader(`{"query":"{ me { username } }"}`))
		req.Header.Set("Content-Type", "application/json")
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("valid token sets the user", func(t *testing.T) {
		resp := post(bearer(t, 1, "alice"))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		calls := exec.Executions()
		assert.Equal(t, alice, calls[len(calls)-1].user)
	})

	t.Run("lowercase scheme", func(t *testing.T) {
		resp := post(strings.Replace(bearer(t, 1, "alice"), "Bearer", "bearer", 1))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		calls := exec.Executions()
		assert.Equal(t, alice, calls[len(calls)-1].user)
	})

	t.Run("invalid token", func(t *testing.T) {
		before := len(exec.Executions())
		resp := post("Bearer not-a-token")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Len(t, exec.Executions(), before)
	})

	t.Run("unknown user", func(t *testing.T) {
		resp := post(bearer(t, 99, "ghost"))
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("other scheme is anonymous", func(t *testing.T) {
		resp := post("Basic YWxpY2U6c2VjcmV0")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		calls := exec.Executions()
		assert.Nil(t, calls[len(calls)-1].user)
	})
}

func TestParseOperation(t *testing.T) {
	op, ok := ParseOperation(`query A { bookCount } subscription B { bookAdded { title } }`, "B")
	require.True(t, ok)
	assert.True(t, op.IsSubscription())
	assert.Equal(t, "B", op.Name)
	assert.Equal(t, []string{"bookAdded"}, op.Fields)

	op, ok = ParseOperation(`{ bookCount authorCount }`, "")
	require.True(t, ok)
	assert.False(t, op.IsSubscription())
	assert.Equal(t, []string{"bookCount", "authorCount"}, op.Fields)

	_, ok = ParseOperation(`{ bookCount `, "")
	assert.False(t, ok)

	_, ok = ParseOperation(`query A { bookCount }`, "C")
	assert.False(t, ok)
}
