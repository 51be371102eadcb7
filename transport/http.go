package transport

import (
	"context"
	"io"
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/hjeronen/FullStackGraphQL/graph"
	"github.com/hjeronen/FullStackGraphQL/graph/model"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxBodySize = 1 << 20

// Executor runs GraphQL operations on behalf of the transports.
type Executor interface {
	Execute(ctx context.Context, user *model.User, req graph.Request) *graphql.Result
	Deliver(ctx context.Context, user *model.User, req graph.Request, field string, payload interface{}) *graphql.Result
	Topic(field string) (string, bool)
}

type HTTPHandler struct {
	exec Executor
}

func NewHTTPHandler(exec Executor) *HTTPHandler {
	return &HTTPHandler{exec: exec}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req graph.Request
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if v := q.Get("variables"); v != "" {
			if err := json.UnmarshalFromString(v, &req.Variables); err != nil {
				writeError(w, http.StatusBadRequest, "variables must be a JSON object")
				return
			}
		}
	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "request body must be a JSON object")
			return
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "missing query")
		return
	}
	if op, ok := ParseOperation(req.Query, req.OperationName); ok && op.IsSubscription() {
		writeError(w, http.StatusBadRequest, "subscriptions require a websocket connection")
		return
	}

	result := h.exec.Execute(r.Context(), UserFrom(r.Context()), req)
	writeJSON(r.Context(), w, http.StatusOK, result)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("encode response")
		status = http.StatusInternalServerError
		body = []byte(`{"errors":[{"message":"An internal error occurred"}]}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(context.Background(), w, status, &graphql.Result{
		Errors: []gqlerrors.FormattedError{{Message: message}},
	})
}
