package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/hjeronen/FullStackGraphQL/auth"
	"github.com/hjeronen/FullStackGraphQL/graph"
	"github.com/hjeronen/FullStackGraphQL/graph/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type call struct {
	user    *model.User
	req     graph.Request
	field   string
	payload interface{}
}

type fakeExecutor struct {
	mu         sync.Mutex
	executions []call
	deliveries []call
}

func (e *fakeExecutor) Execute(ctx context.Context, user *model.User, req graph.Request) *graphql.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.executions = append(e.executions, call{user: user, req: req})
	return &graphql.Result{Data: map[string]interface{}{"bookCount": 7}}
}

func (e *fakeExecutor) Deliver(ctx context.Context, user *model.User, req graph.Request, field string, payload interface{}) *graphql.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deliveries = append(e.deliveries, call{user: user, req: req, field: field, payload: payload})
	return &graphql.Result{Data: map[string]interface{}{field: payload}}
}

func (e *fakeExecutor) Topic(field string) (string, bool) {
	if field == "bookAdded" {
		return graph.TopicBookAdded, true
	}
	return "", false
}

func (e *fakeExecutor) Executions() []call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]call(nil), e.executions...)
}

type fakeUsers map[int]*model.User

func (u fakeUsers) UserByID(ctx context.Context, id int) (*model.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, nil
}

var alice = &model.User{ID: 1, Username: "alice", FavoriteGenre: "refactoring"}

func testAuthenticator() *Authenticator {
	return &Authenticator{Secret: testSecret, Users: fakeUsers{1: alice}}
}

func bearer(t *testing.T, userID int, username string) string {
	token, err := auth.GenerateToken(testSecret, userID, username, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
