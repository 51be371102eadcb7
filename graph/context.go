package graph

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/hjeronen/FullStackGraphQL/data"
	"github.com/hjeronen/FullStackGraphQL/graph/model"
	"github.com/rs/zerolog"
)

type ContextID string

const Context_Request = ContextID("Request")

// RequestContext is the per-operation state visible to resolvers.
type RequestContext struct {
	CurrentUser *model.User
	Loaders     *data.Loaders

	newLoaders func() *data.Loaders
	scopes     []*data.Loaders
}

func newRequestContext(user *model.User, newLoaders func() *data.Loaders) *RequestContext {
	loaders := newLoaders()
	return &RequestContext{
		CurrentUser: user,
		Loaders:     loaders,
		newLoaders:  newLoaders,
		scopes:      []*data.Loaders{loaders},
	}
}

// beginMutationField gives a mutation root field loaders of its own. Batches
// left by the previous root field are flushed first, so their counts reflect
// the state before this field writes.
func (rc *RequestContext) beginMutationField() {
	if rc.newLoaders == nil {
		return
	}
	if rc.Loaders.BookCount.State() == "empty" {
		return
	}
	rc.Loaders.Flush()
	rc.Loaders = rc.newLoaders()
	rc.scopes = append(rc.scopes, rc.Loaders)
}

// BookCountFetches is the number of bulk book count fetches over every loader
// scope of the operation.
func (rc *RequestContext) BookCountFetches() int {
	n := 0
	for _, loaders := range rc.scopes {
		n += loaders.BookCount.Fetches()
	}
	return n
}

func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, Context_Request, rc)
}

func ForContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(Context_Request).(*RequestContext); ok {
		return rc
	}
	return nil
}

type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// Executor runs GraphQL operations, each in its own RequestContext.
type Executor struct {
	Schema   graphql.Schema
	Resolver *Resolver
}

func NewExecutor(r *Resolver) (*Executor, error) {
	schema, err := NewSchema(r)
	if err != nil {
		return nil, err
	}
	return &Executor{Schema: schema, Resolver: r}, nil
}

func (e *Executor) Execute(ctx context.Context, user *model.User, req Request) *graphql.Result {
	return e.execute(ctx, user, req, nil)
}

// Deliver executes a subscription operation for one event, the payload
// standing in for the value of the root field.
func (e *Executor) Deliver(ctx context.Context, user *model.User, req Request, field string, payload interface{}) *graphql.Result {
	return e.execute(ctx, user, req, map[string]interface{}{field: payload})
}

// Topic maps a subscription root field to its event bus topic.
func (e *Executor) Topic(field string) (string, bool) {
	topic, ok := subscriptionTopics[field]
	return topic, ok
}

func (e *Executor) execute(ctx context.Context, user *model.User, req Request, root map[string]interface{}) *graphql.Result {
	rc := newRequestContext(user, func() *data.Loaders {
		return data.NewLoaders(e.Resolver.DS)
	})
	result := graphql.Do(graphql.Params{
		Schema:         e.Schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		RootObject:     root,
		Context:        WithRequestContext(ctx, rc),
	})
	zerolog.Ctx(ctx).Debug().
		Str("operation", req.OperationName).
		Int("book_count_fetches", rc.BookCountFetches()).
		Int("errors", len(result.Errors)).
		Msg("graphql operation")
	return result
}
