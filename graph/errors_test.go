package graph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hjeronen/FullStackGraphQL/graph"
	"github.com/hjeronen/FullStackGraphQL/graph/model"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	ctx := context.Background()

	classify := func(err error) *graph.Error {
		var gerr *graph.Error
		require.True(t, errors.As(graph.HandleError(ctx, err), &gerr))
		return gerr
	}

	assert.Nil(t, graph.HandleError(ctx, nil))

	t.Run("validation", func(t *testing.T) {
		err := classify(model.Validate(&model.Author{Name: "Bob"}))
		assert.Equal(t, graph.CodeAuthorValidation, err.Code)
		assert.Equal(t, []string{"name"}, err.InvalidArgs)
		assert.Equal(t, map[string]interface{}{
			"code":        graph.CodeAuthorValidation,
			"invalidArgs": []string{"name"},
		}, err.Extensions())

		err = classify(model.Duplicate("Book", "title", "Demons"))
		assert.Equal(t, graph.CodeBookValidation, err.Code)

		err = classify(model.Duplicate("User", "username", "mluukkai"))
		assert.Equal(t, graph.CodeBadUserInput, err.Code)
	})

	t.Run("authentication", func(t *testing.T) {
		err := classify(graph.ErrNotAuthenticated)
		assert.Equal(t, "User not authenticated", err.Message)
		assert.Equal(t, graph.CodeBadUserInput, err.Code)
		assert.Equal(t, map[string]interface{}{"code": graph.CodeBadUserInput}, err.Extensions())

		err = classify(pkgerrors.Wrap(graph.ErrLogin, "login"))
		assert.Equal(t, graph.CodeBadUserInput, err.Code)
	})

	t.Run("unexpected", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := classify(pkgerrors.Wrap(cause, "find author"))
		assert.Equal(t, "An unexpected error occurred", err.Message)
		assert.Equal(t, graph.CodeInternal, err.Code)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("already classified", func(t *testing.T) {
		in := &graph.Error{Message: "custom", Code: graph.CodeBadUserInput}
		assert.Same(t, in, graph.HandleError(ctx, in))
	})
}
