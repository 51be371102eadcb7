package graph

import (
	"context"

	"github.com/hjeronen/FullStackGraphQL/graph/model"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	CodeAuthorValidation = "AUTHOR_VALIDATION_FAILED"
	CodeBookValidation   = "BOOK_VALIDATION_FAILED"
	CodeBadUserInput     = "BAD_USER_INPUT"
	CodeInternal         = "INTERNAL_SERVER_ERROR"
)

var (
	ErrNotAuthenticated = errors.New("User not authenticated")
	ErrLogin            = errors.New("Wrong username or password")
)

// Error is a GraphQL error carrying an error code in its extensions.
type Error struct {
	Message     string
	Code        string
	InvalidArgs []string
	cause       error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"code": e.Code}
	if len(e.InvalidArgs) > 0 {
		ext["invalidArgs"] = e.InvalidArgs
	}
	return ext
}

func validationCode(modelName string) string {
	switch modelName {
	case "Author":
		return CodeAuthorValidation
	case "Book":
		return CodeBookValidation
	default:
		return CodeBadUserInput
	}
}

// HandleError classifies a resolver error. Unknown errors are logged and
// replaced by a generic message.
func HandleError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr
	}
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return &Error{
			Message:     verr.Error(),
			Code:        validationCode(verr.Model),
			InvalidArgs: verr.Fields,
			cause:       err,
		}
	}
	if errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrLogin) {
		return &Error{Message: err.Error(), Code: CodeBadUserInput, cause: err}
	}
	zerolog.Ctx(ctx).Error().Err(err).Msg("unexpected resolver error")
	return &Error{Message: "An unexpected error occurred", Code: CodeInternal, cause: err}
}
