package transport

import (
	"context"
	"net/http"

	"github.com/hjeronen/FullStackGraphQL/auth"
	"github.com/hjeronen/FullStackGraphQL/graph/model"
	"github.com/pkg/errors"
)

type contextKey string

const (
	userKey      contextKey = "user"
	requestIDKey contextKey = "requestID"
)

func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFrom returns the authenticated user of the request, or nil.
func UserFrom(ctx context.Context) *model.User {
	if v, ok := ctx.Value(userKey).(*model.User); ok {
		return v
	}
	return nil
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

type UserFinder interface {
	UserByID(ctx context.Context, id int) (*model.User, error)
}

var ErrInvalidToken = errors.New("invalid token")

// Authenticator resolves bearer tokens to users.
type Authenticator struct {
	Secret string
	Users  UserFinder
}

// Authenticate returns nil, nil for an empty header. A token that does not
// verify, or names an unknown user, yields ErrInvalidToken.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (*model.User, error) {
	if header == "" {
		return nil, nil
	}
	token, ok := auth.BearerToken(header)
	if !ok {
		return nil, nil
	}
	claims, err := auth.ParseToken(a.Secret, token)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	user, err := a.Users.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.Wrap(ErrInvalidToken, "unknown user")
	}
	return user, nil
}
