package graph

import (
	"errors"
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/hjeronen/FullStackGraphQL/auth"
	"github.com/hjeronen/FullStackGraphQL/graph/model"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
)

func currentUser(p graphql.ResolveParams) *model.User {
	if rc := ForContext(p.Context); rc != nil {
		return rc.CurrentUser
	}
	return nil
}

func authenticate(p graphql.ResolveParams) error {
	if currentUser(p) == nil {
		return ErrNotAuthenticated
	}
	return nil
}

func decodeArgs(p graphql.ResolveParams, input interface{}) error {
	if err := mapstructure.Decode(p.Args, input); err != nil {
		return fmt.Errorf("invalid arguments for %s, err %v", p.Info.FieldName, err)
	}
	return nil
}

func (r *Resolver) BookCount(p graphql.ResolveParams) (interface{}, error) {
	return r.DS.BookCount(p.Context)
}

func (r *Resolver) AuthorCount(p graphql.ResolveParams) (interface{}, error) {
	return r.DS.AuthorCount(p.Context)
}

func (r *Resolver) AllBooks(p graphql.ResolveParams) (interface{}, error) {
	var filter model.BookFilter
	if err := decodeArgs(p, &filter); err != nil {
		return nil, err
	}
	return r.DS.Books(p.Context, filter)
}

func (r *Resolver) AllGenres(p graphql.ResolveParams) (interface{}, error) {
	return r.DS.Genres(p.Context)
}

func (r *Resolver) AllAuthors(p graphql.ResolveParams) (interface{}, error) {
	return r.DS.Authors(p.Context)
}

func (r *Resolver) Me(p graphql.ResolveParams) (interface{}, error) {
	if user := currentUser(p); user != nil {
		return user, nil
	}
	return nil, nil
}

func (r *Resolver) AddBook(p graphql.ResolveParams) (interface{}, error) {
	if err := authenticate(p); err != nil {
		return nil, HandleError(p.Context, err)
	}
	var input model.NewBook
	if err := decodeArgs(p, &input); err != nil {
		return nil, HandleError(p.Context, err)
	}
	book, err := r.DS.CreateBook(p.Context, input)
	if err != nil {
		return nil, HandleError(p.Context, err)
	}
	if r.Bus != nil {
		n := r.Bus.Publish(TopicBookAdded, book)
		zerolog.Ctx(p.Context).Debug().Int("subscribers", n).Str("title", book.Title).Msg("book added")
	}
	return book, nil
}

func (r *Resolver) EditAuthor(p graphql.ResolveParams) (interface{}, error) {
	if err := authenticate(p); err != nil {
		return nil, HandleError(p.Context, err)
	}
	var input model.EditAuthor
	if err := decodeArgs(p, &input); err != nil {
		return nil, HandleError(p.Context, err)
	}
	author, err := r.DS.EditAuthor(p.Context, input)
	if err != nil {
		return nil, HandleError(p.Context, err)
	}
	if author == nil {
		return nil, nil
	}
	return author, nil
}

func (r *Resolver) CreateUser(p graphql.ResolveParams) (interface{}, error) {
	var input model.NewUser
	if err := decodeArgs(p, &input); err != nil {
		return nil, HandleError(p.Context, err)
	}
	user, err := r.DS.CreateUser(p.Context, input)
	if err != nil {
		return nil, HandleError(p.Context, err)
	}
	return user, nil
}

func (r *Resolver) Login(p graphql.ResolveParams) (interface{}, error) {
	var input model.Login
	if err := decodeArgs(p, &input); err != nil {
		return nil, HandleError(p.Context, err)
	}
	user, err := r.DS.UserByName(p.Context, input.Username)
	if err != nil {
		return nil, HandleError(p.Context, err)
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, r.Auth.SharedPassword, input.Password) {
		return nil, HandleError(p.Context, ErrLogin)
	}
	token, err := auth.GenerateToken(r.Auth.Secret, user.ID, user.Username, r.Auth.TTL)
	if err != nil {
		return nil, HandleError(p.Context, err)
	}
	return &model.Token{Value: token}, nil
}

func (r *Resolver) EditUser(p graphql.ResolveParams) (interface{}, error) {
	if err := authenticate(p); err != nil {
		return nil, HandleError(p.Context, err)
	}
	var input model.EditUser
	if err := decodeArgs(p, &input); err != nil {
		return nil, HandleError(p.Context, err)
	}
	user, err := r.DS.EditUser(p.Context, input)
	if err != nil {
		return nil, HandleError(p.Context, err)
	}
	if user == nil {
		return nil, nil
	}
	return user, nil
}

// resolveAuthorBookCount defers to the operation's book count loader. The
// returned thunk lets graphql-go collect every author of the response before
// the loader flushes.
func resolveAuthorBookCount(p graphql.ResolveParams) (interface{}, error) {
	author, ok := p.Source.(*model.Author)
	if !ok {
		return nil, fmt.Errorf("unexpected source %T for bookCount", p.Source)
	}
	rc := ForContext(p.Context)
	if rc == nil || rc.Loaders == nil {
		return nil, errors.New("no loaders in request context")
	}
	thunk := rc.Loaders.BookCount.Load(p.Context, author.ID)
	return func() (interface{}, error) {
		count, err := thunk()
		if err != nil {
			return nil, err
		}
		return count, nil
	}, nil
}
