package graph

import (
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/hjeronen/FullStackGraphQL/graph/model"
)

var subscriptionTopics = map[string]string{
	"bookAdded": TopicBookAdded,
}

var AuthorType = graphql.NewObject(
	graphql.ObjectConfig{
		Name: "Author",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
			},
			"name": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
			},
			"born": &graphql.Field{
				Type:    graphql.Int,
				Resolve: resolveAuthorBorn,
			},
			"bookCount": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Int),
				Resolve: resolveAuthorBookCount,
			},
		},
	},
)

var BookType = graphql.NewObject(
	graphql.ObjectConfig{
		Name: "Book",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
			},
			"title": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
			},
			"published": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
			},
			"author": &graphql.Field{
				Type: graphql.NewNonNull(AuthorType),
			},
			"genres": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
			},
		},
	},
)

var UserType = graphql.NewObject(
	graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
			},
			"username": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
			},
			"favoriteGenre": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
			},
		},
	},
)

var TokenType = graphql.NewObject(
	graphql.ObjectConfig{
		Name: "Token",
		Fields: graphql.Fields{
			"value": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
			},
		},
	},
)

func nonNullString() *graphql.ArgumentConfig {
	return &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}
}

func (r *Resolver) queryFields() graphql.Fields {
	return graphql.Fields{
		"bookCount": &graphql.Field{
			Type:    graphql.NewNonNull(graphql.Int),
			Resolve: r.BookCount,
		},
		"authorCount": &graphql.Field{
			Type:    graphql.NewNonNull(graphql.Int),
			Resolve: r.AuthorCount,
		},
		"allBooks": &graphql.Field{
			Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(BookType))),
			Description: "books, optionally filtered by author name and genre",
			Args: graphql.FieldConfigArgument{
				"author": &graphql.ArgumentConfig{Type: graphql.String},
				"genre":  &graphql.ArgumentConfig{Type: graphql.String},
			},
			Resolve: r.AllBooks,
		},
		"allGenres": &graphql.Field{
			Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
			Resolve: r.AllGenres,
		},
		"allAuthors": &graphql.Field{
			Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(AuthorType))),
			Resolve: r.AllAuthors,
		},
		"me": &graphql.Field{
			Type:    UserType,
			Resolve: r.Me,
		},
	}
}

func (r *Resolver) mutationFields() graphql.Fields {
	return graphql.Fields{
		"addBook": &graphql.Field{
			Type:        BookType,
			Description: "add a book, creating its author when needed",
			Args: graphql.FieldConfigArgument{
				"title":     nonNullString(),
				"author":    nonNullString(),
				"published": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				"genres":    &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(graphql.String))},
			},
			Resolve: serial(r.AddBook),
		},
		"editAuthor": &graphql.Field{
			Type: AuthorType,
			Args: graphql.FieldConfigArgument{
				"name":      nonNullString(),
				"setBornTo": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
			},
			Resolve: serial(r.EditAuthor),
		},
		"createUser": &graphql.Field{
			Type: UserType,
			Args: graphql.FieldConfigArgument{
				"username":      nonNullString(),
				"favoriteGenre": nonNullString(),
				"password":      &graphql.ArgumentConfig{Type: graphql.String},
			},
			Resolve: serial(r.CreateUser),
		},
		"login": &graphql.Field{
			Type: TokenType,
			Args: graphql.FieldConfigArgument{
				"username": nonNullString(),
				"password": nonNullString(),
			},
			Resolve: serial(r.Login),
		},
		"editUser": &graphql.Field{
			Type: UserType,
			Args: graphql.FieldConfigArgument{
				"username":      nonNullString(),
				"favoriteGenre": nonNullString(),
			},
			Resolve: serial(r.EditUser),
		},
	}
}

// serial scopes loaders to one mutation root field. Mutation fields run one
// after another but their thunks are only resolved once all have run.
func serial(resolve graphql.FieldResolveFn) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		if rc := ForContext(p.Context); rc != nil {
			rc.beginMutationField()
		}
		return resolve(p)
	}
}

func subscriptionFields() graphql.Fields {
	return graphql.Fields{
		"bookAdded": &graphql.Field{
			Type:    graphql.NewNonNull(BookType),
			Resolve: resolveEvent,
		},
	}
}

func NewSchema(r *Resolver) (graphql.Schema, error) {
	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:        graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: r.queryFields()}),
		Mutation:     graphql.NewObject(graphql.ObjectConfig{Name: "Mutation", Fields: r.mutationFields()}),
		Subscription: graphql.NewObject(graphql.ObjectConfig{Name: "Subscription", Fields: subscriptionFields()}),
	})
	if err != nil {
		return schema, fmt.Errorf("failed to create GraphQL schema, err %v", err)
	}
	return schema, nil
}

func resolveAuthorBorn(p graphql.ResolveParams) (interface{}, error) {
	author, ok := p.Source.(*model.Author)
	if !ok || author.Born == nil {
		return nil, nil
	}
	return *author.Born, nil
}

// resolveEvent reads the event payload placed on the root object by Executor.Deliver.
func resolveEvent(p graphql.ResolveParams) (interface{}, error) {
	if root, ok := p.Source.(map[string]interface{}); ok {
		if v, ok := root[p.Info.FieldName]; ok && v != nil {
			return v, nil
		}
	}
	return nil, fmt.Errorf("no event for subscription field '%s'", p.Info.FieldName)
}
