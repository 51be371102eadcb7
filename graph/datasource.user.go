package graph

import (
	"context"
	"fmt"

	"github.com/hjeronen/FullStackGraphQL/auth"
	"github.com/hjeronen/FullStackGraphQL/graph/model"
	"github.com/pkg/errors"
)

func (ds *DataSource) CreateUser(ctx context.Context, input model.NewUser) (*model.User, error) {
	user := &model.User{
		Username:      input.Username,
		FavoriteGenre: input.FavoriteGenre,
	}
	if err := model.Validate(user); err != nil {
		return nil, err
	}
	if input.Password != nil {
		hash, err := auth.HashPassword(*input.Password)
		if err != nil {
			return nil, errors.Wrap(err, "hash password")
		}
		user.PasswordHash = hash
	}
	result := ds.DB.WithContext(ctx).Create(user)
	if result.Error != nil {
		if isDuplicateKey(result.Error, "users_username_key") {
			return nil, model.Duplicate("User", "username", user.Username)
		}
		return nil, errors.Wrap(result.Error, "create user")
	} else if result.RowsAffected != 1 {
		return nil, fmt.Errorf("RowsAffected %v", result.RowsAffected)
	}
	return user, nil
}

// UserByName returns nil without an error when no user has that name.
func (ds *DataSource) UserByName(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	result := ds.DB.WithContext(ctx).Where("username = ?", username).Limit(1).Find(&user)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "find user")
	}
	if result.RowsAffected != 1 {
		return nil, nil
	}
	return &user, nil
}

// UserByID returns nil without an error when the user does not exist.
func (ds *DataSource) UserByID(ctx context.Context, id int) (*model.User, error) {
	var user model.User
	result := ds.DB.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&user)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "find user")
	}
	if result.RowsAffected != 1 {
		return nil, nil
	}
	return &user, nil
}

func (ds *DataSource) EditUser(ctx context.Context, input model.EditUser) (*model.User, error) {
	user, err := ds.UserByName(ctx, input.Username)
	if err != nil || user == nil {
		return nil, err
	}
	user.FavoriteGenre = input.FavoriteGenre
	result := ds.DB.WithContext(ctx).Model(user).Update("favorite_genre", input.FavoriteGenre)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "update user")
	} else if result.RowsAffected != 1 {
		return nil, fmt.Errorf("RowsAffected %v", result.RowsAffected)
	}
	return user, nil
}
