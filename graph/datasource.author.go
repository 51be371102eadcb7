package graph

import (
	"context"
	"fmt"

	"github.com/hjeronen/FullStackGraphQL/graph/model"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

func (ds *DataSource) Authors(ctx context.Context) ([]*model.Author, error) {
	authors := []*model.Author{}
	if result := ds.DB.WithContext(ctx).Order("id").Find(&authors); result.Error != nil {
		return nil, errors.Wrap(result.Error, "find authors")
	}
	return authors, nil
}

// AuthorByName returns nil without an error when no author has that name.
func (ds *DataSource) AuthorByName(ctx context.Context, name string) (*model.Author, error) {
	var author model.Author
	result := ds.DB.WithContext(ctx).Where("name = ?", name).Limit(1).Find(&author)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "find author")
	}
	if result.RowsAffected != 1 {
		return nil, nil
	}
	return &author, nil
}

func createAuthor(tx *gorm.DB, name string) (*model.Author, error) {
	author := &model.Author{Name: name}
	if err := model.Validate(author); err != nil {
		return nil, err
	}
	result := tx.Create(author)
	if result.Error != nil {
		if isDuplicateKey(result.Error, "authors_name_key") {
			return nil, model.Duplicate("Author", "name", name)
		}
		return nil, errors.Wrap(result.Error, "create author")
	} else if result.RowsAffected != 1 {
		return nil, fmt.Errorf("RowsAffected %v", result.RowsAffected)
	}
	return author, nil
}

// EditAuthor sets the birth year of the named author. An unknown author yields nil, nil.
func (ds *DataSource) EditAuthor(ctx context.Context, input model.EditAuthor) (*model.Author, error) {
	author, err := ds.AuthorByName(ctx, input.Name)
	if err != nil || author == nil {
		return nil, err
	}
	author.Born = Of(input.SetBornTo)
	if err := model.Validate(author); err != nil {
		return nil, err
	}
	result := ds.DB.WithContext(ctx).Model(author).Update("born", input.SetBornTo)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "update author")
	} else if result.RowsAffected != 1 {
		return nil, fmt.Errorf("RowsAffected %v", result.RowsAffected)
	}
	zerolog.Ctx(ctx).Debug().Int("author_id", author.ID).Int("born", input.SetBornTo).Msg("author updated")
	return author, nil
}
