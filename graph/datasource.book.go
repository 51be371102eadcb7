package graph

import (
	"context"
	"fmt"

	"github.com/hjeronen/FullStackGraphQL/graph/model"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

func (ds *DataSource) Books(ctx context.Context, filter model.BookFilter) ([]*model.Book, error) {
	tx := ds.DB.WithContext(ctx).Preload("Author")
	if filter.Author != nil {
		author, err := ds.AuthorByName(ctx, *filter.Author)
		if err != nil {
			return nil, err
		}
		if author == nil {
			return []*model.Book{}, nil
		}
		tx = tx.Where("author_id = ?", author.ID)
	}
	if filter.Genre != nil {
		tx = tx.Where("genres @> ?", model.Genres{*filter.Genre})
	}
	books := []*model.Book{}
	if result := tx.Order("id").Find(&books); result.Error != nil {
		return nil, errors.Wrap(result.Error, "find books")
	}
	return books, nil
}

func (ds *DataSource) Genres(ctx context.Context) ([]string, error) {
	genres := []string{}
	result := ds.DB.WithContext(ctx).Raw("SELECT DISTINCT jsonb_array_elements_text(genres) AS genre FROM books ORDER BY genre").Scan(&genres)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "find genres")
	}
	return genres, nil
}

// CreateBook stores a new book, creating its author on first use.
func (ds *DataSource) CreateBook(ctx context.Context, input model.NewBook) (*model.Book, error) {
	author, err := ds.AuthorByName(ctx, input.Author)
	if err != nil {
		return nil, err
	}
	book := &model.Book{
		Title:     input.Title,
		Published: input.Published,
		Genres:    model.Genres(input.Genres),
	}
	if book.Genres == nil {
		book.Genres = model.Genres{}
	}
	if err := model.Validate(book); err != nil {
		return nil, err
	}

	err = ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if author == nil {
			created, err := createAuthor(tx, input.Author)
			if err != nil {
				return err
			}
			author = created
		}
		book.AuthorID = author.ID
		result := tx.Create(book)
		if result.Error != nil {
			if isDuplicateKey(result.Error, "books_title_key") {
				return model.Duplicate("Book", "title", book.Title)
			}
			return errors.Wrap(result.Error, "create book")
		} else if result.RowsAffected != 1 {
			return fmt.Errorf("RowsAffected %v", result.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	book.Author = author
	zerolog.Ctx(ctx).Debug().Int("book_id", book.ID).Int("author_id", author.ID).Msg("book created")
	return book, nil
}
