package graph

import (
	"context"
	"strings"

	"github.com/hjeronen/FullStackGraphQL/graph/model"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type DataSource struct {
	DB *gorm.DB
}

func NewDataSource(db *gorm.DB) *DataSource {
	return &DataSource{DB: db}
}

func (ds *DataSource) BookCount(ctx context.Context) (int, error) {
	var count int64
	if result := ds.DB.WithContext(ctx).Model(&model.Book{}).Count(&count); result.Error != nil {
		return 0, errors.Wrap(result.Error, "count books")
	}
	return int(count), nil
}

func (ds *DataSource) AuthorCount(ctx context.Context) (int, error) {
	var count int64
	if result := ds.DB.WithContext(ctx).Model(&model.Author{}).Count(&count); result.Error != nil {
		return 0, errors.Wrap(result.Error, "count authors")
	}
	return int(count), nil
}

// BookAuthors scans the whole books table for author references. It backs the
// per-operation book count loader.
func (ds *DataSource) BookAuthors(ctx context.Context) ([]*model.Book, error) {
	var books []*model.Book
	if result := ds.DB.WithContext(ctx).Select("author_id").Find(&books); result.Error != nil {
		return nil, errors.Wrap(result.Error, "fetch book authors")
	}
	return books, nil
}

func isDuplicateKey(err error, constraint string) bool {
	emsg := err.Error()
	return strings.Contains(emsg, "duplicate key value violates unique constraint") &&
		strings.Contains(emsg, `"`+constraint+`"`)
}
