package data

import (
	"strconv"

	"github.com/graph-gophers/dataloader"
)

// Loaders holds the batched loaders of a single GraphQL operation.
// A Loaders value must never be shared between operations.
type Loaders struct {
	BookCount *BookCountLoader
}

func NewLoaders(source BookSource) *Loaders {
	return &Loaders{
		BookCount: NewBookCountLoader(source),
	}
}

// Flush sends every pending batch.
func (l *Loaders) Flush() {
	l.BookCount.Flush()
}

type AuthorKey int

func (k AuthorKey) String() string {
	return strconv.Itoa(int(k))
}

func (k AuthorKey) Raw() interface{} {
	return int(k)
}

func failAll(keys dataloader.Keys, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, len(keys))
	for i := range keys {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}
