package data

import (
	"context"
	"errors"
	"sync"

	"github.com/graph-gophers/dataloader"
	"github.com/hjeronen/FullStackGraphQL/graph/model"
)

var ErrLoaderConsumed = errors.New("loader already consumed")

// BookSource returns every book with at least its author reference populated.
type BookSource interface {
	BookAuthors(ctx context.Context) ([]*model.Book, error)
}

type loaderState int

const (
	stateEmpty loaderState = iota
	stateAccumulating
	stateFlushing
	stateResolved
)

func (s loaderState) String() string {
	switch s {
	case stateEmpty:
		return "empty"
	case stateAccumulating:
		return "accumulating"
	case stateFlushing:
		return "flushing"
	case stateResolved:
		return "resolved"
	}
	return "unknown"
}

// BookCountLoader resolves the number of books of many authors with a single
// scan of the books collection. Keys are collected until Flush or the first
// thunk call; the batch then leaves once and the loader rejects every later
// load.
type BookCountLoader struct {
	source BookSource

	mu      sync.Mutex
	state   loaderState
	ctx     context.Context
	keys    dataloader.Keys
	seen    map[int]struct{}
	thunks  map[int]dataloader.Thunk
	fetches int
	flush   sync.Once
}

func NewBookCountLoader(source BookSource) *BookCountLoader {
	return &BookCountLoader{
		source: source,
		seen:   make(map[int]struct{}),
	}
}

// Load registers authorID in the pending batch. The returned func flushes the
// batch on first use and blocks until it has resolved.
func (l *BookCountLoader) Load(ctx context.Context, authorID int) func() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case stateFlushing, stateResolved:
		return func() (int, error) {
			return 0, ErrLoaderConsumed
		}
	case stateEmpty:
		l.state = stateAccumulating
		l.ctx = ctx
	}
	if _, ok := l.seen[authorID]; !ok {
		l.seen[authorID] = struct{}{}
		l.keys = append(l.keys, AuthorKey(authorID))
	}
	return func() (int, error) {
		l.Flush()
		return l.result(authorID)
	}
}

// Flush sends the pending keys as one batch and waits for it. Later calls
// return at once.
func (l *BookCountLoader) Flush() {
	l.flush.Do(l.dispatch)
}

// Fetches is the number of bulk fetches issued so far, at most one.
func (l *BookCountLoader) Fetches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fetches
}

// State names the current lifecycle state: empty, accumulating, flushing or resolved.
func (l *BookCountLoader) State() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.String()
}

// dispatch hands the distinct keys to a dataloader whose batch capacity is
// exactly their number, so the batch leaves on the last Load without waiting
// for a timer. Requesters of one key share its dataloader thunk.
func (l *BookCountLoader) dispatch() {
	l.mu.Lock()
	l.state = stateFlushing
	ctx, keys := l.ctx, l.keys
	l.mu.Unlock()

	thunks := make(map[int]dataloader.Thunk, len(keys))
	if len(keys) > 0 {
		loader := dataloader.NewBatchedLoader(l.batchBookCount, dataloader.WithBatchCapacity(len(keys)))
		for _, key := range keys {
			thunks[key.Raw().(int)] = loader.Load(ctx, key)
		}
		for _, thunk := range thunks {
			_, _ = thunk()
		}
	}

	l.mu.Lock()
	l.thunks = thunks
	l.state = stateResolved
	l.mu.Unlock()
}

func (l *BookCountLoader) result(authorID int) (int, error) {
	l.mu.Lock()
	thunk, ok := l.thunks[authorID]
	l.mu.Unlock()
	if !ok {
		return 0, ErrLoaderConsumed
	}
	v, err := thunk()
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (l *BookCountLoader) batchBookCount(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
	l.mu.Lock()
	if l.state != stateFlushing || l.fetches > 0 {
		l.mu.Unlock()
		return failAll(keys, ErrLoaderConsumed)
	}
	l.fetches++
	l.mu.Unlock()

	books, err := l.source.BookAuthors(ctx)
	if err != nil {
		return failAll(keys, err)
	}

	counts := make(map[int]int, len(keys))
	for _, book := range books {
		counts[book.AuthorID]++
	}
	results := make([]*dataloader.Result, len(keys))
	for i, key := range keys {
		results[i] = &dataloader.Result{Data: counts[key.Raw().(int)]}
	}
	return results
}
