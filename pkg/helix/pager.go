package helix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"

	errs "streamscout/pkg/errors"
)

// MaxPageSize is the largest `first` Helix accepts.
const MaxPageSize = 100

// Done is returned by Pager.Next once the sequence is exhausted.
var Done = errors.New("no more pages")

// Page is one fetched page.
type Page[T any] struct {
	Data   []T
	Cursor string
}

// Pager walks a cursor-paginated endpoint one page at a time. It is lazy,
// forward only and not safe for concurrent use. The walk ends after a page
// with no data or no cursor.
type Pager[T any] struct {
	exec  Executor
	path  string
	query url.Values
	first int

	cursor  string
	done    bool
	fetched int
}

// NewPager prepares a walk over path. first is clamped to [1, MaxPageSize].
func NewPager[T any](exec Executor, path string, query url.Values, first int) *Pager[T] {
	q := url.Values{}
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}
	return &Pager[T]{
		exec:  exec,
		path:  path,
		query: q,
		first: min(max(first, 1), MaxPageSize),
	}
}

// Next fetches the following page, or returns Done.
func (p *Pager[T]) Next(ctx context.Context) (*Page[T], error) {
	if p.done {
		return nil, Done
	}

	q := url.Values{}
	for k, v := range p.query {
		q[k] = v
	}
	q.Set("first", strconv.Itoa(p.first))
	if p.cursor != "" {
		q.Set("after", p.cursor)
	}

	body, err := p.exec.Execute(ctx, http.MethodGet, p.path, q)
	if err != nil {
		p.done = true
		return nil, err
	}
	p.fetched++

	var resp Response[T]
	if err := json.Unmarshal(body, &resp); err != nil {
		p.done = true
		return nil, errs.NewAPIError(http.StatusOK, fmt.Sprintf("malformed %s page: %v", p.path, err))
	}

	p.cursor = resp.Pagination.Cursor
	if len(resp.Data) == 0 {
		p.done = true
		return nil, Done
	}
	if p.cursor == "" {
		p.done = true
	}

	return &Page[T]{Data: resp.Data, Cursor: p.cursor}, nil
}

// Pages adapts Next to a range-over-func sequence. Iteration stops at the end
// of the walk or after yielding the first error.
func (p *Pager[T]) Pages(ctx context.Context) iter.Seq2[*Page[T], error] {
	return func(yield func(*Page[T], error) bool) {
		for {
			page, err := p.Next(ctx)
			if errors.Is(err, Done) {
				return
			}
			if !yield(page, err) || err != nil {
				return
			}
		}
	}
}

// Fetched reports how many pages were requested so far.
func (p *Pager[T]) Fetched() int { return p.fetched }
