package helix

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "streamscout/pkg/errors"
)

// scriptedExecutor replays bodies in order and records every query.
type scriptedExecutor struct {
	bodies  []string
	errAt   int
	err     error
	queries []url.Values
}

func (s *scriptedExecutor) Execute(_ context.Context, _, _ string, q url.Values) ([]byte, error) {
	s.queries = append(s.queries, q)
	n := len(s.queries)
	if s.err != nil && n == s.errAt {
		return nil, s.err
	}
	if n > len(s.bodies) {
		return []byte(`{"data":[]}`), nil
	}
	return []byte(s.bodies[n-1]), nil
}

func TestPagerStopsOnEmptyCursor(t *testing.T) {
	exec := &scriptedExecutor{bodies: []string{
		`{"data":[{"id":"1"},{"id":"2"}],"pagination":{"cursor":"abc"}}`,
		`{"data":[{"id":"3"}],"pagination":{}}`,
	}}
	p := NewPager[Stream](exec, StreamsPath, url.Values{"language": {"de"}}, 2)
	ctx := context.Background()

	first, err := p.Next(ctx)
	require.NoError(t, err)
	assert.Len(t, first.Data, 2)
	assert.Equal(t, "abc", first.Cursor)

	second, err := p.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3", second.Data[0].ID)

	_, err = p.Next(ctx)
	assert.ErrorIs(t, err, Done)
	assert.Len(t, exec.queries, 2, "no fetch after the last page")
	assert.Equal(t, 2, p.Fetched())

	assert.Equal(t, "2", exec.queries[0].Get("first"))
	assert.Equal(t, "de", exec.queries[0].Get("language"))
	assert.Empty(t, exec.queries[0].Get("after"))
	assert.Equal(t, "abc", exec.queries[1].Get("after"))
}

func TestPagerStopsOnEmptyData(t *testing.T) {
	exec := &scriptedExecutor{bodies: []string{`{"data":[],"pagination":{"cursor":"stale"}}`}}
	p := NewPager[Stream](exec, StreamsPath, nil, 100)

	_, err := p.Next(context.Background())
	assert.ErrorIs(t, err, Done)
	_, err = p.Next(context.Background())
	assert.ErrorIs(t, err, Done)
	assert.Len(t, exec.queries, 1)
}

func TestPagerClampsPageSize(t *testing.T) {
	for _, tt := range []struct {
		in   int
		want string
	}{{0, "1"}, {50, "50"}, {500, "100"}} {
		exec := &scriptedExecutor{}
		_, _ = NewPager[Game](exec, GamesPath, nil, tt.in).Next(context.Background())
		assert.Equal(t, tt.want, exec.queries[0].Get("first"))
	}
}

func TestPagerDoesNotMutateCallerQuery(t *testing.T) {
	q := url.Values{"query": {"chess"}}
	exec := &scriptedExecutor{bodies: []string{`{"data":[{"id":"1"}],"pagination":{"cursor":"x"}}`}}
	p := NewPager[Channel](exec, SearchChannelsPath, q, 10)

	_, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, url.Values{"query": {"chess"}}, q)
}

func TestPagerErrorEndsWalk(t *testing.T) {
	boom := errs.NewAPIError(500, "down")
	exec := &scriptedExecutor{
		bodies: []string{`{"data":[{"id":"1"}],"pagination":{"cursor":"a"}}`},
		errAt:  2,
		err:    boom,
	}
	p := NewPager[Stream](exec, StreamsPath, nil, 100)

	_, err := p.Next(context.Background())
	require.NoError(t, err)
	_, err = p.Next(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = p.Next(context.Background())
	assert.ErrorIs(t, err, Done)
}

func TestPagerMalformedPage(t *testing.T) {
	exec := &scriptedExecutor{bodies: []string{`{"data":"nope"}`}}
	_, err := NewPager[Stream](exec, StreamsPath, nil, 100).Next(context.Background())
	assert.True(t, errs.IsType(err, errs.ErrorTypeAPI))
}

func TestPagesIterator(t *testing.T) {
	exec := &scriptedExecutor{bodies: []string{
		`{"data":[{"id":"1"}],"pagination":{"cursor":"a"}}`,
		`{"data":[{"id":"2"}],"pagination":{"cursor":"b"}}`,
		`{"data":[{"id":"3"}],"pagination":{"cursor":"c"}}`,
	}}
	p := NewPager[Stream](exec, StreamsPath, nil, 1)

	var ids []string
	for page, err := range p.Pages(context.Background()) {
		require.NoError(t, err)
		ids = append(ids, page.Data[0].ID)
		if len(ids) == 2 {
			break
		}
	}

	assert.Equal(t, []string{"1", "2"}, ids)
	assert.Len(t, exec.queries, 2, "breaking stops fetching")
}

func TestPagesIteratorYieldsError(t *testing.T) {
	boom := errors.New("boom")
	exec := &scriptedExecutor{errAt: 1, err: boom}

	var seen []error
	for _, err := range NewPager[Stream](exec, StreamsPath, nil, 1).Pages(context.Background()) {
		seen = append(seen, err)
	}
	assert.Equal(t, []error{boom}, seen)
}
