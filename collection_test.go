package couchparty_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/covrom/couchparty"
	"github.com/covrom/couchparty/internal/couchtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPages(t *testing.T, srv *couchtest.Server, titles ...string) {
	t.Helper()
	for _, title := range titles {
		seed(t, srv, fmt.Sprintf(`{"couchparty-type":"Course","title":%q,"active":true}`, title))
	}
}

func TestCollectionPages(t *testing.T) {
	srv, s := newCourseStore(t, "courses")
	seedPages(t, srv, "a1", "a2", "a3", "a4", "a5", "a6", "a7")
	ctx := context.Background()

	_, err := s.ViewBy("Course", []string{"title"}, couchparty.ViewByOptions{})
	require.NoError(t, err)
	p, err := s.Collection("Course", "by_title", nil, 3)
	require.NoError(t, err)
	assert.Equal(t, "_design/Course", p.DesignID())
	assert.Equal(t, "by_title", p.View())
	assert.Equal(t, 0, p.CurrentPage())

	tests := []struct {
		page int
		want []string
	}{
		{1, []string{"a1", "a2", "a3"}},
		{2, []string{"a4", "a5", "a6"}},
		{3, []string{"a7"}},
		{4, []string{}},
	}
	for _, tt := range tests {
		recs, err := p.Page(ctx, tt.page)
		require.NoError(t, err)
		assert.Equal(t, tt.want, titles(t, recs), "page %d", tt.page)
		assert.Equal(t, tt.page, p.CurrentPage())
	}

	_, err = p.Page(ctx, 0)
	var ce couchparty.ErrorConfiguration
	assert.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, 4, p.CurrentPage())
}

func TestCollectionCursor(t *testing.T) {
	srv, s := newCourseStore(t, "courses")
	seedPages(t, srv, "a1", "a2", "a3", "a4", "a5")
	ctx := context.Background()

	p, err := s.Collection("Course", couchparty.AllView, nil, 2)
	require.NoError(t, err)

	recs, err := p.NextPage(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, 1, p.CurrentPage())

	_, err = p.NextPage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, p.CurrentPage())

	_, err = p.PrevPage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentPage())

	recs, err = p.PrevPage(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, 1, p.CurrentPage())
}

func TestCollectionEachPage(t *testing.T) {
	srv, s := newCourseStore(t, "courses")
	seedPages(t, srv, "a1", "a2", "a3", "a4", "a5", "a6", "a7")
	ctx := context.Background()

	p, err := s.Collection("Course", couchparty.AllView, nil, 3)
	require.NoError(t, err)
	srv.ResetCalls()

	n := 0
	require.NoError(t, p.EachPage(ctx, func(couchparty.Record) error {
		n++
		return nil
	}))
	assert.Equal(t, 7, n)
	assert.Equal(t, 3, srv.Calls(couchtest.GetView))
	assert.Equal(t, 0, p.CurrentPage())

	// a full last page needs one more fetch to see the end
	seedPages(t, srv, "a8", "a9")
	n = 0
	require.NoError(t, p.EachPage(ctx, func(couchparty.Record) error {
		n++
		return nil
	}))
	assert.Equal(t, 9, n)
	assert.Equal(t, 4, srv.Calls(couchtest.GetView))

	stop := errors.New("stop")
	err = p.EachPage(ctx, func(couchparty.Record) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestCollectionRange(t *testing.T) {
	srv, s := newCourseStore(t, "courses")
	seedPages(t, srv, "a1", "a2", "b1", "b2", "b3", "b4", "b5", "c1")
	ctx := context.Background()

	_, err := s.ViewBy("Course", []string{"title"}, couchparty.ViewByOptions{})
	require.NoError(t, err)
	base := couchparty.Options{
		couchparty.OptStartKey: "b",
		couchparty.OptEndKey:   "b\ufff0",
	}
	p, err := s.Collection("Course", "by_title", base, 2)
	require.NoError(t, err)

	var got [][]string
	for n := 1; n <= 3; n++ {
		recs, err := p.Page(ctx, n)
		require.NoError(t, err)
		got = append(got, titles(t, recs))
	}
	assert.Equal(t, [][]string{{"b1", "b2"}, {"b3", "b4"}, {"b5"}}, got)
	assert.Equal(t, couchparty.Options{
		couchparty.OptStartKey: "b",
		couchparty.OptEndKey:   "b\ufff0",
	}, base)
}

func TestCollectionConfiguration(t *testing.T) {
	_, s := newCourseStore(t, "courses")

	tests := []struct {
		name     string
		typ      couchparty.TypeName
		view     string
		base     couchparty.Options
		pageSize int
	}{
		{"no view", "Course", "", nil, 3},
		{"zero page size", "Course", couchparty.AllView, nil, 0},
		{"negative page size", "Course", couchparty.AllView, nil, -1},
		{"limit in base", "Course", couchparty.AllView, couchparty.Options{couchparty.OptLimit: 5}, 3},
		{"skip in base", "Course", couchparty.AllView, couchparty.Options{couchparty.OptSkip: 5}, 3},
		{"unknown view", "Course", "by_nothing", nil, 3},
		{"unknown type", "Ghost", couchparty.AllView, nil, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Collection(tt.typ, tt.view, tt.base, tt.pageSize)
			var ce couchparty.ErrorConfiguration
			assert.True(t, errors.As(err, &ce), "got %v", err)
		})
	}
}

func TestPaginate(t *testing.T) {
	srv, s := newCourseStore(t, "courses")
	seedPages(t, srv, "a1", "a2", "a3", "a4", "a5", "a6")
	ctx := context.Background()
	_, err := s.ViewBy("Course", []string{"title"}, couchparty.ViewByOptions{})
	require.NoError(t, err)

	recs, err := s.Paginate(ctx, couchparty.PaginateOptions{
		Type:    "Course",
		View:    "by_title",
		PerPage: 4,
		Page:    2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a5", "a6"}, titles(t, recs))

	recs, err = s.Paginate(ctx, couchparty.PaginateOptions{Type: "Course"})
	require.NoError(t, err)
	assert.Len(t, recs, 6)

	srv.ResetCalls()
	var got []string
	err = s.PaginatedEach(ctx, couchparty.PaginateOptions{
		Type:    "Course",
		View:    "by_title",
		PerPage: 2,
		Query:   couchparty.Options{couchparty.OptDescending: true},
	}, func(rec couchparty.Record) error {
		c, _ := couchparty.As[Course](rec)
		got = append(got, c.Title)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a6", "a5", "a4", "a3", "a2", "a1"}, got)
	assert.Equal(t, 4, srv.Calls(couchtest.GetView))
}
