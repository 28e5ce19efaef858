package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/repository"
)

func TestCategoryCreate(t *testing.T) {
	store := newFakeStore()
	svc := NewCategoryService(store, testLogger())
	ctx := context.Background()

	c, err := svc.Create(ctx, "Films", "films")
	require.NoError(t, err)
	assert.Equal(t, "films", c.Slug)

	_, err = svc.Create(ctx, "Movies", "films")
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, "slug", apperror.FieldOf(err))
}

func TestCategoryCreate_Validation(t *testing.T) {
	svc := NewCategoryService(newFakeStore(), testLogger())

	tests := []struct {
		name, catName, slug, field string
	}{
		{"empty name", "", "films", "name"},
		{"long name", strings.Repeat("x", 257), "films", "name"},
		{"bad slug", "Films", "no spaces", "slug"},
		{"long slug", "Films", strings.Repeat("s", 31), "slug"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.catName, tt.slug)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.field, apperror.FieldOf(err))
		})
	}
}

func TestCategoryListAndDelete(t *testing.T) {
	store := newFakeStore()
	svc := NewCategoryService(store, testLogger())
	ctx := context.Background()
	_, _ = svc.Create(ctx, "Films", "films")
	_, _ = svc.Create(ctx, "Books", "books")

	got, err := svc.List(ctx, "oo", repository.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, got.Count)
	assert.Equal(t, "books", got.Results[0].Slug)

	require.NoError(t, svc.Delete(ctx, "films"))
	assert.ErrorIs(t, svc.Delete(ctx, "films"), apperror.ErrNotFound)
}

func TestGenreCreateListDelete(t *testing.T) {
	store := newFakeStore()
	svc := NewGenreService(store, testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, "Rock", "rock")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "Rock", "rock")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.Create(ctx, "Bad", "b@d")
	assert.Equal(t, "slug", apperror.FieldOf(err))

	got, err := svc.List(ctx, "", repository.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Count)

	require.NoError(t, svc.Delete(ctx, "rock"))
	got, _ = svc.List(ctx, "", repository.ListOptions{})
	assert.Zero(t, got.Count)
}
