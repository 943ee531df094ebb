package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteReviewPreservesLibraryScore(t *testing.T) {
	e := newTestEnv(t, 1)
	ctx := t.Context()

	_, err := e.library.SetScore(ctx, 1, anime100, 8, snap)
	require.NoError(t, err)
	_, err = e.reviews.SubmitReview(ctx, 1, anime100, "Slow start but it pays off.", 6)
	require.NoError(t, err)

	before, err := e.library.Entry(ctx, 1, anime100)
	require.NoError(t, err)
	assert.Equal(t, 6, before.Score, "review score mirrored into library")

	require.NoError(t, e.reviews.DeleteReview(ctx, 1, anime100))

	after, err := e.library.Entry(ctx, 1, anime100)
	require.NoError(t, err)
	assert.Equal(t, before.Score, after.Score)

	_, err = e.reviews.Review(ctx, 1, anime100)
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestSubmitReviewValidation(t *testing.T) {
	e := newTestEnv(t, 1)
	ctx := t.Context()

	_, err := e.reviews.SubmitReview(ctx, 1, anime100, "   too short  ", 5)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.reviews.SubmitReview(ctx, 1, anime100, strings.Repeat("a", 20), 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.reviews.SubmitReview(ctx, 0, anime100, strings.Repeat("a", 20), 5)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSubmitReviewUpserts(t *testing.T) {
	e := newTestEnv(t, 1, 2)
	ctx := t.Context()

	_, err := e.reviews.SubmitReview(ctx, 1, anime100, "First impressions are great.", 7)
	require.NoError(t, err)
	review, err := e.reviews.SubmitReview(ctx, 1, anime100, "  Finished it, still great.  ", 9)
	require.NoError(t, err)
	assert.Equal(t, "Finished it, still great.", review.Content)
	assert.Equal(t, 9, review.Score)

	_, err = e.reviews.SubmitReview(ctx, 2, anime100, "Not really my kind of show.", 4)
	require.NoError(t, err)

	reviews, err := e.reviews.ReviewsFor(ctx, anime100, 1, 20)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
}

func TestDeleteReviewOwnerOnly(t *testing.T) {
	e := newTestEnv(t, 1, 2)
	ctx := t.Context()

	_, err := e.reviews.SubmitReview(ctx, 1, anime100, "Mine and only mine.", 7)
	require.NoError(t, err)

	assert.ErrorIs(t, e.reviews.DeleteReview(ctx, 2, anime100), ErrReviewNotFound)
	_, err = e.reviews.Review(ctx, 1, anime100)
	assert.NoError(t, err)
}
