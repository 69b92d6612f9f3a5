package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlistings/listings-refinery/internal/core/domain"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Beachside Retreat", "beachside-retreat"},
		{"3 Bed House, Newtown!", "3-bed-house-newtown"},
		{"  --Hello--World--  ", "hello-world"},
		{"UPPER CASE", "upper-case"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.title), "title %q", tt.title)
	}
}

func TestUniqueSlug(t *testing.T) {
	store := newFakeStore()
	svc := testService(store, nil)
	ctx := context.Background()

	slug, err := svc.uniqueSlug(ctx, "Beach House", "100")
	require.NoError(t, err)
	assert.Equal(t, "beach-house", slug)

	// Another listing already owns the slug
	store.slugOwners["beach-house"] = "other"
	slug, err = svc.uniqueSlug(ctx, "Beach House", "100")
	require.NoError(t, err)
	assert.Equal(t, "beach-house-2", slug)

	store.slugOwners["beach-house-2"] = "other"
	slug, err = svc.uniqueSlug(ctx, "Beach House", "100")
	require.NoError(t, err)
	assert.Equal(t, "beach-house-3", slug)

	// The listing's own slug is never a collision
	store.slugOwners["harbour-view"] = "200"
	slug, err = svc.uniqueSlug(ctx, "Harbour View", "200")
	require.NoError(t, err)
	assert.Equal(t, "harbour-view", slug)
}

func TestUniqueSlug_EmptyTitleUsesExternalID(t *testing.T) {
	store := newFakeStore()
	svc := testService(store, nil)

	slug, err := svc.uniqueSlug(context.Background(), "", "AB-42")
	require.NoError(t, err)
	assert.Equal(t, "listing-ab-42", slug)
}

func TestUniqueSlug_FullGroup(t *testing.T) {
	store := newFakeStore()
	svc := testService(store, nil)

	group := domain.NewListingGroup("9", []domain.RawAttributeRow{
		{ListingID: "9", FieldName: domain.FieldTitle, FieldValue: "   "},
		{ListingID: "9", FieldName: domain.FieldAddress, FieldValue: ""},
	})
	require.NoError(t, svc.ReconcileListing(context.Background(), group))

	listing := store.listings["9"]
	require.NotNil(t, listing)
	assert.Equal(t, "listing-9", listing.Slug)
}
