package reconcile

import (
	"context"
	"sync/atomic"

	"github.com/openlistings/listings-refinery/internal/core/domain"
)

// ReferenceStore resolves and creates geographic and lookup reference rows
type ReferenceStore interface {
	StateByNameOrISO(ctx context.Context, value string) (*domain.State, error)
	GetOrCreateSuburb(ctx context.Context, name string, stateID uint, postcode string) (*domain.Suburb, error)
	GetOrCreatePropertyType(ctx context.Context, name string) (*domain.PropertyType, error)
	GetOrCreateListingMethod(ctx context.Context, name string) (*domain.ListingMethod, error)
	GetOrCreateListingStatus(ctx context.Context, name string) (*domain.ListingStatus, error)
	GetOrCreateCategory(ctx context.Context, name string) (*domain.Category, error)
}

// ListingStore persists listings and their dependent rows
type ListingStore interface {
	FindByExternalID(ctx context.Context, externalID string) (*domain.Listing, error)
	SlugExists(ctx context.Context, slug string, excludeExternalID string) (bool, error)
	SaveListing(ctx context.Context, listing *domain.Listing) error
	SaveAddress(ctx context.Context, address *domain.Address) error
	SavePrice(ctx context.Context, price *domain.Price) error
	ReplaceMedia(ctx context.Context, listingID uint, media []domain.Media) error
	ReplaceCategories(ctx context.Context, listingID uint, categoryIDs []uint) error
}

// Cache is an optional lookaside for reference-entity ids so hot rows like
// states and property types skip the database on repeat listings. A nil
// Cache is valid and means every lookup goes to the store.
type Cache interface {
	GetID(ctx context.Context, kind, key string) (uint, bool)
	SetID(ctx context.Context, kind, key string, id uint)
}

// Cache key namespaces
const (
	CacheKindState         = "state"
	CacheKindPropertyType  = "property_type"
	CacheKindListingMethod = "listing_method"
	CacheKindListingStatus = "listing_status"
	CacheKindCategory      = "category"
)

// Result aggregates the counters of one reconcile run
type Result struct {
	Imported atomic.Int64
	Skipped  atomic.Int64
	Failed   atomic.Int64
}
