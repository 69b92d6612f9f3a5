package reconcile

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlistings/listings-refinery/internal/core/domain"
	"github.com/openlistings/listings-refinery/internal/core/services/addressparse"
	"github.com/openlistings/listings-refinery/internal/core/services/streettype"
	"github.com/openlistings/listings-refinery/internal/pkg/config"
)

// fakeStore implements ReferenceStore and ListingStore in memory so the
// service can be exercised without a database
type fakeStore struct {
	mu     sync.Mutex
	nextID uint

	states     map[string]*domain.State
	stateCalls int
	suburbs    map[string]*domain.Suburb
	named      map[string]map[string]uint
	refCalls   map[string]int

	listings   map[string]*domain.Listing
	slugOwners map[string]string
	addresses  map[uint]*domain.Address
	prices     map[uint]*domain.Price
	media      map[uint][]domain.Media
	categories map[uint][]uint

	failSaveListingFor map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		states:             make(map[string]*domain.State),
		suburbs:            make(map[string]*domain.Suburb),
		named:              make(map[string]map[string]uint),
		refCalls:           make(map[string]int),
		listings:           make(map[string]*domain.Listing),
		slugOwners:         make(map[string]string),
		addresses:          make(map[uint]*domain.Address),
		prices:             make(map[uint]*domain.Price),
		media:              make(map[uint][]domain.Media),
		categories:         make(map[uint][]uint),
		failSaveListingFor: make(map[string]bool),
	}
}

func (f *fakeStore) seedState(name, iso string) *domain.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s := &domain.State{ID: f.nextID, Name: name, ISOCode: iso}
	f.states[strings.ToLower(name)] = s
	f.states[strings.ToLower(iso)] = s
	return s
}

func (f *fakeStore) StateByNameOrISO(_ context.Context, value string) (*domain.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateCalls++
	return f.states[strings.ToLower(strings.TrimSpace(value))], nil
}

func (f *fakeStore) GetOrCreateSuburb(_ context.Context, name string, stateID uint, postcode string) (*domain.Suburb, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s|%d|%s", strings.ToLower(name), stateID, postcode)
	if s, ok := f.suburbs[key]; ok {
		return s, nil
	}
	f.nextID++
	s := &domain.Suburb{ID: f.nextID, Name: name, StateID: stateID, Postcode: postcode}
	f.suburbs[key] = s
	return s, nil
}

func (f *fakeStore) getOrCreateNamed(kind, name string) (uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.TrimSpace(name) == "" {
		name = domain.SentinelHistoric
	}
	f.refCalls[kind]++
	if f.named[kind] == nil {
		f.named[kind] = make(map[string]uint)
	}
	key := strings.ToLower(name)
	if id, ok := f.named[kind][key]; ok {
		return id, nil
	}
	f.nextID++
	f.named[kind][key] = f.nextID
	return f.nextID, nil
}

func (f *fakeStore) GetOrCreatePropertyType(_ context.Context, name string) (*domain.PropertyType, error) {
	id, err := f.getOrCreateNamed(CacheKindPropertyType, name)
	return &domain.PropertyType{ID: id, Name: name}, err
}

func (f *fakeStore) GetOrCreateListingMethod(_ context.Context, name string) (*domain.ListingMethod, error) {
	id, err := f.getOrCreateNamed(CacheKindListingMethod, name)
	return &domain.ListingMethod{ID: id, Name: name}, err
}

func (f *fakeStore) GetOrCreateListingStatus(_ context.Context, name string) (*domain.ListingStatus, error) {
	id, err := f.getOrCreateNamed(CacheKindListingStatus, name)
	return &domain.ListingStatus{ID: id, Name: name}, err
}

func (f *fakeStore) GetOrCreateCategory(_ context.Context, name string) (*domain.Category, error) {
	id, err := f.getOrCreateNamed(CacheKindCategory, name)
	return &domain.Category{ID: id, Name: name}, err
}

func (f *fakeStore) FindByExternalID(_ context.Context, externalID string) (*domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listings[externalID], nil
}

func (f *fakeStore) SlugExists(_ context.Context, slug, excludeExternalID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	owner, ok := f.slugOwners[slug]
	return ok && owner != excludeExternalID, nil
}

func (f *fakeStore) SaveListing(_ context.Context, listing *domain.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSaveListingFor[listing.ExternalID] {
		return fmt.Errorf("simulated persist failure")
	}
	if existing, ok := f.listings[listing.ExternalID]; ok {
		// Re-imports keep their database id and first-run slug
		listing.ID = existing.ID
		listing.Slug = existing.Slug
	} else {
		f.nextID++
		listing.ID = f.nextID
	}
	saved := *listing
	f.listings[listing.ExternalID] = &saved
	f.slugOwners[listing.Slug] = listing.ExternalID
	return nil
}

func (f *fakeStore) SaveAddress(_ context.Context, address *domain.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addresses[address.ListingID] = address
	return nil
}

func (f *fakeStore) SavePrice(_ context.Context, price *domain.Price) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[price.ListingID] = price
	return nil
}

func (f *fakeStore) ReplaceMedia(_ context.Context, listingID uint, media []domain.Media) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.media[listingID] = media
	return nil
}

func (f *fakeStore) ReplaceCategories(_ context.Context, listingID uint, categoryIDs []uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories[listingID] = categoryIDs
	return nil
}

type fakeCache struct {
	mu   sync.Mutex
	m    map[string]uint
	hits int
}

func newFakeCache() *fakeCache {
	return &fakeCache{m: make(map[string]uint)}
}

func (c *fakeCache) GetID(_ context.Context, kind, key string) (uint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.m[kind+":"+key]
	if ok {
		c.hits++
	}
	return id, ok
}

func (c *fakeCache) SetID(_ context.Context, kind, key string, id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[kind+":"+key] = id
}

func testService(store *fakeStore, cache Cache) *Service {
	cfg := &config.Config{WorkerConcurrency: 2, ListingTimeoutSecs: 30}
	return NewService(store, store, addressparse.New(streettype.New()), cache, cfg, nil)
}

func listingGroup(id string, rows ...domain.RawAttributeRow) *domain.ListingGroup {
	return domain.NewListingGroup(id, rows)
}

func row(id, field, value string) domain.RawAttributeRow {
	return domain.RawAttributeRow{ListingID: id, FieldName: field, FieldValue: value}
}

func TestReconcileListing_FullPopulation(t *testing.T) {
	store := newFakeStore()
	store.seedState("Tasmania", "TAS")
	svc := testService(store, nil)

	group := listingGroup("4711",
		row("4711", domain.FieldTitle, "Beachside Retreat"),
		row("4711", domain.FieldFullDesc, "A lovely home."),
		row("4711", domain.FieldAddress, "3/36 Mitchell Street"),
		row("4711", domain.FieldTown, "Hobart"),
		row("4711", domain.FieldState, "TAS"),
		row("4711", domain.FieldPostcode, "7000"),
		row("4711", domain.FieldPropertyType, "House"),
		row("4711", domain.FieldListingMethod, "Sale"),
		row("4711", domain.FieldListingStatus, "Active"),
		row("4711", domain.FieldPrice, "$450,000"),
		row("4711", domain.FieldBeds, "3 beds"),
		row("4711", domain.FieldBaths, "2"),
		row("4711", domain.FieldParking, "1"),
		row("4711", domain.FieldLandSize, "1,234 sqm"),
		row("4711", domain.FieldImage, "a.jpg"),
		row("4711", domain.FieldImage, "b.jpg"),
		row("4711", domain.FieldCategory, "Residential"),
		row("4711", domain.FieldCategory, "residential"),
		row("4711", domain.FieldCategory, "Waterfront"),
	)

	require.NoError(t, svc.ReconcileListing(context.Background(), group))

	listing := store.listings["4711"]
	require.NotNil(t, listing)
	assert.Equal(t, "beachside-retreat", listing.Slug)
	assert.Equal(t, "Beachside Retreat", listing.Title)
	assert.Equal(t, 3, listing.Beds)
	assert.Equal(t, 2, listing.Baths)
	assert.Equal(t, 1, listing.Parking)
	require.NotNil(t, listing.LandSize)
	assert.InDelta(t, 1234, *listing.LandSize, 0.001)
	assert.Equal(t, domain.SizeUnitSquareMetres, listing.LandSizeUnit)
	assert.NotZero(t, listing.PropertyTypeID)
	assert.NotZero(t, listing.ListingMethodID)
	assert.NotZero(t, listing.ListingStatusID)

	address := store.addresses[listing.ID]
	require.NotNil(t, address)
	assert.Equal(t, "3", address.UnitNumber)
	assert.Equal(t, "36", address.StreetNumber)
	assert.Equal(t, "Mitchell Street", address.StreetName)
	require.NotNil(t, address.SuburbID)

	price := store.prices[listing.ID]
	require.NotNil(t, price)
	require.NotNil(t, price.Amount)
	assert.InDelta(t, 450000, *price.Amount, 0.001)
	assert.Equal(t, domain.PriceTypeSale, price.Type)
	assert.Equal(t, "$450,000", price.Display)

	media := store.media[listing.ID]
	require.Len(t, media, 2)
	assert.Equal(t, "a.jpg", media[0].URL)
	assert.Equal(t, 0, media[0].Rank)
	assert.Equal(t, 1, media[1].Rank)

	// Duplicate "residential" collapses case-insensitively
	assert.Len(t, store.categories[listing.ID], 2)
}

func TestReconcileListing_EmptyRefsResolveToHistoric(t *testing.T) {
	store := newFakeStore()
	svc := testService(store, nil)

	group := listingGroup("99",
		row("99", domain.FieldTitle, "Mystery Block"),
	)
	require.NoError(t, svc.ReconcileListing(context.Background(), group))

	historic := strings.ToLower(domain.SentinelHistoric)
	assert.Contains(t, store.named[CacheKindPropertyType], historic)
	assert.Contains(t, store.named[CacheKindListingMethod], historic)
	assert.Contains(t, store.named[CacheKindListingStatus], historic)

	listing := store.listings["99"]
	require.NotNil(t, listing)
	assert.Equal(t, store.named[CacheKindPropertyType][historic], listing.PropertyTypeID)
}

func TestReconcileListing_TitleFallsBackToAddress(t *testing.T) {
	store := newFakeStore()
	svc := testService(store, nil)

	group := listingGroup("77",
		row("77", domain.FieldAddress, "14 Acacia Street"),
	)
	require.NoError(t, svc.ReconcileListing(context.Background(), group))

	listing := store.listings["77"]
	require.NotNil(t, listing)
	assert.Equal(t, "14 Acacia Street", listing.Title)
	assert.Equal(t, "14-acacia-street", listing.Slug)
}

func TestReconcileListing_StateUnresolvedKeepsListingWithoutSuburb(t *testing.T) {
	store := newFakeStore()
	svc := testService(store, nil)

	group := listingGroup("55",
		row("55", domain.FieldTitle, "Outback Station"),
		row("55", domain.FieldTown, "Nowhere"),
		row("55", domain.FieldState, "ZZ"),
		row("55", domain.FieldPostcode, "0872"),
	)
	require.NoError(t, svc.ReconcileListing(context.Background(), group))

	listing := store.listings["55"]
	require.NotNil(t, listing)
	address := store.addresses[listing.ID]
	require.NotNil(t, address)
	assert.Nil(t, address.SuburbID)
	assert.Empty(t, store.suburbs)
}

func TestReconcileListing_SuburbNeedsFullKey(t *testing.T) {
	store := newFakeStore()
	store.seedState("Victoria", "VIC")
	svc := testService(store, nil)

	// Town and state without a postcode must not mint a suburb row
	noPostcode := listingGroup("60",
		row("60", domain.FieldTitle, "Bayside Flat"),
		row("60", domain.FieldTown, "St Kilda"),
		row("60", domain.FieldState, "VIC"),
	)
	require.NoError(t, svc.ReconcileListing(context.Background(), noPostcode))

	listing := store.listings["60"]
	require.NotNil(t, listing)
	address := store.addresses[listing.ID]
	require.NotNil(t, address)
	assert.Nil(t, address.SuburbID)
	assert.Empty(t, store.suburbs)

	// Postcode without a town is just as incomplete
	noTown := listingGroup("61",
		row("61", domain.FieldTitle, "Bayside Flat Two"),
		row("61", domain.FieldState, "VIC"),
		row("61", domain.FieldPostcode, "3182"),
	)
	require.NoError(t, svc.ReconcileListing(context.Background(), noTown))
	assert.Empty(t, store.suburbs)
}

func TestReconcileListing_ReimportKeepsSlug(t *testing.T) {
	store := newFakeStore()
	svc := testService(store, nil)

	group := listingGroup("12", row("12", domain.FieldTitle, "Harbour View"))
	require.NoError(t, svc.ReconcileListing(context.Background(), group))
	firstID := store.listings["12"].ID

	updated := listingGroup("12", row("12", domain.FieldTitle, "Harbour View Renovated"))
	require.NoError(t, svc.ReconcileListing(context.Background(), updated))

	listing := store.listings["12"]
	assert.Equal(t, firstID, listing.ID)
	assert.Equal(t, "harbour-view", listing.Slug)
	assert.Equal(t, "Harbour View Renovated", listing.Title)
}

func TestReconcileListing_CachePrimesReferenceLookups(t *testing.T) {
	store := newFakeStore()
	state := store.seedState("Victoria", "VIC")
	cache := newFakeCache()
	svc := testService(store, cache)

	for _, id := range []string{"1", "2", "3"} {
		group := listingGroup(id,
			row(id, domain.FieldTitle, "Listing "+id),
			row(id, domain.FieldPropertyType, "House"),
			row(id, domain.FieldTown, "St Kilda"),
			row(id, domain.FieldState, "VIC"),
			row(id, domain.FieldPostcode, "3182"),
		)
		require.NoError(t, svc.ReconcileListing(context.Background(), group))
	}

	// First listing fetches from the store, the other two hit the cache
	assert.Equal(t, 1, store.refCalls[CacheKindPropertyType])
	assert.Equal(t, cache.m[CacheKindPropertyType+":house"], store.named[CacheKindPropertyType]["house"])
	assert.Equal(t, 1, store.stateCalls)
	assert.Equal(t, state.ID, cache.m[CacheKindState+":vic"])
}

func TestReconcileAll_CountsFailuresWithoutStopping(t *testing.T) {
	store := newFakeStore()
	store.failSaveListingFor["bad"] = true
	svc := testService(store, nil)

	groups := []*domain.ListingGroup{
		listingGroup("ok-1", row("ok-1", domain.FieldTitle, "First")),
		listingGroup("bad", row("bad", domain.FieldTitle, "Broken")),
		listingGroup("ok-2", row("ok-2", domain.FieldTitle, "Second")),
	}

	result, err := svc.ReconcileAll(context.Background(), groups)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Imported.Load())
	assert.Equal(t, int64(1), result.Failed.Load())
	assert.Len(t, store.listings, 2)
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"3", 3},
		{"3 beds", 3},
		{"beds: 4", 4},
		{"2.5", 2},
		{"", 0},
		{"none", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseCount(tt.raw), "raw %q", tt.raw)
	}
}
