package reconcile

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openlistings/listings-refinery/internal/core/domain"
	"github.com/openlistings/listings-refinery/internal/core/services/addressparse"
	"github.com/openlistings/listings-refinery/internal/core/services/normalize"
	"github.com/openlistings/listings-refinery/internal/pkg/config"
	pkgerrors "github.com/openlistings/listings-refinery/internal/pkg/errors"
)

// Service turns normalized listing groups into persisted domain entities.
// One listing failing never stops the run; failures are counted and logged
// with the source listing id.
type Service struct {
	refs     ReferenceStore
	listings ListingStore
	parser   *addressparse.Parser
	cache    Cache
	cfg      *config.Config
	logger   *slog.Logger
}

// NewService creates a reconcile service. cache may be nil.
func NewService(refs ReferenceStore, listings ListingStore, parser *addressparse.Parser, cache Cache, cfg *config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		refs:     refs,
		listings: listings,
		parser:   parser,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
	}
}

// ReconcileAll fans the listing groups out over a bounded worker pool. Each
// listing gets its own deadline so one wedged database call cannot stall the
// whole batch.
func (s *Service) ReconcileAll(ctx context.Context, groups []*domain.ListingGroup) (*Result, error) {
	result := &Result{}
	timeout := time.Duration(s.cfg.ListingTimeoutSecs) * time.Second

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.WorkerConcurrency)

	for _, group := range groups {
		group := group
		g.Go(func() error {
			lctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()

			err := s.ReconcileListing(lctx, group)
			switch {
			case err == nil:
				result.Imported.Add(1)
			case lctx.Err() != nil && gctx.Err() == nil:
				result.Failed.Add(1)
				s.logger.Error("listing timed out",
					slog.String("listing_id", group.ListingID),
					slog.Any("error", pkgerrors.ListingTimeout(group.ListingID)))
			case gctx.Err() != nil:
				// Run-level cancellation, stop the pool
				return gctx.Err()
			default:
				result.Failed.Add(1)
				s.logger.Error("listing reconcile failed",
					slog.String("listing_id", group.ListingID),
					slog.Any("error", err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

// ReconcileListing resolves one listing group end to end: reference rows,
// address decomposition, numeric extraction, then the idempotent upserts
func (s *Service) ReconcileListing(ctx context.Context, group *domain.ListingGroup) error {
	propertyTypeID, err := s.resolveRef(ctx, CacheKindPropertyType, group.Field(domain.FieldPropertyType), func(c context.Context, name string) (uint, error) {
		pt, err := s.refs.GetOrCreatePropertyType(c, name)
		if err != nil {
			return 0, err
		}
		return pt.ID, nil
	})
	if err != nil {
		return pkgerrors.ListingPersistFailed(group.ListingID, err)
	}

	listingMethodID, err := s.resolveRef(ctx, CacheKindListingMethod, group.Field(domain.FieldListingMethod), func(c context.Context, name string) (uint, error) {
		lm, err := s.refs.GetOrCreateListingMethod(c, name)
		if err != nil {
			return 0, err
		}
		return lm.ID, nil
	})
	if err != nil {
		return pkgerrors.ListingPersistFailed(group.ListingID, err)
	}

	listingStatusID, err := s.resolveRef(ctx, CacheKindListingStatus, group.Field(domain.FieldListingStatus), func(c context.Context, name string) (uint, error) {
		ls, err := s.refs.GetOrCreateListingStatus(c, name)
		if err != nil {
			return 0, err
		}
		return ls.ID, nil
	})
	if err != nil {
		return pkgerrors.ListingPersistFailed(group.ListingID, err)
	}

	landSize, landUnit := normalize.ExtractSize(group.Field(domain.FieldLandSize))
	buildingSize, buildingUnit := normalize.ExtractSize(group.Field(domain.FieldBuildingSize))

	title := strings.TrimSpace(group.Field(domain.FieldTitle))
	if title == "" {
		title = group.Field(domain.FieldAddress)
	}
	slug, err := s.uniqueSlug(ctx, title, group.ListingID)
	if err != nil {
		return pkgerrors.ListingPersistFailed(group.ListingID, err)
	}

	listing := &domain.Listing{
		ExternalID:      group.ListingID,
		Slug:            slug,
		Title:           title,
		Description:     group.Field(domain.FieldFullDesc),
		ContactDetails:  group.Field(domain.FieldContact),
		Features:        group.Field(domain.FieldFeatures),
		Beds:            parseCount(group.Field(domain.FieldBeds)),
		Baths:           parseCount(group.Field(domain.FieldBaths)),
		Parking:         parseCount(group.Field(domain.FieldParking)),
		LandSize:        landSize,
		LandSizeUnit:    landUnit,
		BuildingSize:    buildingSize,
		BuildingUnit:    buildingUnit,
		PropertyTypeID:  propertyTypeID,
		ListingMethodID: listingMethodID,
		ListingStatusID: listingStatusID,
	}
	if err := s.listings.SaveListing(ctx, listing); err != nil {
		return pkgerrors.ListingPersistFailed(group.ListingID, err)
	}

	if err := s.saveAddress(ctx, listing.ID, group); err != nil {
		return pkgerrors.ListingPersistFailed(group.ListingID, err)
	}
	if err := s.savePrice(ctx, listing.ID, group); err != nil {
		return pkgerrors.ListingPersistFailed(group.ListingID, err)
	}
	if err := s.saveMedia(ctx, listing.ID, group); err != nil {
		return pkgerrors.ListingPersistFailed(group.ListingID, err)
	}
	if err := s.saveCategories(ctx, listing.ID, group); err != nil {
		return pkgerrors.ListingPersistFailed(group.ListingID, err)
	}
	return nil
}

// saveAddress resolves the suburb (state first, never guessed) and upserts
// the parsed street decomposition
func (s *Service) saveAddress(ctx context.Context, listingID uint, group *domain.ListingGroup) error {
	parsed := s.parser.Parse(group.Field(domain.FieldAddress))

	address := &domain.Address{
		ListingID:    listingID,
		LotNumber:    parsed.LotNumber,
		UnitNumber:   parsed.UnitNumber,
		StreetNumber: parsed.StreetNumber,
		StreetName:   parsed.StreetName,
	}

	town := strings.TrimSpace(group.Field(domain.FieldTown))
	stateValue := strings.TrimSpace(group.Field(domain.FieldState))
	postcode := strings.TrimSpace(group.Field(domain.FieldPostcode))
	switch {
	case town == "" || stateValue == "" || postcode == "":
		// Suburb rows are keyed on (name, state, postcode); a partial key
		// would mint phantom suburbs
		s.logger.Debug("suburb resolution skipped, incomplete key",
			slog.String("listing_id", group.ListingID),
			slog.String("town", town),
			slog.String("state", stateValue),
			slog.String("postcode", postcode))
	default:
		stateID, err := s.resolveState(ctx, stateValue)
		if err != nil {
			return err
		}
		if stateID == 0 {
			s.logger.Warn("state unresolved, listing kept without suburb",
				slog.String("listing_id", group.ListingID),
				slog.Any("error", pkgerrors.FieldUnresolved(group.ListingID, domain.FieldState,
					"no state named "+stateValue)))
		} else {
			suburb, err := s.refs.GetOrCreateSuburb(ctx, town, stateID, postcode)
			if err != nil {
				return err
			}
			address.SuburbID = &suburb.ID
		}
	}

	return s.listings.SaveAddress(ctx, address)
}

func (s *Service) savePrice(ctx context.Context, listingID uint, group *domain.ListingGroup) error {
	raw := group.Field(domain.FieldPrice)
	amount, priceType := normalize.ExtractPrice(raw)
	return s.listings.SavePrice(ctx, &domain.Price{
		ListingID: listingID,
		Amount:    amount,
		Type:      priceType,
		Display:   strings.TrimSpace(raw),
	})
}

func (s *Service) saveMedia(ctx context.Context, listingID uint, group *domain.ListingGroup) error {
	media := make([]domain.Media, 0, len(group.Images))
	for i, url := range group.Images {
		media = append(media, domain.Media{URL: url, Rank: i})
	}
	return s.listings.ReplaceMedia(ctx, listingID, media)
}

func (s *Service) saveCategories(ctx context.Context, listingID uint, group *domain.ListingGroup) error {
	seen := make(map[string]bool, len(group.Categories))
	ids := make([]uint, 0, len(group.Categories))
	for _, name := range group.Categories {
		name = strings.TrimSpace(name)
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true

		id, err := s.resolveRef(ctx, CacheKindCategory, name, func(c context.Context, n string) (uint, error) {
			cat, err := s.refs.GetOrCreateCategory(c, n)
			if err != nil {
				return 0, err
			}
			return cat.ID, nil
		})
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	return s.listings.ReplaceCategories(ctx, listingID, ids)
}

// resolveState looks a state id up through the cache before the store.
// Returns 0 when no state matches; misses are never cached since reference
// states may be loaded after the import starts.
func (s *Service) resolveState(ctx context.Context, value string) (uint, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	if s.cache != nil {
		if id, ok := s.cache.GetID(ctx, CacheKindState, key); ok {
			return id, nil
		}
	}

	state, err := s.refs.StateByNameOrISO(ctx, value)
	if err != nil || state == nil {
		return 0, err
	}
	if s.cache != nil {
		s.cache.SetID(ctx, CacheKindState, key, state.ID)
	}
	return state.ID, nil
}

// resolveRef looks a reference id up through the cache, falling back to the
// store and priming the cache on miss. Empty names resolve through the store
// too, which maps them to the Historic sentinel.
func (s *Service) resolveRef(ctx context.Context, kind, name string, fetch func(context.Context, string) (uint, error)) (uint, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = strings.ToLower(domain.SentinelHistoric)
	}

	if s.cache != nil {
		if id, ok := s.cache.GetID(ctx, kind, key); ok {
			return id, nil
		}
	}

	id, err := fetch(ctx, strings.TrimSpace(name))
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		s.cache.SetID(ctx, kind, key, id)
	}
	return id, nil
}

// parseCount extracts a non-negative integer from a raw count field,
// tolerating decoration like "3 beds"
func parseCount(raw string) int {
	start, end := -1, -1
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			end = i + 1
		} else if start >= 0 {
			break
		}
	}
	if start < 0 {
		return 0
	}
	n, err := strconv.Atoi(raw[start:end])
	if err != nil {
		return 0
	}
	return n
}
