package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openlistings/listings-refinery/internal/core/domain"
)

// ListingRepository persists listings and their dependent rows. Imports are
// idempotent: listings upsert on external_id, addresses and prices upsert on
// listing_id, media and category links are replaced wholesale per listing.
type ListingRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewListingRepository creates a new repository instance
func NewListingRepository(db *gorm.DB, logger *slog.Logger) *ListingRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingRepository{db: db, logger: logger}
}

// FindByExternalID returns the listing for a source system identifier, or
// (nil, nil) when none exists yet
func (r *ListingRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.Listing, error) {
	var listing domain.Listing
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing lookup failed: %w", err)
	}
	return &listing, nil
}

// SlugExists reports whether a slug is already taken by a different listing
func (r *ListingRepository) SlugExists(ctx context.Context, slug string, excludeExternalID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Listing{}).
		Where("slug = ? AND external_id <> ?", slug, excludeExternalID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("slug lookup failed: %w", err)
	}
	return count > 0, nil
}

// SaveListing upserts a listing on its external_id natural key. Re-running an
// import updates the existing row in place; the slug is kept stable once
// assigned.
func (r *ListingRepository) SaveListing(ctx context.Context, listing *domain.Listing) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "features", "contact_details",
			"beds", "baths", "parking",
			"land_size", "land_size_unit", "building_size", "building_unit",
			"property_type_id", "listing_method_id", "listing_status_id",
			"updated_at",
		}),
	}).Create(listing).Error
	if err != nil {
		return fmt.Errorf("listing upsert failed: %w", err)
	}

	if listing.ID == 0 {
		// Postgres returns the existing id on DO UPDATE, but guard anyway
		var existing domain.Listing
		if err := r.db.WithContext(ctx).
			Select("id", "slug").
			Where("external_id = ?", listing.ExternalID).
			First(&existing).Error; err != nil {
			return fmt.Errorf("listing fetch after upsert failed: %w", err)
		}
		listing.ID = existing.ID
		listing.Slug = existing.Slug
	}
	return nil
}

// SaveAddress upserts a listing's address on listing_id
func (r *ListingRepository) SaveAddress(ctx context.Context, address *domain.Address) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "listing_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"suburb_id", "lot_number", "unit_number", "street_number", "street_name", "updated_at",
		}),
	}).Create(address).Error
	if err != nil {
		return fmt.Errorf("address upsert failed: %w", err)
	}
	return nil
}

// SavePrice upserts a listing's price on listing_id
func (r *ListingRepository) SavePrice(ctx context.Context, price *domain.Price) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "listing_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"amount", "type", "display", "updated_at",
		}),
	}).Create(price).Error
	if err != nil {
		return fmt.Errorf("price upsert failed: %w", err)
	}
	return nil
}

// ReplaceMedia replaces the full media set for a listing. The export always
// carries the complete image list, so a diff would only preserve rows the
// source no longer has.
func (r *ListingRepository) ReplaceMedia(ctx context.Context, listingID uint, media []domain.Media) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", listingID).Delete(&domain.Media{}).Error; err != nil {
			return fmt.Errorf("media delete failed: %w", err)
		}
		if len(media) == 0 {
			return nil
		}
		for i := range media {
			media[i].ListingID = listingID
		}
		if err := tx.Create(&media).Error; err != nil {
			return fmt.Errorf("media insert failed: %w", err)
		}
		return nil
	})
}

// ReplaceCategories replaces the category links for a listing
func (r *ListingRepository) ReplaceCategories(ctx context.Context, listingID uint, categoryIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM listing_categories WHERE listing_id = ?", listingID).Error; err != nil {
			return fmt.Errorf("category unlink failed: %w", err)
		}
		for _, cid := range categoryIDs {
			if err := tx.Exec(
				"INSERT INTO listing_categories (listing_id, category_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
				listingID, cid,
			).Error; err != nil {
				return fmt.Errorf("category link failed: %w", err)
			}
		}
		return nil
	})
}

// BatchRepository tracks import batch lifecycle keyed by input file hash
type BatchRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewBatchRepository creates a new repository instance
func NewBatchRepository(db *gorm.DB, logger *slog.Logger) *BatchRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchRepository{db: db, logger: logger}
}

// GetOrCreate returns the batch for a file hash, creating one when the file
// has not been imported before. The second return reports whether the batch
// already existed.
func (r *BatchRepository) GetOrCreate(ctx context.Context, batch *domain.ImportBatch) (bool, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_hash"}},
		DoNothing: true,
	}).Create(batch).Error
	if err != nil {
		return false, fmt.Errorf("batch create failed: %w", err)
	}
	if batch.ID != uuid.Nil {
		var exists domain.ImportBatch
		err := r.db.WithContext(ctx).Where("file_hash = ?", batch.FileHash).First(&exists).Error
		if err != nil {
			return false, fmt.Errorf("batch fetch failed: %w", err)
		}
		if exists.ID != batch.ID {
			*batch = exists
			return true, nil
		}
	}
	return false, nil
}

// Update persists the batch counters and status
func (r *BatchRepository) Update(ctx context.Context, batch *domain.ImportBatch) error {
	if err := r.db.WithContext(ctx).Save(batch).Error; err != nil {
		return fmt.Errorf("batch update failed: %w", err)
	}
	return nil
}
