package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openlistings/listings-refinery/internal/core/domain"
)

// ReferenceRepository resolves and creates the geographic and lookup
// reference entities. Create-or-fetch goes through unique-constraint upserts
// so concurrent listing workers sharing a new suburb cannot race a
// check-then-insert.
type ReferenceRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewReferenceRepository creates a new repository instance
func NewReferenceRepository(db *gorm.DB, logger *slog.Logger) *ReferenceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferenceRepository{db: db, logger: logger}
}

// StateByNameOrISO resolves a state by name or ISO code, case-insensitively.
// Returns (nil, nil) when no state matches; the caller never guesses.
func (r *ReferenceRepository) StateByNameOrISO(ctx context.Context, value string) (*domain.State, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	var state domain.State
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ? OR LOWER(iso_code) = ?", strings.ToLower(value), strings.ToLower(value)).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state lookup failed: %w", err)
	}
	return &state, nil
}

// GetOrCreateSuburb resolves a suburb by its (name, state, postcode) natural
// key, creating it when authoritatively absent
func (r *ReferenceRepository) GetOrCreateSuburb(ctx context.Context, name string, stateID uint, postcode string) (*domain.Suburb, error) {
	suburb := domain.Suburb{Name: name, StateID: stateID, Postcode: postcode}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}, {Name: "state_id"}, {Name: "postcode"}},
		DoNothing: true,
	}).Create(&suburb).Error
	if err != nil {
		return nil, fmt.Errorf("suburb upsert failed: %w", err)
	}
	if suburb.ID == 0 {
		// Conflict path: fetch the existing row
		err = r.db.WithContext(ctx).
			Where("name = ? AND state_id = ? AND postcode = ?", name, stateID, postcode).
			First(&suburb).Error
		if err != nil {
			return nil, fmt.Errorf("suburb fetch after upsert failed: %w", err)
		}
	}
	return &suburb, nil
}

// GetOrCreatePropertyType resolves a property type case-insensitively by
// name, creating it when absent
func (r *ReferenceRepository) GetOrCreatePropertyType(ctx context.Context, name string) (*domain.PropertyType, error) {
	var pt domain.PropertyType
	if err := r.getOrCreateNamed(ctx, &pt, name, func(n string) any {
		return &domain.PropertyType{Name: n}
	}); err != nil {
		return nil, err
	}
	return &pt, nil
}

// GetOrCreateListingMethod resolves a listing method case-insensitively by
// name, creating it when absent
func (r *ReferenceRepository) GetOrCreateListingMethod(ctx context.Context, name string) (*domain.ListingMethod, error) {
	var lm domain.ListingMethod
	if err := r.getOrCreateNamed(ctx, &lm, name, func(n string) any {
		return &domain.ListingMethod{Name: n}
	}); err != nil {
		return nil, err
	}
	return &lm, nil
}

// GetOrCreateListingStatus resolves a listing status case-insensitively by
// name, creating it when absent
func (r *ReferenceRepository) GetOrCreateListingStatus(ctx context.Context, name string) (*domain.ListingStatus, error) {
	var ls domain.ListingStatus
	if err := r.getOrCreateNamed(ctx, &ls, name, func(n string) any {
		return &domain.ListingStatus{Name: n}
	}); err != nil {
		return nil, err
	}
	return &ls, nil
}

// GetOrCreateCategory resolves a category by name, creating it when absent
func (r *ReferenceRepository) GetOrCreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	var c domain.Category
	if err := r.getOrCreateNamed(ctx, &c, name, func(n string) any {
		return &domain.Category{Name: n}
	}); err != nil {
		return nil, err
	}
	return &c, nil
}

// getOrCreateNamed is the shared case-insensitive lookup with
// create-on-conflict for single-name reference tables
func (r *ReferenceRepository) getOrCreateNamed(ctx context.Context, dest any, name string, build func(string) any) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = domain.SentinelHistoric
	}

	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		First(dest).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("reference lookup failed: %w", err)
	}

	row := build(name)
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(row).Error; err != nil {
		return fmt.Errorf("reference create failed: %w", err)
	}

	// Re-read so the conflict path also fills dest
	return r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		First(dest).Error
}

// duplicateSuburbGroup is one set of case-insensitive natural-key collisions
type duplicateSuburbGroup struct {
	Name     string
	StateID  uint
	Postcode string
}

// MergeDuplicateSuburbs collapses suburb rows that collide on the
// case-insensitive (name, state, postcode) key. Dependent addresses are
// re-pointed at the kept row before the redundant rows are deleted, inside
// one transaction, so no dangling references survive the merge.
func (r *ReferenceRepository) MergeDuplicateSuburbs(ctx context.Context) (int, error) {
	merged := 0

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var groups []duplicateSuburbGroup
		err := tx.Model(&domain.Suburb{}).
			Select("LOWER(name) AS name, state_id, postcode").
			Group("LOWER(name), state_id, postcode").
			Having("COUNT(*) > 1").
			Scan(&groups).Error
		if err != nil {
			return fmt.Errorf("duplicate suburb scan failed: %w", err)
		}

		for _, g := range groups {
			var dupes []domain.Suburb
			err := tx.Where("LOWER(name) = ? AND state_id = ? AND postcode = ?", g.Name, g.StateID, g.Postcode).
				Order("id ASC").
				Find(&dupes).Error
			if err != nil {
				return fmt.Errorf("duplicate suburb fetch failed: %w", err)
			}
			if len(dupes) < 2 {
				continue
			}

			keep := dupes[0]
			for _, lose := range dupes[1:] {
				if err := tx.Model(&domain.Address{}).
					Where("suburb_id = ?", lose.ID).
					Update("suburb_id", keep.ID).Error; err != nil {
					return fmt.Errorf("address re-point failed: %w", err)
				}
				if err := tx.Delete(&domain.Suburb{}, lose.ID).Error; err != nil {
					return fmt.Errorf("suburb delete failed: %w", err)
				}
				merged++
				r.logger.Info("merged duplicate suburb",
					slog.String("name", keep.Name),
					slog.Uint64("kept_id", uint64(keep.ID)),
					slog.Uint64("deleted_id", uint64(lose.ID)))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return merged, nil
}
