package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SizeUnit is the canonical land/building size unit after synonym mapping
type SizeUnit string

const (
	SizeUnitSquareMetres SizeUnit = "sm²"
	SizeUnitAcres        SizeUnit = "acres"
	SizeUnitHectares     SizeUnit = "Ha"
)

// PriceType classifies how a price is expressed, independent of whether a
// numeric amount was extracted
type PriceType string

const (
	PriceTypeEnquire       PriceType = "enquire"
	PriceTypeContact       PriceType = "contact"
	PriceTypeCall          PriceType = "call"
	PriceTypeNegotiable    PriceType = "negotiable"
	PriceTypeFixed         PriceType = "fixed"
	PriceTypeTBA           PriceType = "tba"
	PriceTypeRentWeekly    PriceType = "rent_weekly"
	PriceTypeRentMonthly   PriceType = "rent_monthly"
	PriceTypeRentYearly    PriceType = "rent_yearly"
	PriceTypeOffersAbove   PriceType = "offers_above"
	PriceTypeOffersBetween PriceType = "offers_between"
	PriceTypeSale          PriceType = "sale"
)

// SentinelHistoric is the fallback name for reference rows when a listing
// carries no recognizable value and no creation signal
const SentinelHistoric = "Historic"

// PropertyType is a reference row (House, Unit, Land, ...)
type PropertyType struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PropertyType) TableName() string { return "property_types" }

// ListingMethod is a reference row (Sale, Auction, Rent, ...)
type ListingMethod struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ListingMethod) TableName() string { return "listing_methods" }

// ListingStatus is a reference row (Active, Sold, Withdrawn, ...)
type ListingStatus struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ListingStatus) TableName() string { return "listing_statuses" }

// Category groups listings for browsing; associations are fully replaced
// on every import run
type Category struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(150);not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Category) TableName() string { return "categories" }

// Listing is the canonical unit of import output. ExternalID and Slug are
// the natural keys that make re-runs idempotent.
type Listing struct {
	ID              uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	ExternalID      string         `gorm:"type:varchar(50);not null;uniqueIndex" json:"external_id"`
	Slug            string         `gorm:"type:varchar(250);not null;uniqueIndex" json:"slug"`
	Title           string         `gorm:"type:varchar(250);not null" json:"title"`
	Description     string         `gorm:"type:text" json:"description"`
	ContactDetails  string         `gorm:"type:text" json:"contact_details"`
	Features        string         `gorm:"type:text" json:"features"`
	Beds            int            `gorm:"default:0" json:"beds"`
	Baths           int            `gorm:"default:0" json:"baths"`
	Parking         int            `gorm:"default:0" json:"parking"`
	LandSize        *float64       `json:"land_size,omitempty"`
	LandSizeUnit    SizeUnit       `gorm:"type:varchar(10)" json:"land_size_unit"`
	BuildingSize    *float64       `json:"building_size,omitempty"`
	BuildingUnit    SizeUnit       `gorm:"type:varchar(10)" json:"building_unit"`
	PropertyTypeID  uint           `gorm:"not null" json:"property_type_id"`
	ListingMethodID uint           `gorm:"not null" json:"listing_method_id"`
	ListingStatusID uint           `gorm:"not null" json:"listing_status_id"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	Address    *Address   `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"address,omitempty"`
	Price      *Price     `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"price,omitempty"`
	Media      []Media    `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"media,omitempty"`
	Categories []Category `gorm:"many2many:listing_categories" json:"categories,omitempty"`
}

func (Listing) TableName() string { return "listings" }

// Price carries the extracted amount plus its classification
type Price struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID uint      `gorm:"not null;uniqueIndex" json:"listing_id"`
	Amount    *float64  `json:"amount,omitempty"`
	Type      PriceType `gorm:"type:varchar(20);not null" json:"type"`
	Display   string    `gorm:"type:varchar(250)" json:"display"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Price) TableName() string { return "prices" }

// Media is one image or document reference attached to a listing
type Media struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ListingID uint      `gorm:"not null;index" json:"listing_id"`
	URL       string    `gorm:"type:text;not null" json:"url"`
	Rank      int       `gorm:"default:0" json:"rank"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Media) TableName() string { return "media" }

// BeforeCreate GORM hook - assigns the media UUID
func (m *Media) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
