package domain

import "time"

// Country is a top-level geographic reference entity
type Country struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	ISOCode   string    `gorm:"type:varchar(3);not null" json:"iso_code"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Country) TableName() string { return "countries" }

// State is deduplicated by (name, country_id)
type State struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_states_name_country" json:"name"`
	ISOCode   string    `gorm:"type:varchar(10);not null" json:"iso_code"`
	CountryID uint      `gorm:"not null;uniqueIndex:idx_states_name_country" json:"country_id"`
	Country   *Country  `gorm:"foreignKey:CountryID" json:"country,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (State) TableName() string { return "states" }

// Suburb is deduplicated by (name, state_id, postcode); the merge pass
// relies on this natural key
type Suburb struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(150);not null;uniqueIndex:idx_suburbs_natural" json:"name"`
	StateID   uint      `gorm:"not null;uniqueIndex:idx_suburbs_natural" json:"state_id"`
	Postcode  string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_suburbs_natural" json:"postcode"`
	State     *State    `gorm:"foreignKey:StateID" json:"state,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Suburb) TableName() string { return "suburbs" }

// Address links a listing to its resolved geography plus the parsed
// street decomposition
type Address struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID    uint      `gorm:"not null;uniqueIndex" json:"listing_id"`
	SuburbID     *uint     `json:"suburb_id,omitempty"`
	Suburb       *Suburb   `gorm:"foreignKey:SuburbID" json:"suburb,omitempty"`
	LotNumber    string    `gorm:"type:varchar(20)" json:"lot_number"`
	UnitNumber   string    `gorm:"type:varchar(20)" json:"unit_number"`
	StreetNumber string    `gorm:"type:varchar(20)" json:"street_number"`
	StreetName   string    `gorm:"type:varchar(200)" json:"street_name"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Address) TableName() string { return "addresses" }
