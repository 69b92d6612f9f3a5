package domain

// RawAttributeRow is one record of the tall listings export: a single
// (listing, field) pair. Many rows share a ListingID; the full set of rows
// for one ListingID forms a sparse key-value record for that listing.
type RawAttributeRow struct {
	ListingID  string
	FieldName  string
	FieldValue string
}

// Well-known field names from the legacy export
const (
	FieldAddress       = "address"
	FieldTown          = "town"
	FieldFullDesc      = "full_desc"
	FieldContact       = "contact_details"
	FieldFeatures      = "features"
	FieldTitle         = "title"
	FieldPrice         = "price"
	FieldLandSize      = "land_size"
	FieldBuildingSize  = "building_size"
	FieldBeds          = "beds"
	FieldBaths         = "baths"
	FieldParking       = "parking"
	FieldState         = "state"
	FieldPostcode      = "postcode"
	FieldPropertyType  = "property_type"
	FieldListingMethod = "listing_method"
	FieldListingStatus = "listing_status"
	FieldCategory      = "category"
	FieldImage         = "image"
)

// ListingGroup is every raw attribute row sharing one source listing id,
// indexed by field name. Last row wins on duplicate field names; sibling
// image/category rows are kept as slices.
type ListingGroup struct {
	ListingID  string
	Fields     map[string]string
	Images     []string
	Categories []string
}

// NewListingGroup builds a ListingGroup from the raw rows of one listing
func NewListingGroup(listingID string, rows []RawAttributeRow) *ListingGroup {
	g := &ListingGroup{
		ListingID: listingID,
		Fields:    make(map[string]string, len(rows)),
	}
	for _, row := range rows {
		switch row.FieldName {
		case FieldImage:
			if row.FieldValue != "" {
				g.Images = append(g.Images, row.FieldValue)
			}
		case FieldCategory:
			if row.FieldValue != "" {
				g.Categories = append(g.Categories, row.FieldValue)
			}
		default:
			g.Fields[row.FieldName] = row.FieldValue
		}
	}
	return g
}

// Field returns the value for a field name, empty string when absent
func (g *ListingGroup) Field(name string) string {
	return g.Fields[name]
}

// GroupRows partitions raw rows into per-listing groups, preserving the
// order in which each listing id first appears
func GroupRows(rows []RawAttributeRow) []*ListingGroup {
	byListing := make(map[string][]RawAttributeRow)
	order := make([]string, 0)
	for _, row := range rows {
		if _, seen := byListing[row.ListingID]; !seen {
			order = append(order, row.ListingID)
		}
		byListing[row.ListingID] = append(byListing[row.ListingID], row)
	}

	groups := make([]*ListingGroup, 0, len(order))
	for _, id := range order {
		groups = append(groups, NewListingGroup(id, byListing[id]))
	}
	return groups
}
