package model

import "time"

// Field identifies a logical enrichment field. These names are also the JSON
// keys the data-fetch provider is asked to return.
type Field string

const (
	FieldRestaurantName  Field = "restaurantName"
	FieldAddress         Field = "address"
	FieldCurrentChefName Field = "currentChefName"
	FieldBio             Field = "bio"
)

// TrackedFields lists every enrichment field in refresh order.
var TrackedFields = []Field{
	FieldRestaurantName,
	FieldAddress,
	FieldCurrentChefName,
	FieldBio,
}

// FieldOrigin says where a panel field's current value came from.
type FieldOrigin string

const (
	OriginDB        FieldOrigin = "db"
	OriginRefreshed FieldOrigin = "refreshed"
)

// FieldMetadata describes the provenance of one panel field.
type FieldMetadata struct {
	Origin    FieldOrigin `json:"origin"`
	UpdatedAt *time.Time  `json:"updatedAt"`
}

// PanelData is the info-panel payload: the record plus per-field provenance.
type PanelData struct {
	Restaurant Restaurant              `json:"restaurant"`
	Chef       *Chef                   `json:"chef"`
	Season     *Season                 `json:"season"`
	Metadata   map[Field]FieldMetadata `json:"metadata"`
}
