package model

import "time"

// Restaurant is a chef's restaurant shown on the map. Three dedicated
// freshness timestamps track when the name, address, and chef association
// were last confirmed against an external source.
type Restaurant struct {
	ID          int     `json:"id"`
	ChefID      int     `json:"chefId"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Address     *string `json:"address"`
	SeasonID    *int    `json:"seasonId"`
	City        string  `json:"city"`
	Country     string  `json:"country"`
	IsCurrent   bool    `json:"isCurrent"`
	OpenDate    *string `json:"openDate"`
	CloseDate   *string `json:"closeDate"`

	LastUpdated              *time.Time `json:"lastUpdated"`
	NameUpdatedAt            *time.Time `json:"nameUpdatedAt"`
	AddressUpdatedAt         *time.Time `json:"addressUpdatedAt"`
	ChefAssociationUpdatedAt *time.Time `json:"chefAssociationUpdatedAt"`
}

// RestaurantUpdate carries the mutable restaurant fields for manual edits.
// Nil pointers mean "leave unchanged".
type RestaurantUpdate struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Address     *string  `json:"address"`
	City        *string  `json:"city"`
	Country     *string  `json:"country"`
	IsCurrent   *bool    `json:"isCurrent"`
	OpenDate    *string  `json:"openDate"`
	CloseDate   *string  `json:"closeDate"`
}

// RestaurantWithContext is a restaurant enriched with its season number and
// chef name, as returned by the country/season-filtered list query.
type RestaurantWithContext struct {
	Restaurant
	SeasonNumber *int   `json:"seasonNumber"`
	ChefName     string `json:"chefName"`
}

// RestaurantDetail is a restaurant joined with its chef and season.
type RestaurantDetail struct {
	Restaurant Restaurant `json:"restaurant"`
	Chef       *Chef      `json:"chef"`
	Season     *Season    `json:"season"`
}
