package model

import (
	"encoding/json"
	"time"
)

// Chef is a Top Chef contestant. Chefs are created on first mention by name
// (seeding or candidate ingestion) and never deleted in normal operation.
type Chef struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Bio         *string         `json:"bio"`
	Status      *string         `json:"status"`
	ImageURL    *string         `json:"imageUrl"`
	LastUpdated *time.Time      `json:"lastUpdated"`
	RawData     json.RawMessage `json:"rawData,omitempty"` // opaque provider payload
}

// ChefUpdate carries the mutable chef fields for manual edits. Nil pointers
// mean "leave unchanged".
type ChefUpdate struct {
	Bio      *string `json:"bio"`
	Status   *string `json:"status"`
	ImageURL *string `json:"imageUrl"`
}

// ChefDetail is a chef joined with their restaurants and season history.
type ChefDetail struct {
	Chef           Chef            `json:"chef"`
	Restaurants    []Restaurant    `json:"restaurants"`
	Participations []Participation `json:"participations"`
	Seasons        []Season        `json:"seasons"`
}
