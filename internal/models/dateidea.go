package models

import (
	"time"
)

type DateCategory string

const (
	CategoryFoodAndDrink         DateCategory = "Food & Drink"
	CategoryOutdoorsAndAdventure DateCategory = "Outdoors & Adventure"
	CategoryArtsAndCulture       DateCategory = "Arts & Culture"
	CategoryNightlife            DateCategory = "Nightlife"
	CategoryRelaxingAndCasual    DateCategory = "Relaxing & Casual"
	CategoryActiveAndFitness     DateCategory = "Active & Fitness"
	CategoryAdult                DateCategory = "Adult (18+)"
	CategoryUncategorized        DateCategory = "Uncategorized"
)

var validCategories = map[DateCategory]bool{
	CategoryFoodAndDrink:         true,
	CategoryOutdoorsAndAdventure: true,
	CategoryArtsAndCulture:       true,
	CategoryNightlife:            true,
	CategoryRelaxingAndCasual:    true,
	CategoryActiveAndFitness:     true,
	CategoryAdult:                true,
	CategoryUncategorized:        true,
}

// Valid reports whether c is one of the known categories
func (c DateCategory) Valid() bool {
	return validCategories[c]
}

// DateIdea is a date proposal posted to the marketplace
type DateIdea struct {
	ID          string       `json:"id"`
	AuthorID    string       `json:"author_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    DateCategory `json:"category"`
	Location    string       `json:"location"`
	Date        *time.Time   `json:"date,omitempty"`
	Budget      string       `json:"budget,omitempty"`
	DressCode   string       `json:"dress_code,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// DateIdeaRequest is the payload for posting a date idea
type DateIdeaRequest struct {
	Title       string       `json:"title" binding:"required,min=1,max=120"`
	Description string       `json:"description" binding:"required,min=1,max=2000"`
	Category    DateCategory `json:"category"`
	Location    string       `json:"location" binding:"max=200"`
	Date        *time.Time   `json:"date"`
	Budget      string       `json:"budget" binding:"omitempty,oneof='Not Set' Free $ $$ $$$"`
	DressCode   string       `json:"dress_code" binding:"omitempty,oneof='Not Set' Casual 'Smart Casual' Formal Activewear"`
}
