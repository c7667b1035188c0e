package dto

import "github.com/openlearn/lms-api/internal/models"

// SearchRequest binds and validates the unified search query parameters.
type SearchRequest struct {
	Query            string  `form:"q" validate:"required,min=1,max=200"`
	Type             string  `form:"type" validate:"omitempty,oneof=all courses lessons modules instructors discussions"`
	Page             int     `form:"page" validate:"omitempty,min=1"`
	Limit            int     `form:"limit" validate:"omitempty,min=1,max=100"`
	Sort             string  `form:"sort" validate:"omitempty,oneof=relevance newest oldest popular highestRated priceAsc priceDesc"`
	Category         string  `form:"category" validate:"omitempty,max=100"`
	Level            string  `form:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Language         string  `form:"language" validate:"omitempty,max=50"`
	MinRating        float64 `form:"min_rating" validate:"omitempty,min=0,max=5"`
	MaxPrice         float64 `form:"max_price" validate:"omitempty,min=0"`
	FreeOnly         bool    `form:"free_only"`
	Featured         bool    `form:"featured"`
	Certificate      bool    `form:"certificate"`
	MaxDurationHours int     `form:"max_duration_hours" validate:"omitempty,min=0"`
	IncludePrivate   string  `form:"include_private" validate:"omitempty,oneof=yes no"`
}

// SearchResponse is the ranked, paginated, heterogeneous result list.
// Total reflects full per-type counts, which for type=all may exceed the
// number of items reachable through the preview-capped page window.
type SearchResponse struct {
	Query   string                `json:"query"`
	Type    string                `json:"type"`
	Results []models.SearchResult `json:"results"`
	Total   int                   `json:"total"`
	Page    int                   `json:"page"`
	Limit   int                   `json:"limit"`
}
