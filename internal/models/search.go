package models

import "time"

// SearchResultType discriminates the heterogeneous search result union.
type SearchResultType string

const (
	SearchTypeCourse     SearchResultType = "course"
	SearchTypeLesson     SearchResultType = "lesson"
	SearchTypeModule     SearchResultType = "module"
	SearchTypeInstructor SearchResultType = "instructor"
	SearchTypeDiscussion SearchResultType = "discussion"
)

// SearchResult is a tagged union over the five searchable entity kinds.
// Popularity carries the type-specific proxy used when ranking mixed result
// sets: enrollment count for courses, authored-course count for instructors,
// comment count for discussions, zero otherwise.
type SearchResult struct {
	ResultType SearchResultType `db:"result_type" json:"result_type"`
	ID         string           `db:"id" json:"id"`
	Title      string           `db:"title" json:"title"`
	Snippet    string           `db:"snippet" json:"snippet"`
	OwnerID    string           `db:"owner_id" json:"owner_id,omitempty"`
	OwnerName  string           `db:"owner_name" json:"owner_name,omitempty"`
	Popularity int              `db:"popularity" json:"popularity"`
	Rating     float64          `db:"rating" json:"rating,omitempty"`
	Price      float64          `db:"price" json:"price,omitempty"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}

// SearchFilter carries the normalized query parameters a per-type search
// query is built from. Facet fields apply to courses only; other entity
// types ignore the facets that do not exist on them.
type SearchFilter struct {
	Query          string
	Category       string
	Level          string
	Language       string
	MinRating      float64
	MaxPrice       float64
	FreeOnly       bool
	Featured       bool
	Certificate    bool
	MaxDuration    int
	IncludePrivate bool
	Sort           string
	Offset         int
	Limit          int
}
