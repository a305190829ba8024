package crud

import "gorm.io/gorm"

// Filter operators accepted as {"op": value}.
const (
	OpGt   = "gt"
	OpGte  = "gte"
	OpLt   = "lt"
	OpLte  = "lte"
	OpLike = "like"
	OpIn   = "in"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Scope narrows a query before filters apply, e.g. to rows a user may see.
type Scope func(*gorm.DB) *gorm.DB

// Query describes one page of a list call. Filters map a field name to a
// plain value (equality) or to {operator: value}. OrderBy names a field,
// with a leading '-' for descending.
type Query struct {
	Page    int
	PerPage int
	Filters map[string]any
	OrderBy string
	Scopes  []Scope
	Preload []string
}

func (q *Query) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 || q.PerPage > MaxPerPage {
		q.PerPage = DefaultPerPage
	}
}

type Meta struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalPage   int   `json:"total_page"`
	HasPrev     bool  `json:"has_prev"`
	HasNext     bool  `json:"has_next"`
}

func NewMeta(total int64, page, perPage int) Meta {
	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return Meta{
		Total:       total,
		CurrentPage: page,
		PerPage:     perPage,
		TotalPage:   totalPages,
		HasPrev:     page > 1,
		HasNext:     page < totalPages,
	}
}

type Page[T any] struct {
	Data []T `json:"data"`
	Meta Meta `json:"meta"`
}
