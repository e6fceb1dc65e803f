package pagination

import (
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 25
	MaxLimit     = 200
)

// Params are 1-based page query parameters
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Meta describes the page returned to the client
type Meta struct {
	CurrentPage  int  `json:"current_page"`
	PerPage      int  `json:"per_page"`
	TotalPages   int  `json:"total_pages"`
	TotalRecords int  `json:"total_records"`
	HasNext      bool `json:"has_next"`
	HasPrevious  bool `json:"has_previous"`
}

// ParseParams reads page and limit from the request query
func ParseParams(r *http.Request) Params {
	return FromQuery(r.URL.Query())
}

// FromQuery reads page and limit, ignoring malformed values
func FromQuery(q url.Values) Params {
	p := Params{
		Page:  positiveInt(q.Get("page"), DefaultPage),
		Limit: positiveInt(q.Get("limit"), DefaultLimit),
	}
	p.Validate()
	return p
}

func positiveInt(s string, fallback int) int {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return fallback
}

// Validate clamps the parameters into range
func (p *Params) Validate() {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}

// Offset is the number of records before this page
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta builds the metadata for a result set of totalRecords
func (p Params) Meta(totalRecords int) Meta {
	totalPages := (totalRecords + p.Limit - 1) / p.Limit
	if totalPages < 1 {
		totalPages = 1
	}

	return Meta{
		CurrentPage:  p.Page,
		PerPage:      p.Limit,
		TotalPages:   totalPages,
		TotalRecords: totalRecords,
		HasNext:      p.Page < totalPages,
		HasPrevious:  p.Page > 1,
	}
}
