/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package inspection

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the layout of inspection dates.
const DateLayout = "2006-01-02"

// Record is an inspection record.
type Record struct {
	ID          int64      `json:"id"`
	Kind        Kind       `json:"kind"`
	Plant       string     `json:"plant"`
	Line        string     `json:"line"`
	InspectedAt string     `json:"inspected_at"`
	Area        string     `json:"area"`
	Description string     `json:"description"`
	PhotoURLs   []string   `json:"photo_urls"`
	Inspector   string     `json:"inspector"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Input is the data of a new record.
type Input struct {
	Plant       string   `json:"plant"`
	Line        string   `json:"line"`
	InspectedAt string   `json:"inspected_at"`
	Area        string   `json:"area"`
	Description string   `json:"description"`
	PhotoURLs   []string `json:"photo_urls"`
	Inspector   string   `json:"inspector"`
}

// Patch is a partial update of a record. Nil fields are left unchanged.
type Patch struct {
	Plant       *string   `json:"plant,omitempty"`
	Line        *string   `json:"line,omitempty"`
	InspectedAt *string   `json:"inspected_at,omitempty"`
	Area        *string   `json:"area,omitempty"`
	Description *string   `json:"description,omitempty"`
	PhotoURLs   *[]string `json:"photo_urls,omitempty"`
	Inspector   *string   `json:"inspector,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

func (p Patch) applyTo(in Input) Input {
	setIfNotNil := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setIfNotNil(&in.Plant, p.Plant)
	setIfNotNil(&in.Line, p.Line)
	setIfNotNil(&in.InspectedAt, p.InspectedAt)
	setIfNotNil(&in.Area, p.Area)
	setIfNotNil(&in.Description, p.Description)
	setIfNotNil(&in.Inspector, p.Inspector)
	if p.PhotoURLs != nil {
		in.PhotoURLs = *p.PhotoURLs
	}
	return in
}

func (r *Record) input() Input {
	return Input{
		Plant:       r.Plant,
		Line:        r.Line,
		InspectedAt: r.InspectedAt,
		Area:        r.Area,
		Description: r.Description,
		PhotoURLs:   r.PhotoURLs,
		Inspector:   r.Inspector,
	}
}

// normalize trims text fields and replaces a nil photo list with an empty one.
func (in Input) normalize() Input {
	in.Plant = strings.TrimSpace(in.Plant)
	in.Line = strings.TrimSpace(in.Line)
	in.InspectedAt = strings.TrimSpace(in.InspectedAt)
	in.Area = strings.TrimSpace(in.Area)
	in.Inspector = strings.TrimSpace(in.Inspector)
	if in.PhotoURLs == nil {
		in.PhotoURLs = []string{}
	}
	return in
}

// validateFields checks everything that does not need master data.
func (in Input) validateFields(maxPhotos int) *ValidationError {
	verr := &ValidationError{}
	if in.Plant == "" {
		verr.add("plant", "must be set")
	}
	if in.Line == "" {
		verr.add("line", "must be set")
	}
	if in.InspectedAt == "" {
		verr.add("inspected_at", "must be set")
	} else if _, err := time.Parse(DateLayout, in.InspectedAt); err != nil {
		verr.add("inspected_at", "must be a date in YYYY-MM-DD format")
	}
	if in.Area == "" {
		verr.add("area", "must be set")
	}
	if in.Inspector == "" {
		verr.add("inspector", "must be set")
	}
	if len(in.PhotoURLs) > maxPhotos {
		verr.add("photo_urls", "too many photos, at most "+strconv.Itoa(maxPhotos)+" are allowed")
	}
	for _, rawURL := range in.PhotoURLs {
		u, err := url.Parse(rawURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			verr.add("photo_urls", "must contain absolute http(s) URLs, got "+strconv.Quote(rawURL))
			break
		}
	}
	return verr
}

// Filter selects records for listing.
type Filter struct {
	Plant    string
	Line     string
	From     string
	To       string
	Page     int
	PageSize int
}

// Page is a page of records.
type Page struct {
	Items    []Record `json:"items"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	// Total is the number of records matching the filter, -1 if the backend did not report it.
	Total int `json:"total"`
}
