// Package model defines the records that flow through the catalogue pipeline.
package model

import "time"

// OrgType is the closed organization taxonomy.
type OrgType string

const (
	OrgGovernment OrgType = "government"
	OrgFaithBased OrgType = "faith_based"
	OrgNonProfit  OrgType = "non_profit"
	OrgCommunity  OrgType = "community"
	OrgPrivate    OrgType = "private"
)

// Organization describes the body operating a service.
type Organization struct {
	Name string  `json:"name,omitempty" yaml:"name,omitempty"`
	Type OrgType `json:"type,omitempty" yaml:"type,omitempty"`
	ABN  string  `json:"abn,omitempty" yaml:"abn,omitempty"`
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Location is the physical address of a service.
type Location struct {
	Address     string       `json:"address,omitempty" yaml:"address,omitempty"`
	Suburb      string       `json:"suburb,omitempty" yaml:"suburb,omitempty"`
	City        string       `json:"city,omitempty" yaml:"city,omitempty"`
	State       string       `json:"state,omitempty" yaml:"state,omitempty"`
	Postcode    string       `json:"postcode,omitempty" yaml:"postcode,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty" yaml:"coordinates,omitempty"`
}

// Contact holds the ways to reach a service.
type Contact struct {
	Phone   string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Email   string `json:"email,omitempty" yaml:"email,omitempty"`
	Website string `json:"website,omitempty" yaml:"website,omitempty"`
}

// AgeRange is an inclusive age band. Nil bounds are open.
type AgeRange struct {
	Min *int `json:"min,omitempty" yaml:"min,omitempty"`
	Max *int `json:"max,omitempty" yaml:"max,omitempty"`
}

// IsZero reports whether neither bound is set.
func (a AgeRange) IsZero() bool { return a.Min == nil && a.Max == nil }

// Overlaps reports whether the range intersects [lo, hi]. Open bounds overlap everything.
func (a AgeRange) Overlaps(lo, hi int) bool {
	if a.Min != nil && *a.Min > hi {
		return false
	}
	if a.Max != nil && *a.Max < lo {
		return false
	}
	return true
}

// Funding describes how a service is funded.
type Funding struct {
	GovernmentFunded bool     `json:"government_funded" yaml:"government_funded"`
	Sources          []string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// Provenance records where a candidate came from.
type Provenance struct {
	SourceName       string    `json:"source_name" yaml:"source_name"`
	SourceURL        string    `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	FetchedAt        time.Time `json:"fetched_at" yaml:"fetched_at"`
	ExtractionMethod string    `json:"extraction_method,omitempty" yaml:"extraction_method,omitempty"`
}

// QualityScore is a completeness score split by field bucket. All values are in [0,1].
type QualityScore struct {
	Overall  float64 `json:"overall" yaml:"overall"`
	Core     float64 `json:"core" yaml:"core"`
	Contact  float64 `json:"contact" yaml:"contact"`
	Location float64 `json:"location" yaml:"location"`
}

// CandidateRecord is one source's view of one service.
type CandidateRecord struct {
	SourceID           string       `json:"source_id" yaml:"source_id"`
	Name               string       `json:"name" yaml:"name"`
	Description        string       `json:"description,omitempty" yaml:"description,omitempty"`
	URL                string       `json:"url,omitempty" yaml:"url,omitempty"`
	Organization       Organization `json:"organization" yaml:"organization"`
	Location           Location     `json:"location" yaml:"location"`
	Contact            Contact      `json:"contact" yaml:"contact"`
	Categories         []Category   `json:"categories,omitempty" yaml:"categories,omitempty"`
	Keywords           []string     `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	AgeRange           AgeRange     `json:"age_range" yaml:"age_range"`
	YouthSpecific      bool         `json:"youth_specific" yaml:"youth_specific"`
	IndigenousSpecific bool         `json:"indigenous_specific" yaml:"indigenous_specific"`
	DisabilitySpecific bool         `json:"disability_specific" yaml:"disability_specific"`
	CulturallySpecific bool         `json:"culturally_specific" yaml:"culturally_specific"`
	Funding            Funding      `json:"funding" yaml:"funding"`
	Provenance         Provenance   `json:"provenance" yaml:"provenance"`
	Quality            QualityScore `json:"quality" yaml:"quality"`
}

// Clone returns a deep copy of the record.
func (r CandidateRecord) Clone() CandidateRecord {
	out := r
	out.Categories = append([]Category(nil), r.Categories...)
	out.Keywords = append([]string(nil), r.Keywords...)
	out.Funding.Sources = append([]string(nil), r.Funding.Sources...)
	if r.Location.Coordinates != nil {
		c := *r.Location.Coordinates
		out.Location.Coordinates = &c
	}
	out.AgeRange = AgeRange{Min: cloneInt(r.AgeRange.Min), Max: cloneInt(r.AgeRange.Max)}
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
