package source

import (
	"strings"
	"time"

	"github.com/sells-group/catalogue-cli/internal/model"
	"github.com/sells-group/catalogue-cli/internal/normalize"
)

// RawPayload is one unmapped service listing as a source returned it. The
// concrete type identifies the producing adapter; the set is closed.
type RawPayload interface {
	// Source is the configured source name that fetched the payload.
	Source() string
	// Text is the full free text used by the relevance filter.
	Text() string
	// Ages is the structured age eligibility, if the source publishes one.
	Ages() model.AgeRange

	rawPayload()
}

// CKANPayload is one row of a tabular resource on a CKAN open-data portal.
type CKANPayload struct {
	SourceName   string
	DatasetTitle string
	ResourceURL  string
	// DefaultState is the portal's jurisdiction, used when a row has none.
	DefaultState string
	Row          map[string]string
	FetchedAt    time.Time
}

func (p CKANPayload) Source() string { return p.SourceName }

func (p CKANPayload) Text() string {
	parts := make([]string, 0, 4)
	for _, k := range []string{"name", "service_name", "title", "description", "service_description", "category", "keywords"} {
		if v := p.Row[k]; v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func (p CKANPayload) Ages() model.AgeRange {
	return ageRange(p.Row["age_min"], p.Row["age_max"])
}

func (CKANPayload) rawPayload() {}

// AskIzzyService is the directory API's service shape, reduced to the fields
// the mapping reads.
type AskIzzyService struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	Website      string                `json:"website"`
	Email        string                `json:"email"`
	Phone        string                `json:"phone"`
	Categories   []string              `json:"categories"`
	Keywords     []string              `json:"keywords"`
	Organization *AskIzzyOrganization  `json:"organization"`
	Locations    []AskIzzyLocation     `json:"locations"`
	Eligibility  *AskIzzyEligibility   `json:"eligibility"`
	Funding      []string              `json:"funding_sources"`
	Contact      *AskIzzyContactPerson `json:"contact"`
}

// AskIzzyOrganization is the operating organization.
type AskIzzyOrganization struct {
	Name string `json:"name"`
	Type string `json:"type"`
	ABN  string `json:"abn"`
}

// AskIzzyLocation is one site of a service.
type AskIzzyLocation struct {
	Address   string   `json:"address"`
	Suburb    string   `json:"suburb"`
	State     string   `json:"state"`
	Postcode  string   `json:"postcode"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// AskIzzyEligibility carries the published age bounds.
type AskIzzyEligibility struct {
	AgeMin *int   `json:"age_min"`
	AgeMax *int   `json:"age_max"`
	Notes  string `json:"notes"`
}

// AskIzzyContactPerson is a named contact.
type AskIzzyContactPerson struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// AskIzzyPayload is one service from the directory API or its fallback search.
type AskIzzyPayload struct {
	SourceName   string
	Service      AskIzzyService
	Category     string
	URL          string
	FromFallback bool
	FetchedAt    time.Time
}

func (p AskIzzyPayload) Source() string { return p.SourceName }

func (p AskIzzyPayload) Text() string {
	s := p.Service
	parts := []string{s.Name, s.Description}
	parts = append(parts, s.Categories...)
	parts = append(parts, s.Keywords...)
	if s.Eligibility != nil {
		parts = append(parts, s.Eligibility.Notes)
	}
	return strings.Join(parts, " ")
}

func (p AskIzzyPayload) Ages() model.AgeRange {
	if p.Service.Eligibility == nil {
		return model.AgeRange{}
	}
	return model.AgeRange{Min: p.Service.Eligibility.AgeMin, Max: p.Service.Eligibility.AgeMax}
}

func (AskIzzyPayload) rawPayload() {}

// CommunityListing is one entry of a community listings feed.
type CommunityListing struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	Organisation string   `json:"organisation"`
	OrgType      string   `json:"org_type"`
	Address      string   `json:"address"`
	Suburb       string   `json:"suburb"`
	Postcode     string   `json:"postcode"`
	State        string   `json:"state"`
	Phone        string   `json:"phone"`
	Email        string   `json:"email"`
	Web          string   `json:"web"`
	Tags         []string `json:"tags"`
	Ages         string   `json:"ages"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
}

// CommunityPayload is one community listing.
type CommunityPayload struct {
	SourceName string
	Listing    CommunityListing
	Category   string
	URL        string
	FetchedAt  time.Time
}

func (p CommunityPayload) Source() string { return p.SourceName }

func (p CommunityPayload) Text() string {
	l := p.Listing
	parts := []string{l.Title, l.Summary, l.Ages}
	parts = append(parts, l.Tags...)
	return strings.Join(parts, " ")
}

func (p CommunityPayload) Ages() model.AgeRange { return normalize.AgeRange(p.Listing.Ages) }

func (CommunityPayload) rawPayload() {}
