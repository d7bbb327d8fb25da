package dedup

import (
	"github.com/sells-group/catalogue-cli/internal/model"
)

// Merge folds candidate c into entity record e. A populated field on e is
// replaced only when c scores strictly higher in that field's quality bucket;
// empty fields are always filled. Sets are unioned, flags OR-ed, and every
// quality score becomes the max of the two.
func Merge(e, c model.CandidateRecord) model.CandidateRecord {
	out := e.Clone()
	c = c.Clone()

	core := c.Quality.Core > e.Quality.Core
	contact := c.Quality.Contact > e.Quality.Contact
	location := c.Quality.Location > e.Quality.Location

	mergeString(&out.Name, c.Name, core)
	mergeString(&out.Description, c.Description, core)
	mergeString(&out.Organization.Name, c.Organization.Name, core)
	mergeString(&out.Organization.ABN, c.Organization.ABN, core)
	if out.Organization.Type == "" || (core && c.Organization.Type != "") {
		out.Organization.Type = c.Organization.Type
	}

	mergeString(&out.Contact.Phone, c.Contact.Phone, contact)
	mergeString(&out.Contact.Email, c.Contact.Email, contact)
	mergeString(&out.Contact.Website, c.Contact.Website, contact)
	mergeString(&out.URL, c.URL, contact)

	mergeString(&out.Location.Address, c.Location.Address, location)
	mergeString(&out.Location.Suburb, c.Location.Suburb, location)
	mergeString(&out.Location.City, c.Location.City, location)
	mergeString(&out.Location.State, c.Location.State, location)
	mergeString(&out.Location.Postcode, c.Location.Postcode, location)
	if c.Location.Coordinates != nil && (out.Location.Coordinates == nil || location) {
		out.Location.Coordinates = c.Location.Coordinates
	}

	unionSets(&out, c)
	out.Funding.GovernmentFunded = out.Funding.GovernmentFunded || c.Funding.GovernmentFunded

	out.YouthSpecific = out.YouthSpecific || c.YouthSpecific
	out.IndigenousSpecific = out.IndigenousSpecific || c.IndigenousSpecific
	out.DisabilitySpecific = out.DisabilitySpecific || c.DisabilitySpecific
	out.CulturallySpecific = out.CulturallySpecific || c.CulturallySpecific

	if out.AgeRange.Min == nil {
		out.AgeRange.Min = c.AgeRange.Min
	}
	if out.AgeRange.Max == nil {
		out.AgeRange.Max = c.AgeRange.Max
	}

	out.Quality = model.QualityScore{
		Overall:  max(e.Quality.Overall, c.Quality.Overall),
		Core:     max(e.Quality.Core, c.Quality.Core),
		Contact:  max(e.Quality.Contact, c.Quality.Contact),
		Location: max(e.Quality.Location, c.Quality.Location),
	}
	return out
}

func mergeString(dst *string, v string, replace bool) {
	if v == "" {
		return
	}
	if *dst == "" || replace {
		*dst = v
	}
}

// unionSets folds c's set-valued fields into r. Repeating it is a no-op.
func unionSets(r *model.CandidateRecord, c model.CandidateRecord) {
	r.Categories = model.Union(r.Categories, c.Categories)
	r.Keywords = model.Union(r.Keywords, c.Keywords)
	r.Funding.Sources = model.Union(r.Funding.Sources, c.Funding.Sources)
}
