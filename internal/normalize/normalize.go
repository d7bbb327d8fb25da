// Package normalize turns adapter output into canonical Candidate Records:
// field normalization, validation, targeting classifiers, and quality scoring.
// Everything here is pure and source-agnostic.
package normalize

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catalogue-cli/internal/model"
)

// Result is the outcome of normalizing one candidate. Rejection is non-nil
// when the record fails a mandatory field; Warnings lists populated values
// that were dropped or kept unnormalized.
type Result struct {
	Record    model.CandidateRecord
	Warnings  []model.FieldError
	Rejection *model.Rejection
}

// Valid reports whether the record passed validation.
func (r Result) Valid() bool { return r.Rejection == nil }

// Normalize normalizes every populated field of raw, validates it, and scores it.
// A sparse record is never rejected; only a missing name or a missing
// address-and-suburb are.
func Normalize(raw model.CandidateRecord) Result {
	r := raw.Clone()
	var warn []model.FieldError
	addWarn := func(field, value, msg string) {
		warn = append(warn, model.FieldError{SourceID: r.SourceID, Field: field, Value: value, Message: msg})
	}

	r.Name = Text(r.Name)
	r.Description = Text(r.Description)
	r.Organization.Name = Text(r.Organization.Name)
	r.Organization.Type = OrgType(string(r.Organization.Type), r.Organization.Name)
	if abn, ok := ABN(r.Organization.ABN); ok {
		r.Organization.ABN = abn
	} else {
		addWarn("organization.abn", raw.Organization.ABN, "invalid ABN checksum")
		r.Organization.ABN = ""
	}

	normalizeLocation(&r, raw, addWarn)

	if v, ok := Phone(r.Contact.Phone); ok {
		r.Contact.Phone = v
	} else {
		addWarn("contact.phone", raw.Contact.Phone, "unrecognized phone format")
		r.Contact.Phone = v
	}
	if v, ok := Email(r.Contact.Email); ok {
		r.Contact.Email = v
	} else {
		addWarn("contact.email", raw.Contact.Email, "invalid email address")
		r.Contact.Email = ""
	}
	if v, ok := URL(r.Contact.Website); ok {
		r.Contact.Website = v
	} else {
		addWarn("contact.website", raw.Contact.Website, "invalid url")
		r.Contact.Website = ""
	}
	if v, ok := URL(r.URL); ok {
		r.URL = v
	} else {
		addWarn("url", raw.URL, "invalid url")
		r.URL = ""
	}

	r.Categories = Categories(r.Categories)
	r.Keywords = Keywords(r.Keywords)
	r.Funding.Sources = model.SortedSet(r.Funding.Sources...)
	normalizeAgeRange(&r, addWarn)

	if errs := validateMandatory(r); len(errs) > 0 {
		return Result{
			Record:   r,
			Warnings: warn,
			Rejection: &model.Rejection{
				SourceID:   r.SourceID,
				SourceName: r.Provenance.SourceName,
				Name:       r.Name,
				Errors:     errs,
			},
		}
	}

	r.Quality = Score(r)
	if len(r.Categories) == 0 {
		r.Categories = []model.Category{model.CategoryCommunityService}
	}
	Classify(&r)

	return Result{Record: r, Warnings: warn}
}

func normalizeLocation(r *model.CandidateRecord, raw model.CandidateRecord, addWarn func(field, value, msg string)) {
	loc := &r.Location
	loc.Address = Text(loc.Address)
	loc.Suburb = PlaceName(loc.Suburb)
	loc.City = PlaceName(loc.City)

	parsed := ParseAddress(loc.Address)
	if loc.Postcode == "" {
		loc.Postcode = parsed.Postcode
	}
	if loc.State == "" {
		loc.State = parsed.State
	}
	if loc.Suburb == "" && parsed.Street != "" {
		loc.Suburb = PlaceName(parsed.Suburb)
	}

	if st, ok := State(loc.State); ok {
		loc.State = st
	} else {
		addWarn("location.state", raw.Location.State, "unknown state or territory")
		loc.State = parsed.State
	}
	if pc, ok := Postcode(loc.Postcode); ok {
		loc.Postcode = pc
	} else {
		addWarn("location.postcode", raw.Location.Postcode, "postcode must be 4 digits")
		loc.Postcode = parsed.Postcode
	}

	if c := loc.Coordinates; c != nil {
		switch {
		case c.Lat == 0 && c.Lng == 0:
			loc.Coordinates = nil
		case !InAustralia(c.Lat, c.Lng):
			addWarn("location.coordinates", fmt.Sprintf("%f,%f", c.Lat, c.Lng), "coordinates outside Australia")
			loc.Coordinates = nil
		}
	}
}

func normalizeAgeRange(r *model.CandidateRecord, addWarn func(field, value, msg string)) {
	a := &r.AgeRange
	if a.Min != nil && (*a.Min < 0 || *a.Min > 120) {
		addWarn("age_range.min", fmt.Sprint(*a.Min), "age out of range")
		a.Min = nil
	}
	if a.Max != nil && (*a.Max < 0 || *a.Max > 120) {
		addWarn("age_range.max", fmt.Sprint(*a.Max), "age out of range")
		a.Max = nil
	}
	if a.Min != nil && a.Max != nil && *a.Min > *a.Max {
		addWarn("age_range", fmt.Sprintf("%d-%d", *a.Min, *a.Max), "minimum age exceeds maximum")
		*a = model.AgeRange{}
	}
}

// InAustralia reports whether a point falls inside a bounding box around
// Australia and its external territories.
func InAustralia(lat, lng float64) bool {
	return lat >= -55 && lat <= -9 && lng >= 96 && lng <= 168
}

func validateMandatory(r model.CandidateRecord) []model.FieldError {
	var errs []model.FieldError
	if r.Name == "" {
		errs = append(errs, model.FieldError{SourceID: r.SourceID, Field: "name", Message: "name is required"})
	}
	if r.Location.Address == "" && r.Location.Suburb == "" {
		errs = append(errs, model.FieldError{SourceID: r.SourceID, Field: "location", Message: "address or suburb is required"})
	}
	return errs
}

// Validate reports whether r satisfies the mandatory-field invariant.
func Validate(r model.CandidateRecord) error {
	if errs := validateMandatory(r); len(errs) > 0 {
		return eris.Errorf("normalize: %s: %s", errs[0].Field, errs[0].Message)
	}
	return nil
}
