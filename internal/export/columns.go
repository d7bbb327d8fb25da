package export

import (
	"strconv"
	"strings"

	"github.com/sells-group/catalogue-cli/internal/model"
)

// columnKind is the physical type of a tabular column.
type columnKind int

const (
	kindString columnKind = iota
	kindFloat
	kindInt
	kindBool
)

// column is one flattened entity field. value returns nil when absent.
type column struct {
	name  string
	kind  columnKind
	value func(e model.ServiceEntity) any
}

func str(f func(e model.ServiceEntity) string) func(model.ServiceEntity) any {
	return func(e model.ServiceEntity) any {
		if v := f(e); v != "" {
			return v
		}
		return nil
	}
}

func list(f func(e model.ServiceEntity) []string) func(model.ServiceEntity) any {
	return func(e model.ServiceEntity) any {
		if v := f(e); len(v) > 0 {
			return strings.Join(v, listSep)
		}
		return nil
	}
}

// listSep joins set-valued fields in tabular output.
const listSep = ";"

// entityColumns is the ordered tabular layout shared by CSV, XLSX, and Parquet.
var entityColumns = []column{
	{"id", kindString, str(func(e model.ServiceEntity) string { return e.ID })},
	{"name", kindString, str(func(e model.ServiceEntity) string { return e.Record.Name })},
	{"description", kindString, str(func(e model.ServiceEntity) string { return e.Record.Description })},
	{"url", kindString, str(func(e model.ServiceEntity) string { return e.Record.URL })},
	{"organization_name", kindString, str(func(e model.ServiceEntity) string { return e.Record.Organization.Name })},
	{"organization_type", kindString, str(func(e model.ServiceEntity) string { return string(e.Record.Organization.Type) })},
	{"abn", kindString, str(func(e model.ServiceEntity) string { return e.Record.Organization.ABN })},
	{"address", kindString, str(func(e model.ServiceEntity) string { return e.Record.Location.Address })},
	{"suburb", kindString, str(func(e model.ServiceEntity) string { return e.Record.Location.Suburb })},
	{"city", kindString, str(func(e model.ServiceEntity) string { return e.Record.Location.City })},
	{"state", kindString, str(func(e model.ServiceEntity) string { return e.Record.Location.State })},
	{"postcode", kindString, str(func(e model.ServiceEntity) string { return e.Record.Location.Postcode })},
	{"latitude", kindFloat, func(e model.ServiceEntity) any {
		if c := e.Record.Location.Coordinates; c != nil {
			return c.Lat
		}
		return nil
	}},
	{"longitude", kindFloat, func(e model.ServiceEntity) any {
		if c := e.Record.Location.Coordinates; c != nil {
			return c.Lng
		}
		return nil
	}},
	{"phone", kindString, str(func(e model.ServiceEntity) string { return e.Record.Contact.Phone })},
	{"email", kindString, str(func(e model.ServiceEntity) string { return e.Record.Contact.Email })},
	{"website", kindString, str(func(e model.ServiceEntity) string { return e.Record.Contact.Website })},
	{"categories", kindString, list(func(e model.ServiceEntity) []string {
		out := make([]string, len(e.Record.Categories))
		for i, c := range e.Record.Categories {
			out[i] = string(c)
		}
		return out
	})},
	{"keywords", kindString, list(func(e model.ServiceEntity) []string { return e.Record.Keywords })},
	{"age_min", kindInt, func(e model.ServiceEntity) any { return intOrNil(e.Record.AgeRange.Min) }},
	{"age_max", kindInt, func(e model.ServiceEntity) any { return intOrNil(e.Record.AgeRange.Max) }},
	{"youth_specific", kindBool, func(e model.ServiceEntity) any { return e.Record.YouthSpecific }},
	{"indigenous_specific", kindBool, func(e model.ServiceEntity) any { return e.Record.IndigenousSpecific }},
	{"disability_specific", kindBool, func(e model.ServiceEntity) any { return e.Record.DisabilitySpecific }},
	{"culturally_specific", kindBool, func(e model.ServiceEntity) any { return e.Record.CulturallySpecific }},
	{"government_funded", kindBool, func(e model.ServiceEntity) any { return e.Record.Funding.GovernmentFunded }},
	{"funding_sources", kindString, list(func(e model.ServiceEntity) []string { return e.Record.Funding.Sources })},
	{"quality_overall", kindFloat, func(e model.ServiceEntity) any { return e.Record.Quality.Overall }},
	{"quality_core", kindFloat, func(e model.ServiceEntity) any { return e.Record.Quality.Core }},
	{"quality_contact", kindFloat, func(e model.ServiceEntity) any { return e.Record.Quality.Contact }},
	{"quality_location", kindFloat, func(e model.ServiceEntity) any { return e.Record.Quality.Location }},
	{"sources", kindString, list(func(e model.ServiceEntity) []string { return e.SourceNames() })},
	{"merged_from", kindString, list(func(e model.ServiceEntity) []string { return e.MergedFrom })},
	{"needs_review", kindBool, func(e model.ServiceEntity) any { return e.NeedsReview }},
	{"review_reason", kindString, str(func(e model.ServiceEntity) string { return e.ReviewReason })},
}

func intOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

// columnNames returns the header row.
func columnNames() []string {
	out := make([]string, len(entityColumns))
	for i, c := range entityColumns {
		out[i] = c.name
	}
	return out
}

// textRow renders an entity as strings; absent values are empty.
func textRow(e model.ServiceEntity) []string {
	out := make([]string, len(entityColumns))
	for i, c := range entityColumns {
		out[i] = formatValue(c.value(e))
	}
	return out
}

func formatValue(v any) string {
	switch tv := v.(type) {
	case nil:
		return ""
	case string:
		return tv
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(tv, 10)
	case bool:
		return strconv.FormatBool(tv)
	default:
		return ""
	}
}
