package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catalogue-cli/internal/config"
	"github.com/sells-group/catalogue-cli/internal/fetcher"
	"github.com/sells-group/catalogue-cli/internal/model"
	"github.com/sells-group/catalogue-cli/internal/normalize"
)

// datasetExclusions mark portal datasets that match a search term but carry
// no service listings.
var datasetExclusions = []string{
	"water", "transport", "traffic", "parking", "road", "roads", "budget", "expenditure",
	"spending", "tender", "tenders", "weather", "crime statistics", "census",
}

// datasetInclusions mark datasets worth downloading.
var datasetInclusions = append(append([]string{}, inclusionTerms...),
	"service", "services", "directory", "support", "legal", "justice", "community", "health", "housing",
)

// ckanResponse is the package_search envelope.
type ckanResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Count   int           `json:"count"`
		Results []ckanDataset `json:"results"`
	} `json:"result"`
}

type ckanDataset struct {
	Name      string         `json:"name"`
	Title     string         `json:"title"`
	Notes     string         `json:"notes"`
	Tags      []ckanTag      `json:"tags"`
	Resources []ckanResource `json:"resources"`
}

type ckanTag struct {
	Name string `json:"name"`
}

type ckanResource struct {
	URL    string `json:"url"`
	Format string `json:"format"`
	Name   string `json:"name"`
}

// CKAN reads service tables published on CKAN open-data portals.
type CKAN struct {
	cfg        config.SourceConfig
	maxResults int
	now        func() time.Time
}

// NewCKAN creates a portal adapter.
func NewCKAN(cfg config.SourceConfig, run config.SourceRunConfig) *CKAN {
	n := run.MaxResults
	if n <= 0 {
		n = 50
	}
	return &CKAN{cfg: cfg, maxResults: n, now: time.Now}
}

func (c *CKAN) Name() string      { return c.cfg.Name }
func (c *CKAN) YouthScoped() bool { return false }

// Units is one unit per search term for each configured location.
func (c *CKAN) Units() []Unit {
	var out []Unit
	for _, loc := range locations(c.cfg) {
		for _, term := range c.cfg.SearchTerms {
			out = append(out, Unit{Source: c.cfg.Name, Location: loc, Category: term})
		}
	}
	return out
}

// FetchUnit searches the portal and downloads the tabular resources of each
// relevant dataset. A failed resource does not stop the others.
func (c *CKAN) FetchUnit(ctx context.Context, t Transport, u Unit) ([]RawPayload, error) {
	q := url.Values{}
	q.Set("q", u.Category)
	q.Set("rows", strconv.Itoa(c.maxResults))
	searchURL := strings.TrimRight(c.cfg.BaseURL, "/") + "/package_search?" + q.Encode()

	resp, err := t.Get(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	var env ckanResponse
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, eris.Wrapf(err, "ckan: decode package_search from %s", c.cfg.Name)
	}
	if !env.Success {
		return nil, eris.Errorf("ckan: package_search on %s reported failure", c.cfg.Name)
	}

	state := u.Location.State
	if state == "" {
		state = c.cfg.State
	}

	var out []RawPayload
	var errs []error
	for _, ds := range env.Result.Results {
		if !datasetRelevant(ds) {
			continue
		}
		for _, res := range ds.Resources {
			format := resourceFormat(res)
			if format == "" {
				continue
			}
			if err := ctx.Err(); err != nil {
				return out, err
			}
			rows, err := c.fetchResource(ctx, t, res.URL, format)
			if err != nil {
				zap.L().Warn("ckan resource failed",
					zap.String("source", c.cfg.Name),
					zap.String("dataset", ds.Name),
					zap.String("url", res.URL),
					zap.Error(err),
				)
				errs = append(errs, err)
				continue
			}
			fetched := c.now().UTC()
			for _, row := range rows {
				out = append(out, CKANPayload{
					SourceName:   c.cfg.Name,
					DatasetTitle: ds.Title,
					ResourceURL:  res.URL,
					DefaultState: state,
					Row:          row,
					FetchedAt:    fetched,
				})
			}
		}
	}
	return out, errors.Join(errs...)
}

func (c *CKAN) fetchResource(ctx context.Context, t Transport, rawURL, format string) ([]map[string]string, error) {
	resp, err := t.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	var rows []map[string]string
	switch format {
	case "csv":
		rows, err = fetcher.ReadCSVRecords(ctx, bytes.NewReader(resp.Body))
	case "xlsx":
		rows, err = fetcher.ReadXLSXRecords(resp.Body)
	case "json":
		var recs []map[string]any
		recs, err = fetcher.DecodeJSONRecords(resp.Body)
		for _, r := range recs {
			rows = append(rows, stringifyRow(r))
		}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "ckan: parse %s resource %s", format, rawURL)
	}
	for i, r := range rows {
		rows[i] = canonicalKeys(r)
	}
	return rows, nil
}

// Map converts one resource row. Column names vary between portals, so each
// field is read from the first populated alias.
func (c *CKAN) Map(p RawPayload) (model.CandidateRecord, error) {
	cp, ok := p.(CKANPayload)
	if !ok {
		return model.CandidateRecord{}, eris.Errorf("ckan: unexpected payload %T", p)
	}
	row := cp.Row
	name := firstOf(row, "name", "service_name", "title", "organisation_name", "organization_name", "provider")
	if name == "" {
		return model.CandidateRecord{}, eris.Errorf("ckan: row without a name in %s", cp.ResourceURL)
	}

	rec := model.CandidateRecord{
		SourceID:    ckanSourceID(cp, name),
		Name:        name,
		Description: firstOf(row, "description", "service_description", "summary", "details"),
		URL:         firstOf(row, "url", "service_url"),
		Organization: model.Organization{
			Name: firstOf(row, "organisation", "organization", "organisation_name", "organization_name", "provider"),
			Type: normalize.OrgType(firstOf(row, "organisation_type", "organization_type", "provider_type", "sector"), name),
			ABN:  firstOf(row, "abn"),
		},
		Location: model.Location{
			Address:  firstOf(row, "address", "street_address", "address_line_1", "location"),
			Suburb:   firstOf(row, "suburb", "locality", "town"),
			City:     firstOf(row, "city"),
			State:    firstOf(row, "state", "state_territory"),
			Postcode: firstOf(row, "postcode", "post_code", "postal_code"),
		},
		Contact: model.Contact{
			Phone:   firstOf(row, "phone", "telephone", "phone_number", "contact_phone"),
			Email:   firstOf(row, "email", "email_address", "contact_email"),
			Website: firstOf(row, "website", "web", "web_address"),
		},
		AgeRange: cp.Ages(),
		Provenance: model.Provenance{
			SourceName:       cp.SourceName,
			SourceURL:        cp.ResourceURL,
			FetchedAt:        cp.FetchedAt,
			ExtractionMethod: "ckan_resource",
		},
	}
	if rec.Location.State == "" {
		rec.Location.State = cp.DefaultState
	}
	if rec.AgeRange.IsZero() {
		rec.AgeRange = normalize.AgeRange(firstOf(row, "age_range", "ages", "age_group", "eligibility"))
	}
	if lat, lng, ok := parseCoords(firstOf(row, "lat", "latitude", "y"), firstOf(row, "lng", "lon", "long", "longitude", "x")); ok {
		rec.Location.Coordinates = &model.Coordinates{Lat: lat, Lng: lng}
	}
	if cat, ok := normalize.Category(firstOf(row, "category", "service_type", "type")); ok {
		rec.Categories = []model.Category{cat}
	}
	if kw := firstOf(row, "keywords", "tags"); kw != "" {
		rec.Keywords = splitList(kw)
	}
	if f := firstOf(row, "funding", "funding_source", "funder"); f != "" {
		rec.Funding.Sources = splitList(f)
	}
	return rec, nil
}

func ckanSourceID(p CKANPayload, name string) string {
	if id := firstOf(p.Row, "id", "service_id", "record_id", "_id"); id != "" {
		return fmt.Sprintf("%s:%s", p.SourceName, id)
	}
	return fmt.Sprintf("%s:%s#%s|%s", p.SourceName, path.Base(p.ResourceURL), strings.ToLower(name), strings.ToLower(firstOf(p.Row, "address", "street_address", "suburb")))
}

func datasetRelevant(ds ckanDataset) bool {
	parts := []string{ds.Title, ds.Notes}
	for _, tg := range ds.Tags {
		parts = append(parts, tg.Name)
	}
	text := strings.Join(parts, " ")
	if normalize.MatchesAny(text, datasetExclusions) {
		return false
	}
	return normalize.MatchesAny(text, datasetInclusions)
}

func resourceFormat(r ckanResource) string {
	f := strings.ToLower(strings.TrimSpace(r.Format))
	if f == "" {
		f = strings.TrimPrefix(strings.ToLower(path.Ext(r.URL)), ".")
	}
	switch f {
	case "csv", "json", "xlsx":
		return f
	default:
		return ""
	}
}

func canonicalKeys(row map[string]string) map[string]string {
	out := make(map[string]string, len(row))
	for k, v := range row {
		k = strings.ToLower(strings.TrimSpace(k))
		k = strings.NewReplacer(" ", "_", "-", "_", "/", "_").Replace(k)
		out[k] = v
	}
	return out
}

func stringifyRow(r map[string]any) map[string]string {
	out := make(map[string]string, len(r))
	for k, v := range r {
		switch tv := v.(type) {
		case nil:
		case string:
			out[k] = tv
		case float64:
			out[k] = strconv.FormatFloat(tv, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(tv)
		default:
			b, err := json.Marshal(tv)
			if err == nil {
				out[k] = string(b)
			}
		}
	}
	return out
}

func parseCoords(latText, lngText string) (float64, float64, bool) {
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(latText), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(lngText), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == '|' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
