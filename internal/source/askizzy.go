package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catalogue-cli/internal/config"
	"github.com/sells-group/catalogue-cli/internal/model"
	"github.com/sells-group/catalogue-cli/internal/normalize"
)

// askIzzyEnvelope accepts the API's "services" key, the older "data" key, and
// the search fallback's "objects" key.
type askIzzyEnvelope struct {
	Services []AskIzzyService `json:"services"`
	Data     []AskIzzyService `json:"data"`
	Objects  []AskIzzyService `json:"objects"`
}

func (e askIzzyEnvelope) all() []AskIzzyService {
	switch {
	case len(e.Services) > 0:
		return e.Services
	case len(e.Data) > 0:
		return e.Data
	default:
		return e.Objects
	}
}

// AskIzzy reads the third-party service directory API.
type AskIzzy struct {
	cfg        config.SourceConfig
	maxResults int
	now        func() time.Time
}

// NewAskIzzy creates a directory adapter.
func NewAskIzzy(cfg config.SourceConfig, run config.SourceRunConfig) *AskIzzy {
	n := run.MaxResults
	if n <= 0 {
		n = 50
	}
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = 50
	}
	return &AskIzzy{cfg: cfg, maxResults: n, now: time.Now}
}

func (a *AskIzzy) Name() string      { return a.cfg.Name }
func (a *AskIzzy) YouthScoped() bool { return false }

// Units is the location × category product in configured order.
func (a *AskIzzy) Units() []Unit {
	var out []Unit
	for _, loc := range locations(a.cfg) {
		for _, cat := range a.cfg.Categories {
			out = append(out, Unit{Source: a.cfg.Name, Location: loc, Category: cat})
		}
	}
	return out
}

func (a *AskIzzy) primaryURL(u Unit) string {
	q := url.Values{}
	q.Set("category", u.Category)
	q.Set("lat", strconv.FormatFloat(u.Location.Lat, 'f', 4, 64))
	q.Set("lng", strconv.FormatFloat(u.Location.Lng, 'f', 4, 64))
	q.Set("radius", strconv.Itoa(a.cfg.RadiusKm))
	q.Set("limit", strconv.Itoa(a.maxResults))
	return strings.TrimRight(a.cfg.BaseURL, "/") + "/services?" + q.Encode()
}

func (a *AskIzzy) fallbackURL(u Unit) string {
	if a.cfg.FallbackURL == "" {
		return ""
	}
	loc := u.Location.Name
	if u.Location.State != "" {
		loc += ", " + u.Location.State
	}
	q := url.Values{}
	q.Set("location", loc)
	return strings.TrimRight(a.cfg.FallbackURL, "/") + "/search/" + url.PathEscape(u.Category) + "?" + q.Encode()
}

// FetchUnit queries the API for one location and category. The search
// fallback is only used when the API answers 403 or 404.
func (a *AskIzzy) FetchUnit(ctx context.Context, t Transport, u Unit) ([]RawPayload, error) {
	primary := a.primaryURL(u)
	resp, usedFallback, err := t.GetWithFallback(ctx, primary, a.fallbackURL(u))
	if err != nil {
		return nil, err
	}
	var env askIzzyEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, eris.Wrapf(err, "askizzy: decode %s", resp.URL)
	}
	fetched := a.now().UTC()
	services := env.all()
	out := make([]RawPayload, 0, len(services))
	for _, s := range services {
		out = append(out, AskIzzyPayload{
			SourceName:   a.cfg.Name,
			Service:      s,
			Category:     u.Category,
			URL:          resp.URL,
			FromFallback: usedFallback,
			FetchedAt:    fetched,
		})
	}
	return out, nil
}

// Map converts one directory service. The first location is the service's
// primary site.
func (a *AskIzzy) Map(p RawPayload) (model.CandidateRecord, error) {
	ap, ok := p.(AskIzzyPayload)
	if !ok {
		return model.CandidateRecord{}, eris.Errorf("askizzy: unexpected payload %T", p)
	}
	s := ap.Service
	if s.ID == "" {
		return model.CandidateRecord{}, eris.Errorf("askizzy: service %q has no id", s.Name)
	}

	method := "askizzy_api"
	if ap.FromFallback {
		method = "askizzy_search"
	}
	rec := model.CandidateRecord{
		SourceID:    fmt.Sprintf("%s:%s", ap.SourceName, s.ID),
		Name:        s.Name,
		Description: s.Description,
		Contact: model.Contact{
			Phone:   s.Phone,
			Email:   s.Email,
			Website: s.Website,
		},
		Keywords: s.Keywords,
		AgeRange: ap.Ages(),
		Funding:  model.Funding{Sources: s.Funding},
		Provenance: model.Provenance{
			SourceName:       ap.SourceName,
			SourceURL:        ap.URL,
			FetchedAt:        ap.FetchedAt,
			ExtractionMethod: method,
		},
	}
	if s.Contact != nil {
		if rec.Contact.Phone == "" {
			rec.Contact.Phone = s.Contact.Phone
		}
		if rec.Contact.Email == "" {
			rec.Contact.Email = s.Contact.Email
		}
	}
	if s.Organization != nil {
		rec.Organization = model.Organization{
			Name: s.Organization.Name,
			Type: normalize.OrgType(s.Organization.Type, s.Organization.Name),
			ABN:  s.Organization.ABN,
		}
	} else {
		rec.Organization.Type = normalize.OrgType("", s.Name)
	}
	if len(s.Locations) > 0 {
		l := s.Locations[0]
		rec.Location = model.Location{
			Address:  l.Address,
			Suburb:   l.Suburb,
			State:    l.State,
			Postcode: l.Postcode,
		}
		if l.Latitude != nil && l.Longitude != nil {
			rec.Location.Coordinates = &model.Coordinates{Lat: *l.Latitude, Lng: *l.Longitude}
		}
	}
	labels := append([]string{ap.Category}, s.Categories...)
	for _, label := range labels {
		if cat, ok := normalize.Category(label); ok {
			rec.Categories = append(rec.Categories, cat)
		}
	}
	return rec, nil
}
