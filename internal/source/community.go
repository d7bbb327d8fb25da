package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catalogue-cli/internal/config"
	"github.com/sells-group/catalogue-cli/internal/model"
	"github.com/sells-group/catalogue-cli/internal/normalize"
)

type communityFeed struct {
	Listings []CommunityListing `json:"listings"`
}

// Community reads a community listings JSON feed. The feeds configured here
// are youth directories, so every listing is in scope unless excluded.
type Community struct {
	cfg config.SourceConfig
	now func() time.Time
}

// NewCommunity creates a community feed adapter.
func NewCommunity(cfg config.SourceConfig) *Community {
	return &Community{cfg: cfg, now: time.Now}
}

func (c *Community) Name() string      { return c.cfg.Name }
func (c *Community) YouthScoped() bool { return true }

func (c *Community) Units() []Unit {
	cats := c.cfg.Categories
	if len(cats) == 0 {
		cats = []string{"all"}
	}
	var out []Unit
	for _, loc := range locations(c.cfg) {
		for _, cat := range cats {
			out = append(out, Unit{Source: c.cfg.Name, Location: loc, Category: cat})
		}
	}
	return out
}

func (c *Community) FetchUnit(ctx context.Context, t Transport, u Unit) ([]RawPayload, error) {
	q := url.Values{}
	if u.Location.Name != "" {
		q.Set("suburb", u.Location.Name)
	}
	if u.Category != "all" {
		q.Set("category", u.Category)
	}
	feedURL := c.cfg.BaseURL
	if enc := q.Encode(); enc != "" {
		sep := "?"
		if strings.Contains(feedURL, "?") {
			sep = "&"
		}
		feedURL += sep + enc
	}

	resp, err := t.Get(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	var feed communityFeed
	if err := json.Unmarshal(resp.Body, &feed); err != nil {
		return nil, eris.Wrapf(err, "community: decode %s", feedURL)
	}
	fetched := c.now().UTC()
	out := make([]RawPayload, 0, len(feed.Listings))
	for _, l := range feed.Listings {
		out = append(out, CommunityPayload{
			SourceName: c.cfg.Name,
			Listing:    l,
			Category:   u.Category,
			URL:        feedURL,
			FetchedAt:  fetched,
		})
	}
	return out, nil
}

func (c *Community) Map(p RawPayload) (model.CandidateRecord, error) {
	cp, ok := p.(CommunityPayload)
	if !ok {
		return model.CandidateRecord{}, eris.Errorf("community: unexpected payload %T", p)
	}
	l := cp.Listing
	id := l.ID
	if id == "" {
		id = strings.ToLower(l.Title + "|" + l.Suburb)
	}
	rec := model.CandidateRecord{
		SourceID:    fmt.Sprintf("%s:%s", cp.SourceName, id),
		Name:        l.Title,
		Description: l.Summary,
		Organization: model.Organization{
			Name: l.Organisation,
			Type: normalize.OrgType(l.OrgType, l.Organisation),
		},
		Location: model.Location{
			Address:  l.Address,
			Suburb:   l.Suburb,
			State:    l.State,
			Postcode: l.Postcode,
		},
		Contact: model.Contact{
			Phone:   l.Phone,
			Email:   l.Email,
			Website: l.Web,
		},
		Keywords: l.Tags,
		AgeRange: cp.Ages(),
		Provenance: model.Provenance{
			SourceName:       cp.SourceName,
			SourceURL:        cp.URL,
			FetchedAt:        cp.FetchedAt,
			ExtractionMethod: "community_feed",
		},
	}
	if rec.Location.State == "" {
		rec.Location.State = c.cfg.State
	}
	if l.Lat != nil && l.Lng != nil {
		rec.Location.Coordinates = &model.Coordinates{Lat: *l.Lat, Lng: *l.Lng}
	}
	for _, label := range append([]string{cp.Category}, l.Tags...) {
		if cat, ok := normalize.Category(label); ok {
			rec.Categories = append(rec.Categories, cat)
		}
	}
	return rec, nil
}
