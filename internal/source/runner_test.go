package source

import (
	"context"
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catalogue-cli/internal/config"
	"github.com/sells-group/catalogue-cli/internal/model"
	"github.com/sells-group/catalogue-cli/internal/resilience"
)

// fakeAdapter returns canned community payloads.
type fakeAdapter struct {
	name     string
	youth    bool
	units    []Unit
	payloads map[string][]RawPayload
	errs     map[string]error
}

func (f *fakeAdapter) Name() string      { return f.name }
func (f *fakeAdapter) YouthScoped() bool { return f.youth }
func (f *fakeAdapter) Units() []Unit     { return f.units }

func (f *fakeAdapter) FetchUnit(_ context.Context, _ Transport, u Unit) ([]RawPayload, error) {
	return f.payloads[u.Category], f.errs[u.Category]
}

func (f *fakeAdapter) Map(p RawPayload) (model.CandidateRecord, error) {
	cp := p.(CommunityPayload)
	if cp.Listing.ID == "" {
		return model.CandidateRecord{}, eris.New("fake: no id")
	}
	return model.CandidateRecord{SourceID: f.name + ":" + cp.Listing.ID, Name: cp.Listing.Title}, nil
}

func listing(id, title, summary string) RawPayload {
	return CommunityPayload{SourceName: "fake", Listing: CommunityListing{ID: id, Title: title, Summary: summary}}
}

func TestRunner_RunUnitFiltersAndMaps(t *testing.T) {
	a := &fakeAdapter{
		name: "fake",
		payloads: map[string][]RawPayload{
			"legal": {
				listing("1", "Youth Legal Service", ""),
				listing("2", "Seniors Legal Help", "for young and old"),
				listing("3", "Tenancy Advice", "general public"),
				listing("", "Youth Hub", ""),
			},
		},
	}
	r := NewRunner(nil, nil, resilience.DefaultCircuitBreakerConfig(), testOptions())

	res := r.RunUnit(context.Background(), a, nil, Unit{Source: "fake", Category: "legal"})
	require.NoError(t, res.Err)
	assert.Equal(t, 4, res.Fetched)
	assert.Equal(t, 2, res.Filtered)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "fake:1", res.Candidates[0].SourceID)
	require.Len(t, res.MapErrors, 1)
	assert.Equal(t, resilience.KindValidationRejected, resilience.KindOf(res.MapErrors[0]))
}

func TestRunner_YouthScopedKeepsUntaggedListings(t *testing.T) {
	a := &fakeAdapter{
		name:     "fake",
		youth:    true,
		payloads: map[string][]RawPayload{"all": {listing("1", "Drop-in Centre", ""), listing("2", "Aged Care Link", "")}},
	}
	r := NewRunner(nil, nil, resilience.DefaultCircuitBreakerConfig(), testOptions())
	res := r.RunUnit(context.Background(), a, nil, Unit{Category: "all"})
	assert.Len(t, res.Candidates, 1)
	assert.Equal(t, 1, res.Filtered)
}

func TestRunner_UntaggedErrorsAreTransportErrors(t *testing.T) {
	a := &fakeAdapter{
		name:     "fake",
		payloads: map[string][]RawPayload{"legal": {listing("1", "Youth Legal", "")}},
		errs:     map[string]error{"legal": eris.New("decode failed")},
	}
	r := NewRunner(nil, nil, resilience.DefaultCircuitBreakerConfig(), testOptions())
	res := r.RunUnit(context.Background(), a, nil, Unit{Category: "legal"})
	require.Error(t, res.Err)
	assert.Equal(t, resilience.KindTransport, resilience.KindOf(res.Err))
	assert.Len(t, res.Candidates, 1, "partial payloads are still mapped")
}

func TestRunner_KindAndCancellationPreserved(t *testing.T) {
	denied := resilience.NewKind(resilience.KindComplianceDenied, "fake", "nope")
	assert.Equal(t, denied, classify(denied, "fake"))
	assert.True(t, errors.Is(classify(context.Canceled, "fake"), context.Canceled))
}

func TestRelevance(t *testing.T) {
	tests := []struct {
		name  string
		p     RawPayload
		youth bool
		want  Verdict
	}{
		{"youth term", listing("1", "Youth Justice Support", ""), false, Keep},
		{"exclusion wins over inclusion", listing("1", "Youth and Seniors Centre", ""), false, Excluded},
		{"aged care", listing("1", "Community Link", "aged care packages"), true, Excluded},
		{"18 plus", listing("1", "Drop-in", "18+ only"), true, Excluded},
		{"no signal", listing("1", "Tenancy Advice", "general public"), false, NotRelevant},
		{"youth scoped source", listing("1", "Tenancy Advice", ""), true, Keep},
		{"age overlap", AskIzzyPayload{Service: AskIzzyService{Name: "Counselling", Eligibility: &AskIzzyEligibility{AgeMin: model.IntPtr(12), AgeMax: model.IntPtr(18)}}}, false, Keep},
		{"age outside band", AskIzzyPayload{Service: AskIzzyService{Name: "Counselling", Eligibility: &AskIzzyEligibility{AgeMin: model.IntPtr(30)}}}, false, NotRelevant},
		{"incidental substring", listing("1", "Steenage Street Clinic", ""), false, NotRelevant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Relevance(tt.p, tt.youth))
		})
	}
}

func TestRegistry(t *testing.T) {
	reg := NewEmptyRegistry()
	require.NoError(t, reg.Register(&fakeAdapter{name: "b"}))
	require.NoError(t, reg.Register(&fakeAdapter{name: "a"}))
	assert.Error(t, reg.Register(&fakeAdapter{name: "a"}))

	assert.Equal(t, []string{"b", "a"}, reg.AllNames())

	sel, err := reg.Select([]string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, sel, 2)
	assert.Equal(t, "b", sel[0].Name(), "selection keeps registration order")

	_, err = reg.Select([]string{"zzz"})
	assert.Error(t, err)

	all, err := reg.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestNewRegistry_FromConfig(t *testing.T) {
	reg, err := NewRegistry([]config.SourceConfig{
		{Name: "portal", Type: "ckan", BaseURL: "https://p.example.org/api/3/action", SearchTerms: []string{"youth"}},
		{Name: "dir", Type: "askizzy", BaseURL: "https://d.example.org", Disabled: true},
		{Name: "feed", Type: "community", BaseURL: "https://f.example.org/listings.json"},
	}, config.SourceRunConfig{MaxResults: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"portal", "feed"}, reg.AllNames())

	_, err = NewRegistry([]config.SourceConfig{{Name: "x", Type: "ftp"}}, config.SourceRunConfig{})
	assert.Error(t, err)
}

func TestUnit_String(t *testing.T) {
	assert.Equal(t, "brisbane/legal", Unit{Location: config.LocationConfig{Name: "Brisbane"}, Category: "legal"}.String())
	assert.Equal(t, "qld/youth", Unit{Location: config.LocationConfig{State: "QLD"}, Category: "youth"}.String())
	assert.Equal(t, "all/youth", Unit{Category: "youth"}.String())
}

func TestVerdict_String(t *testing.T) {
	assert.Equal(t, "keep", Keep.String())
	assert.Equal(t, "excluded", Excluded.String())
	assert.Equal(t, "not_relevant", NotRelevant.String())
}
