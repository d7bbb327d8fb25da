package config

// queenslandLocations are the default search points for directory sources.
var queenslandLocations = []LocationConfig{
	{Name: "Brisbane", State: "QLD", Postcode: "4000", Lat: -27.4698, Lng: 153.0251},
	{Name: "Gold Coast", State: "QLD", Postcode: "4217", Lat: -28.0167, Lng: 153.4000},
	{Name: "Townsville", State: "QLD", Postcode: "4810", Lat: -19.2590, Lng: 146.8169},
	{Name: "Cairns", State: "QLD", Postcode: "4870", Lat: -16.9186, Lng: 145.7781},
	{Name: "Toowoomba", State: "QLD", Postcode: "4350", Lat: -27.5598, Lng: 151.9507},
	{Name: "Rockhampton", State: "QLD", Postcode: "4700", Lat: -23.3781, Lng: 150.5136},
}

var portalSearchTerms = []string{
	"youth services",
	"youth justice",
	"community services",
	"legal aid",
	"mental health services",
}

// DefaultSources returns the built-in source list used when none is configured.
func DefaultSources() []SourceConfig {
	portal := func(name, baseURL, state string) SourceConfig {
		return SourceConfig{
			Name:        name,
			Type:        "ckan",
			BaseURL:     baseURL,
			State:       state,
			SearchTerms: portalSearchTerms,
		}
	}
	return []SourceConfig{
		portal("data_gov_au", "https://data.gov.au/api/3/action", ""),
		portal("data_nsw", "https://data.nsw.gov.au/api/3/action", "NSW"),
		portal("data_vic", "https://www.data.vic.gov.au/api/3/action", "VIC"),
		portal("data_qld", "https://www.data.qld.gov.au/api/3/action", "QLD"),
		{
			Name:        "askizzy",
			Type:        "askizzy",
			BaseURL:     "https://api.serviceseeker.com.au/api/v2",
			FallbackURL: "https://askizzy.org.au",
			Locations:   queenslandLocations,
			Categories:  []string{"legal", "mental-health", "housing", "education-and-training", "drugs-and-alcohol", "support-and-counselling"},
			RadiusKm:    50,
		},
	}
}
