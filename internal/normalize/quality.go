package normalize

import (
	"math"

	"github.com/sells-group/catalogue-cli/internal/model"
)

// Bucket weights of the overall quality score.
const (
	CoreWeight     = 0.4
	ContactWeight  = 0.3
	LocationWeight = 0.3
)

// Score computes bucket completeness and the weighted overall score.
func Score(r model.CandidateRecord) model.QualityScore {
	core := fraction(
		r.Name != "",
		r.Description != "",
		len(r.Categories) > 0,
		r.Organization.Name != "",
	)
	contact := fraction(
		r.Contact.Phone != "",
		r.Contact.Email != "",
		r.Contact.Website != "",
	)
	location := fraction(
		r.Location.Address != "",
		r.Location.Suburb != "",
		r.Location.Postcode != "",
		r.Location.State != "",
		r.Location.Coordinates != nil,
	)
	return model.QualityScore{
		Overall:  round4(CoreWeight*core + ContactWeight*contact + LocationWeight*location),
		Core:     round4(core),
		Contact:  round4(contact),
		Location: round4(location),
	}
}

func fraction(present ...bool) float64 {
	n := 0
	for _, p := range present {
		if p {
			n++
		}
	}
	return float64(n) / float64(len(present))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
