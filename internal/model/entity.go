package model

// ServiceEntity is the canonical, deduplicated view of one real-world service.
type ServiceEntity struct {
	ID           string          `json:"id" yaml:"id"`
	Record       CandidateRecord `json:"record" yaml:"record"`
	MergedFrom   []string        `json:"merged_from" yaml:"merged_from"`
	Sources      []Provenance    `json:"sources" yaml:"sources"`
	NeedsReview  bool            `json:"needs_review" yaml:"needs_review"`
	ReviewReason string          `json:"review_reason,omitempty" yaml:"review_reason,omitempty"`
}

// Clone returns a deep copy of the entity.
func (e ServiceEntity) Clone() ServiceEntity {
	out := e
	out.Record = e.Record.Clone()
	out.MergedFrom = append([]string(nil), e.MergedFrom...)
	out.Sources = append([]Provenance(nil), e.Sources...)
	return out
}

// SourceNames returns the distinct contributing source names.
func (e ServiceEntity) SourceNames() []string {
	names := make([]string, 0, len(e.Sources))
	for _, p := range e.Sources {
		names = append(names, p.SourceName)
	}
	return SortedSet(names...)
}
