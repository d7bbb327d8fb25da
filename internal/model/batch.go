package model

import (
	"sort"
	"time"
)

// Phase is a pipeline state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseSources  Phase = "sources"
	PhaseValidate Phase = "validate"
	PhaseDedupe   Phase = "dedupe"
	PhaseExport   Phase = "export"
	PhaseDone     Phase = "done"
	PhaseFailed   Phase = "failed"
)

// HistogramBuckets is the number of fixed-width quality histogram buckets.
const HistogramBuckets = 10

// HistogramBucket maps a quality score in [0,1] to its bucket index.
func HistogramBucket(score float64) int {
	i := int(score * HistogramBuckets)
	if i < 0 {
		return 0
	}
	if i >= HistogramBuckets {
		return HistogramBuckets - 1
	}
	return i
}

// SourceSummary aggregates what one source contributed to a run.
type SourceSummary struct {
	Units       int            `json:"units" yaml:"units"`
	UnitsFailed int            `json:"units_failed" yaml:"units_failed"`
	Candidates  int            `json:"candidates" yaml:"candidates"`
	FilteredOut int            `json:"filtered_out" yaml:"filtered_out"`
	ByState     map[string]int `json:"by_state,omitempty" yaml:"by_state,omitempty"`
}

// RunStatistics is the accounting for one pipeline run.
type RunStatistics struct {
	RunID            string                   `json:"run_id" yaml:"run_id"`
	Phase            Phase                    `json:"phase" yaml:"phase"`
	Cancelled        bool                     `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
	SourcesRun       int                      `json:"sources_run" yaml:"sources_run"`
	SourcesFailed    int                      `json:"sources_failed" yaml:"sources_failed"`
	CandidatesFound  int                      `json:"candidates_found" yaml:"candidates_found"`
	FilteredOut      int                      `json:"filtered_out" yaml:"filtered_out"`
	ValidCandidates  int                      `json:"valid_candidates" yaml:"valid_candidates"`
	Rejected         int                      `json:"rejected" yaml:"rejected"`
	DuplicatesMerged int                      `json:"duplicates_merged" yaml:"duplicates_merged"`
	EntitiesCreated  int                      `json:"entities_created" yaml:"entities_created"`
	FlaggedForReview int                      `json:"flagged_for_review" yaml:"flagged_for_review"`
	Errors           int                      `json:"errors" yaml:"errors"`
	ErrorsByKind     map[string]int           `json:"errors_by_kind" yaml:"errors_by_kind"`
	ErrorsBySource   map[string]int           `json:"errors_by_source" yaml:"errors_by_source"`
	QualityHistogram [HistogramBuckets]int    `json:"quality_histogram" yaml:"quality_histogram"`
	Sources          map[string]SourceSummary `json:"sources" yaml:"sources"`
	StartedAt        time.Time                `json:"started_at" yaml:"started_at"`
	FinishedAt       time.Time                `json:"finished_at" yaml:"finished_at"`
}

// NewRunStatistics returns statistics with initialized maps.
func NewRunStatistics(runID string) RunStatistics {
	return RunStatistics{
		RunID:          runID,
		Phase:          PhaseIdle,
		ErrorsByKind:   make(map[string]int),
		ErrorsBySource: make(map[string]int),
		Sources:        make(map[string]SourceSummary),
	}
}

// Clone returns a deep copy.
func (s RunStatistics) Clone() RunStatistics {
	out := s
	out.ErrorsByKind = make(map[string]int, len(s.ErrorsByKind))
	for k, v := range s.ErrorsByKind {
		out.ErrorsByKind[k] = v
	}
	out.ErrorsBySource = make(map[string]int, len(s.ErrorsBySource))
	for k, v := range s.ErrorsBySource {
		out.ErrorsBySource[k] = v
	}
	out.Sources = make(map[string]SourceSummary, len(s.Sources))
	for k, v := range s.Sources {
		byState := make(map[string]int, len(v.ByState))
		for st, n := range v.ByState {
			byState[st] = n
		}
		v.ByState = byState
		out.Sources[k] = v
	}
	return out
}

// FieldError describes one field-level problem found during validation.
type FieldError struct {
	SourceID string `json:"source_id" yaml:"source_id"`
	Field    string `json:"field" yaml:"field"`
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`
	Message  string `json:"message" yaml:"message"`
}

// Rejection is a candidate that failed mandatory validation.
type Rejection struct {
	SourceID   string       `json:"source_id" yaml:"source_id"`
	SourceName string       `json:"source_name" yaml:"source_name"`
	Name       string       `json:"name,omitempty" yaml:"name,omitempty"`
	Errors     []FieldError `json:"errors" yaml:"errors"`
}

// ValidationReport collects rejections and dropped-value warnings.
type ValidationReport struct {
	Rejections []Rejection  `json:"rejections" yaml:"rejections"`
	Warnings   []FieldError `json:"warnings" yaml:"warnings"`
}

// MatchedBy tells how a candidate was matched to an entity.
type MatchedBy string

const (
	MatchedByKey        MatchedBy = "key"
	MatchedBySimilarity MatchedBy = "similarity"
)

// MergeRecord is one candidate folded into an existing entity.
type MergeRecord struct {
	EntityID   string    `json:"entity_id" yaml:"entity_id"`
	SourceID   string    `json:"source_id" yaml:"source_id"`
	Similarity float64   `json:"similarity" yaml:"similarity"`
	MatchedBy  MatchedBy `json:"matched_by" yaml:"matched_by"`
}

// EntityScore pairs an entity with a similarity score.
type EntityScore struct {
	EntityID   string  `json:"entity_id" yaml:"entity_id"`
	Similarity float64 `json:"similarity" yaml:"similarity"`
}

// AmbiguousMatch is a candidate that matched several entities too closely to choose.
type AmbiguousMatch struct {
	SourceID   string        `json:"source_id" yaml:"source_id"`
	EntityID   string        `json:"entity_id" yaml:"entity_id"`
	Candidates []EntityScore `json:"candidates" yaml:"candidates"`
}

// DedupReport collects merge decisions.
type DedupReport struct {
	Merges    []MergeRecord    `json:"merges" yaml:"merges"`
	Ambiguous []AmbiguousMatch `json:"ambiguous" yaml:"ambiguous"`
}

// Failure is a recovered error recorded during a run.
type Failure struct {
	Source  string `json:"source,omitempty" yaml:"source,omitempty"`
	Unit    string `json:"unit,omitempty" yaml:"unit,omitempty"`
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
}

// ComplianceSummary is the gate and breaker state at the end of a run.
type ComplianceSummary struct {
	CachedDomains  []string          `json:"cached_domains" yaml:"cached_domains"`
	BlockedDomains map[string]string `json:"blocked_domains" yaml:"blocked_domains"`
	Breakers       map[string]string `json:"breakers,omitempty" yaml:"breakers,omitempty"`
}

// Batch is the finished output of a run.
type Batch struct {
	RunID      string            `json:"run_id" yaml:"run_id"`
	Entities   []ServiceEntity   `json:"entities" yaml:"entities"`
	Stats      RunStatistics     `json:"stats" yaml:"stats"`
	Validation ValidationReport  `json:"validation" yaml:"validation"`
	Dedup      DedupReport       `json:"dedup" yaml:"dedup"`
	Failures   []Failure         `json:"failures" yaml:"failures"`
	Compliance ComplianceSummary `json:"compliance" yaml:"compliance"`
}

// EntitiesByState groups entities by normalized state; entities without a
// state are grouped under UnknownState. Keys are returned sorted.
func (b *Batch) EntitiesByState() ([]string, map[string][]ServiceEntity) {
	groups := make(map[string][]ServiceEntity)
	for _, e := range b.Entities {
		st := e.Record.Location.State
		if st == "" {
			st = UnknownState
		}
		groups[st] = append(groups[st], e)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups
}

// UnknownState labels records whose state could not be determined.
const UnknownState = "UNKNOWN"
