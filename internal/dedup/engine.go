// Package dedup collapses Candidate Records that describe the same service
// into Service Entities.
package dedup

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/catalogue-cli/internal/model"
	"github.com/sells-group/catalogue-cli/internal/normalize"
	"github.com/sells-group/catalogue-cli/internal/resilience"
)

// Defaults for Options.
const (
	DefaultThreshold       = 0.85
	DefaultAmbiguityMargin = 0.02
)

// entityNamespace seeds the uuid v5 entity IDs.
var entityNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://catalogue.youth/service-entity"))

// Outcome is what Ingest did with a candidate.
type Outcome int

const (
	Created Outcome = iota
	Merged
	Ambiguous
	AlreadySeen
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Merged:
		return "merged"
	case Ambiguous:
		return "ambiguous"
	case AlreadySeen:
		return "already_seen"
	default:
		return "unknown"
	}
}

// Options configures the engine.
type Options struct {
	// Threshold is the inclusive similarity at or above which a candidate
	// duplicates an entity.
	Threshold float64
	// AmbiguityMargin: when the two best entities at or above threshold are
	// within this distance, the candidate is flagged instead of merged.
	AmbiguityMargin float64
}

// Result describes one Ingest call.
type Result struct {
	EntityID   string
	Outcome    Outcome
	Similarity float64
}

// Engine holds the entity set for one run. Ingest is serialized by a mutex;
// callers should still feed it from a single goroutine so that arrival order
// is deterministic.
type Engine struct {
	opts       Options
	similarity func(a, b model.CandidateRecord) float64

	mu       sync.Mutex
	entities []*model.ServiceEntity
	byKey    map[string]*model.ServiceEntity
	seen     map[string]string
	report   model.DedupReport
}

// NewEngine creates an engine. Out-of-range options fall back to defaults.
func NewEngine(opts Options) *Engine {
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		opts.Threshold = DefaultThreshold
	}
	if opts.AmbiguityMargin < 0 {
		opts.AmbiguityMargin = DefaultAmbiguityMargin
	}
	return &Engine{
		opts:       opts,
		similarity: Similarity,
		byKey:      make(map[string]*model.ServiceEntity),
		seen:       make(map[string]string),
	}
}

// Ingest assigns a valid candidate to an entity, creating or merging as
// needed. Re-ingesting a SourceID already seen only unions its set fields
// into the owning entity, so an exact repeat is a no-op. A candidate that
// breaks the record invariant is a fatal error.
func (e *Engine) Ingest(c model.CandidateRecord) (Result, error) {
	if err := normalize.Validate(c); err != nil {
		return Result{}, resilience.WithKind(err, resilience.KindPipelineFatal, c.Provenance.SourceName)
	}
	if c.SourceID == "" {
		return Result{}, resilience.NewKind(resilience.KindPipelineFatal, c.Provenance.SourceName, "dedup: candidate without source id")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if id, ok := e.seen[c.SourceID]; ok {
		if ent := e.find(id); ent != nil {
			unionSets(&ent.Record, c)
		}
		return Result{EntityID: id, Outcome: AlreadySeen, Similarity: 1}, nil
	}

	// A key hit only nominates an entity; it must still clear the threshold.
	key := CoarseKey(c)
	if ent, ok := e.byKey[key]; ok && key != "" {
		if sim := e.similarity(ent.Record, c); sim >= e.opts.Threshold {
			e.merge(ent, c, key, sim, model.MatchedByKey)
			return Result{EntityID: ent.ID, Outcome: Merged, Similarity: sim}, nil
		}
	}

	scores := e.score(c)
	switch {
	case len(scores) == 0:
		ent := e.create(c, key)
		return Result{EntityID: ent.ID, Outcome: Created}, nil

	case len(scores) > 1 && scores[0].Similarity-scores[1].Similarity <= e.opts.AmbiguityMargin:
		ent := e.create(c, key)
		ent.NeedsReview = true
		ent.ReviewReason = fmt.Sprintf("matched %d entities within %.2f of each other", countWithin(scores, e.opts.AmbiguityMargin), e.opts.AmbiguityMargin)
		e.report.Ambiguous = append(e.report.Ambiguous, model.AmbiguousMatch{
			SourceID:   c.SourceID,
			EntityID:   ent.ID,
			Candidates: scores,
		})
		zap.L().Info("ambiguous duplicate flagged for review",
			zap.String("component", "dedup"),
			zap.String("source_id", c.SourceID),
			zap.String("entity_id", ent.ID),
			zap.Int("matches", len(scores)),
		)
		return Result{EntityID: ent.ID, Outcome: Ambiguous, Similarity: scores[0].Similarity}, nil

	default:
		best := e.find(scores[0].EntityID)
		e.merge(best, c, key, scores[0].Similarity, model.MatchedBySimilarity)
		return Result{EntityID: best.ID, Outcome: Merged, Similarity: scores[0].Similarity}, nil
	}
}

// score returns the entities at or above threshold, best first. Equal
// scores keep creation order.
func (e *Engine) score(c model.CandidateRecord) []model.EntityScore {
	var out []model.EntityScore
	for _, ent := range e.entities {
		s := e.similarity(ent.Record, c)
		if s >= e.opts.Threshold {
			out = append(out, model.EntityScore{EntityID: ent.ID, Similarity: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out
}

func countWithin(scores []model.EntityScore, margin float64) int {
	n := 0
	for _, s := range scores {
		if scores[0].Similarity-s.Similarity <= margin {
			n++
		}
	}
	return n
}

func (e *Engine) find(id string) *model.ServiceEntity {
	for _, ent := range e.entities {
		if ent.ID == id {
			return ent
		}
	}
	return nil
}

func (e *Engine) create(c model.CandidateRecord, key string) *model.ServiceEntity {
	ent := &model.ServiceEntity{
		ID:         uuid.NewSHA1(entityNamespace, []byte(c.SourceID)).String(),
		Record:     c.Clone(),
		MergedFrom: []string{c.SourceID},
		Sources:    []model.Provenance{c.Provenance},
	}
	e.entities = append(e.entities, ent)
	e.seen[c.SourceID] = ent.ID
	e.addKey(ent, key)
	return ent
}

func (e *Engine) merge(ent *model.ServiceEntity, c model.CandidateRecord, key string, sim float64, by model.MatchedBy) {
	ent.Record = Merge(ent.Record, c)
	ent.MergedFrom = append(ent.MergedFrom, c.SourceID)
	ent.Sources = append(ent.Sources, c.Provenance)
	e.seen[c.SourceID] = ent.ID
	e.addKey(ent, key)
	e.addKey(ent, CoarseKey(ent.Record))

	e.report.Merges = append(e.report.Merges, model.MergeRecord{
		EntityID:   ent.ID,
		SourceID:   c.SourceID,
		Similarity: sim,
		MatchedBy:  by,
	})
	zap.L().Debug("candidate merged",
		zap.String("component", "dedup"),
		zap.String("source_id", c.SourceID),
		zap.String("entity_id", ent.ID),
		zap.Float64("similarity", sim),
		zap.String("matched_by", string(by)),
	)
}

// addKey indexes ent under key unless another entity already owns it.
func (e *Engine) addKey(ent *model.ServiceEntity, key string) {
	if key == "" {
		return
	}
	if _, taken := e.byKey[key]; taken {
		return
	}
	e.byKey[key] = ent
}

// Entities returns deep copies of all entities in creation order.
func (e *Engine) Entities() []model.ServiceEntity {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.ServiceEntity, len(e.entities))
	for i, ent := range e.entities {
		out[i] = ent.Clone()
	}
	return out
}

// Report returns a copy of the merge decisions so far.
func (e *Engine) Report() model.DedupReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := model.DedupReport{
		Merges:    append([]model.MergeRecord(nil), e.report.Merges...),
		Ambiguous: make([]model.AmbiguousMatch, len(e.report.Ambiguous)),
	}
	for i, a := range e.report.Ambiguous {
		a.Candidates = append([]model.EntityScore(nil), a.Candidates...)
		out.Ambiguous[i] = a
	}
	return out
}

// Len returns the number of entities.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entities)
}
