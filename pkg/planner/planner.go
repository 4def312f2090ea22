// Package planner turns a QUERY's intent/mode into an ordered,
// typed plan of memory-retrieval stages, and walks that plan against
// a memory.Store (spec.md §4.5). The planner never calls tools —
// only the memory store's retrieve interface.
package planner

import (
	"context"
	"fmt"
	"sort"

	aerrors "github.com/ailrun/ail/pkg/errors"
	"github.com/ailrun/ail/pkg/memory"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// Mode is one of the three plan templates.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeExplore  Mode = "explore"
	ModeConnect  Mode = "connect"
)

// Stage names, per spec.md §4.5's mode templates.
const (
	StageTimeFilter         = "TIME_FILTER"
	StageTypeFilter         = "TYPE_FILTER"
	StageVectorSearch       = "VECTOR_SEARCH"
	StageRankResults        = "RANK_RESULTS"
	StageCategoryAnalysis   = "CATEGORY_ANALYSIS"
	StageFacetGeneration    = "FACET_GENERATION"
	StageTopResults         = "TOP_RESULTS"
	StageNodeIdentification = "NODE_IDENTIFICATION"
	StageGraphTraversal     = "GRAPH_TRAVERSAL"
	StagePathRanking        = "PATH_RANKING"
)

// MaxGraphDegree bounds GRAPH_TRAVERSAL in connect mode.
const MaxGraphDegree = 3

// Metadata is the QUERY cognition's single metadata argument.
type Metadata struct {
	Intent               string  `mapstructure:"intent"`
	Mode                 string  `mapstructure:"mode"`
	MaxResults           int     `mapstructure:"max_results"`
	SimilarityThreshold  float64 `mapstructure:"similarity_threshold"`
}

// DecodeMetadata decodes a QUERY's raw metadata map into Metadata.
func DecodeMetadata(raw map[string]interface{}) (Metadata, error) {
	var m Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &m,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Metadata{}, aerrors.Wrap(aerrors.KindInternal, "planner: building decoder", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return Metadata{}, aerrors.Wrap(aerrors.KindValidation, "planner: decoding query metadata", err)
	}
	if m.Mode == "" {
		m.Mode = string(ModeStandard)
	}
	if m.MaxResults <= 0 {
		m.MaxResults = 10
	}
	return m, nil
}

// Plan is the QueryPlan of spec.md §4.5.
type Plan struct {
	PlanID           string
	Mode             Mode
	Intent           Intent
	Stages           []string
	EstimatedTimeMS  int
	Confidence       float64
}

// Build produces a Plan for the given metadata, deriving intent from
// metadata.Intent and selecting stages by metadata.Mode.
func Build(meta Metadata) (*Plan, error) {
	mode := Mode(meta.Mode)
	intent := ParseIntent(meta.Intent)

	var stages []string
	switch mode {
	case ModeStandard:
		if len(intent.TimeReferences) > 0 {
			stages = append(stages, StageTimeFilter)
		}
		if len(intent.MemoryTypes) > 0 {
			stages = append(stages, StageTypeFilter)
		}
		stages = append(stages, StageVectorSearch, StageRankResults)
	case ModeExplore:
		stages = []string{StageCategoryAnalysis, StageFacetGeneration, StageTopResults}
	case ModeConnect:
		stages = []string{StageNodeIdentification, StageGraphTraversal, StagePathRanking}
	default:
		return nil, aerrors.New(aerrors.KindValidation, fmt.Sprintf("planner: unknown mode %q", meta.Mode))
	}

	hasTime := len(intent.TimeReferences) > 0
	hasType := len(intent.MemoryTypes) > 0

	return &Plan{
		PlanID:          uuid.NewString(),
		Mode:            mode,
		Intent:          intent,
		Stages:          stages,
		EstimatedTimeMS: estimateTimeMS(stages),
		Confidence:      confidence(len(intent.Entities), hasTime, hasType, len(stages)),
	}, nil
}

// stageCostMS is a fixed per-stage cost estimate; ties in any future
// stage-level estimate refinement break by stage index, per spec.md §4.5.
var stageCostMS = map[string]int{
	StageTimeFilter:         20,
	StageTypeFilter:         20,
	StageVectorSearch:       150,
	StageRankResults:        30,
	StageCategoryAnalysis:   80,
	StageFacetGeneration:    60,
	StageTopResults:         40,
	StageNodeIdentification: 50,
	StageGraphTraversal:     200,
	StagePathRanking:        50,
}

func estimateTimeMS(stages []string) int {
	total := 0
	for _, s := range stages {
		total += stageCostMS[s]
	}
	return total
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// confidence implements SPEC_FULL.md's pinned formula: monotonic in
// recognized-entity count, presence of time/type constraints, and
// stage count.
func confidence(entityCount int, hasTime, hasType bool, stageCount int) float64 {
	b2f := func(b bool) float64 {
		if b {
			return 1
		}
		return 0
	}
	entities := float64(entityCount)
	stages := float64(stageCount)
	score := 0.15*entities/(entities+2) +
		0.35*(b2f(hasTime)+b2f(hasType))/2 +
		0.5*stages/(stages+3)
	return clamp01(score)
}

// Result is what QUERY ultimately returns to the kernel.
type Result struct {
	Mode     string
	Intent   string
	Memories []memory.Record
	Total    int
	PlanID   string
}

// Execute walks plan's stages against store, consuming each stage's
// output as the next stage's input, and returns the ranked records.
// The query embedding is nil; callers that have an Embedder wired
// should use ExecuteWithEmbedding instead.
func Execute(ctx context.Context, plan *Plan, meta Metadata, store memory.Store) (Result, error) {
	return ExecuteWithEmbedding(ctx, plan, meta, store, nil)
}

// ExecuteWithEmbedding is Execute with an explicit, pre-computed query
// embedding forwarded to every retrieval stage (the kernel's QUERY
// handler embeds meta.Intent before calling this).
func ExecuteWithEmbedding(ctx context.Context, plan *Plan, meta Metadata, store memory.Store, queryEmbedding []float32) (Result, error) {
	filters := memory.Filters{
		TimeReferences: plan.Intent.TimeReferences,
		MemoryTypes:    plan.Intent.MemoryTypes,
	}

	var records []memory.Record
	for _, stage := range plan.Stages {
		switch stage {
		case StageTimeFilter, StageTypeFilter, StageCategoryAnalysis, StageFacetGeneration:
			// Structural stages refine filters/intent only; the actual
			// retrieval happens at VECTOR_SEARCH/TOP_RESULTS/NODE_IDENTIFICATION.
			continue
		case StageVectorSearch, StageTopResults:
			var err error
			records, err = store.Retrieve(ctx, queryEmbedding, filters, meta.MaxResults)
			if err != nil {
				return Result{}, aerrors.Wrap(aerrors.KindMemoryStore, "planner: retrieve failed", err)
			}
		case StageNodeIdentification:
			var err error
			records, err = store.Retrieve(ctx, queryEmbedding, filters, meta.MaxResults)
			if err != nil {
				return Result{}, aerrors.Wrap(aerrors.KindMemoryStore, "planner: retrieve failed", err)
			}
		case StageGraphTraversal:
			hops, err := store.Retrieve(ctx, queryEmbedding, filters, meta.MaxResults+MaxGraphDegree)
			if err != nil {
				return Result{}, aerrors.Wrap(aerrors.KindMemoryStore, "planner: retrieve failed", err)
			}
			records = mergeHops(records, hops, MaxGraphDegree)
		case StageRankResults, StagePathRanking:
			rank(records)
		}
	}

	return Result{
		Mode:     string(plan.Mode),
		Intent:   meta.Intent,
		Memories: records,
		Total:    len(records),
		PlanID:   plan.PlanID,
	}, nil
}

// mergeHops extends seeds with up to maxNew additional records drawn
// from hops, deduped by ID. Store exposes no adjacency/neighbor
// primitive (spec.md §9's Store is Retrieve-by-embedding only), so
// GRAPH_TRAVERSAL widens NODE_IDENTIFICATION's retrieval window
// instead of walking an explicit edge list; MaxGraphDegree still
// bounds how many extra nodes a single traversal can pull in.
func mergeHops(seeds, hops []memory.Record, maxNew int) []memory.Record {
	seen := make(map[string]bool, len(seeds))
	out := make([]memory.Record, len(seeds))
	copy(out, seeds)
	for _, s := range seeds {
		seen[s.ID] = true
	}
	added := 0
	for _, h := range hops {
		if added >= maxNew {
			break
		}
		if seen[h.ID] {
			continue
		}
		seen[h.ID] = true
		out = append(out, h)
		added++
	}
	return out
}

// rank sorts records by similarity score descending; ties break by
// most recent created_at descending, then record id ascending
// (spec.md §4.5's tie-break rule).
func rank(records []memory.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.SimilarityScore != b.SimilarityScore {
			return a.SimilarityScore > b.SimilarityScore
		}
		if a.CreatedAtUnixMS != b.CreatedAtUnixMS {
			return a.CreatedAtUnixMS > b.CreatedAtUnixMS
		}
		return a.ID < b.ID
	})
}

