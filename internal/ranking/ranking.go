// Package ranking implements the Ranking Service (spec.md 4.6): sorting,
// filtering, and comparing already-evaluated timetable candidates.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/schoolforge/timetable-engine/internal/domain"
	"github.com/schoolforge/timetable-engine/internal/evaluator"
)

// Candidate pairs a Timetable with its evaluator.Result so ranking
// never has to re-run the evaluator.
type Candidate struct {
	Timetable  domain.Timetable
	Evaluation evaluator.Result
}

// SortKey selects what rank() orders by (spec.md 4.6).
type SortKey string

const (
	SortByTotalScore SortKey = "total_score"
	SortByCoverage   SortKey = "coverage"
)

// PenaltySortKey builds the `penalty_<kind>` sort key form.
func PenaltySortKey(kind evaluator.PenaltyKind) SortKey {
	return SortKey("penalty_" + string(kind))
}

// Criteria governs rank_candidates (spec.md 4.6).
type Criteria struct {
	SortBy       SortKey
	Descending   bool
	MinCoverage  *float64
	MaxPenalties map[evaluator.PenaltyKind]float64
}

// RankedTimetable is one output row of rank_candidates, ranks start at 1.
type RankedTimetable struct {
	Rank      int
	Candidate Candidate
}

// RankCandidates evaluates the filter/sort/rank pipeline from spec.md
// 4.6 ("rank_candidates"). Candidates failing MinCoverage or any
// MaxPenalties bound are dropped before ranks are assigned.
func RankCandidates(candidates []Candidate, criteria Criteria) []RankedTimetable {
	filtered := filterCandidates(candidates, criteria)
	sortCandidates(filtered, criteria)

	ranked := make([]RankedTimetable, len(filtered))
	for i, c := range filtered {
		ranked[i] = RankedTimetable{Rank: i + 1, Candidate: c}
	}
	return ranked
}

// FindBestPartial implements "find_best_partial(min_coverage)": filter
// by minimum coverage, then return the top-ranked candidate by
// total_score.
func FindBestPartial(candidates []Candidate, minCoverage float64) (RankedTimetable, bool) {
	ranked := RankCandidates(candidates, Criteria{
		SortBy:      SortByTotalScore,
		Descending:  true,
		MinCoverage: &minCoverage,
	})
	if len(ranked) == 0 {
		return RankedTimetable{}, false
	}
	return ranked[0], true
}

// TopN returns the first n ranked entries (or fewer if there aren't n).
func TopN(ranked []RankedTimetable, n int) []RankedTimetable {
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

func filterCandidates(candidates []Candidate, criteria Criteria) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if criteria.MinCoverage != nil && c.Evaluation.CoveragePercentage < *criteria.MinCoverage {
			continue
		}
		if exceedsMaxPenalties(c, criteria.MaxPenalties) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func exceedsMaxPenalties(c Candidate, max map[evaluator.PenaltyKind]float64) bool {
	if len(max) == 0 {
		return false
	}
	for _, item := range c.Evaluation.PenaltyBreakdown {
		if limit, ok := max[item.Kind]; ok && item.RawScore > limit {
			return true
		}
	}
	return false
}

func sortCandidates(candidates []Candidate, criteria Criteria) {
	sort.SliceStable(candidates, func(i, j int) bool {
		vi := sortValue(candidates[i], criteria.SortBy)
		vj := sortValue(candidates[j], criteria.SortBy)
		if criteria.Descending {
			return vi > vj
		}
		return vi < vj
	})
}

func sortValue(c Candidate, key SortKey) float64 {
	switch key {
	case SortByCoverage:
		return c.Evaluation.CoveragePercentage
	case SortByTotalScore, "":
		return c.Evaluation.TotalScore
	default:
		kind := strings.TrimPrefix(string(key), "penalty_")
		for _, item := range c.Evaluation.PenaltyBreakdown {
			if string(item.Kind) == kind {
				return item.RawScore
			}
		}
		return 0
	}
}

// ComparisonResult is the output of compare_alternatives (spec.md 4.6).
// Winner is 1 for a, 2 for b, 0 when the scores are within 0.01 of
// each other.
type ComparisonResult struct {
	Winner     int
	BetterForA []string
	BetterForB []string
	Summary    string
}

const tieEpsilon = 0.01

// CompareAlternatives implements compare_alternatives(a, b).
func CompareAlternatives(a, b Candidate) ComparisonResult {
	result := ComparisonResult{}
	delta := a.Evaluation.TotalScore - b.Evaluation.TotalScore
	switch {
	case delta > tieEpsilon:
		result.Winner = 1
	case delta < -tieEpsilon:
		result.Winner = 2
	default:
		result.Winner = 0
	}

	bByKind := make(map[evaluator.PenaltyKind]evaluator.PenaltyItem, len(b.Evaluation.PenaltyBreakdown))
	for _, item := range b.Evaluation.PenaltyBreakdown {
		bByKind[item.Kind] = item
	}
	for _, itemA := range a.Evaluation.PenaltyBreakdown {
		itemB, ok := bByKind[itemA.Kind]
		if !ok {
			continue
		}
		switch {
		case itemA.RawScore < itemB.RawScore:
			result.BetterForA = append(result.BetterForA, string(itemA.Kind))
		case itemA.RawScore > itemB.RawScore:
			result.BetterForB = append(result.BetterForB, string(itemA.Kind))
		}
	}

	result.Summary = comparisonSummary(result, delta)
	return result
}

func comparisonSummary(r ComparisonResult, delta float64) string {
	switch r.Winner {
	case 1:
		return fmt.Sprintf("candidate A wins by %.2f points, better on: %s", delta, strings.Join(r.BetterForA, ", "))
	case 2:
		return fmt.Sprintf("candidate B wins by %.2f points, better on: %s", -delta, strings.Join(r.BetterForB, ", "))
	default:
		return "candidates are statistically tied (within 0.01 total score)"
	}
}

// PenaltyDistribution summarizes one penalty kind across a batch
// (spec.md 4.6, "analyze_penalty_distribution").
type PenaltyDistribution struct {
	AffectedFraction float64
	Mean             float64
}

// AnalyzePenaltyDistribution computes, per penalty kind, the fraction
// of candidates with a non-zero raw score and the mean raw score
// across the whole batch.
func AnalyzePenaltyDistribution(candidates []Candidate) map[evaluator.PenaltyKind]PenaltyDistribution {
	sums := make(map[evaluator.PenaltyKind]float64)
	affected := make(map[evaluator.PenaltyKind]int)
	total := len(candidates)

	for _, c := range candidates {
		for _, item := range c.Evaluation.PenaltyBreakdown {
			sums[item.Kind] += item.RawScore
			if item.RawScore > 0 {
				affected[item.Kind]++
			}
		}
	}

	out := make(map[evaluator.PenaltyKind]PenaltyDistribution, len(sums))
	for kind, sum := range sums {
		mean := 0.0
		fraction := 0.0
		if total > 0 {
			mean = sum / float64(total)
			fraction = float64(affected[kind]) / float64(total)
		}
		out[kind] = PenaltyDistribution{AffectedFraction: fraction, Mean: mean}
	}
	return out
}
