package orchestration

import (
	"sort"

	"github.com/wordbench/wordbench/internal/models"
)

// BuildSummary derives the ranking and per-target breakdown from a report's
// model results. Pure: the input is never mutated, and calling it twice on
// the same results yields identical summaries.
//
// The sort must be stable. Models tied on overall accuracy keep their
// configured relative order; an unstable sort would make tied rankings
// shuffle between runs.
func BuildSummary(results []models.ModelResult) *models.Summary {
	summary := &models.Summary{
		Ranking: make([]models.RankingEntry, 0, len(results)),
	}

	for _, mr := range results {
		summary.Ranking = append(summary.Ranking, models.RankingEntry{
			Model:        mr.Model,
			Accuracy:     mr.OverallAccuracy,
			AvgDeviation: mr.AvgDeviation,
			ExactMatches: mr.TotalExact,
			TotalTrials:  mr.TotalTrials,
		})
	}

	sort.SliceStable(summary.Ranking, func(i, j int) bool {
		return summary.Ranking[i].Accuracy > summary.Ranking[j].Accuracy
	})
	for i := range summary.Ranking {
		summary.Ranking[i].Rank = i + 1
	}

	// Per-target breakdown, targets in first-seen order.
	var targets []int
	entriesByTarget := map[int][]models.TargetEntry{}
	for _, mr := range results {
		for _, wr := range mr.Results {
			if _, seen := entriesByTarget[wr.Target]; !seen {
				targets = append(targets, wr.Target)
			}
			entriesByTarget[wr.Target] = append(entriesByTarget[wr.Target], models.TargetEntry{
				Model:        mr.Model,
				Accuracy:     wr.Accuracy,
				AvgDeviation: wr.AvgDeviation,
			})
		}
	}

	for _, target := range targets {
		entries := entriesByTarget[target]
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Accuracy > entries[j].Accuracy
		})

		summary.Targets = append(summary.Targets, models.TargetBreakdown{
			Target:       target,
			Best:         entries[0].Model,
			BestAccuracy: entries[0].Accuracy,
			Entries:      entries,
		})
	}

	return summary
}
