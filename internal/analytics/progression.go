package analytics

import (
	"strconv"
	"strings"

	"github.com/claude/liftlog/internal/models"
)

// SetOutcome compares one set with the last time that slot was performed.
type SetOutcome string

const (
	OutcomeProgressed SetOutcome = "progressed"
	OutcomeMatched    SetOutcome = "matched"
	OutcomeRegressed  SetOutcome = "regressed"
)

// OverallStatus is the headline verdict for a workout.
type OverallStatus string

const (
	StatusProgressed OverallStatus = "progressed"
	StatusMaintained OverallStatus = "maintained"
	StatusRecovery   OverallStatus = "recovery"
)

const (
	maxWins        = 3
	winWeightDelta = 10
	winRepDelta    = 3
)

// Win is a notable improvement worth calling out after a workout.
type Win struct {
	ExerciseName string `json:"exercise_name"`
	SetIndex     int    `json:"set_index"`
	Description  string `json:"description"` // e.g. "+10 lb, +3 reps"
}

// ProgressionSummary counts set outcomes across a workout.
type ProgressionSummary struct {
	ProgressedSets int           `json:"progressed_sets"`
	MatchedSets    int           `json:"matched_sets"`
	RegressedSets  int           `json:"regressed_sets"`
	TotalSets      int           `json:"total_sets"`
	OverallStatus  OverallStatus `json:"overall_status"`
	BiggestWins    []Win         `json:"biggest_wins"`
}

type slotKey struct {
	exercise string
	setIndex int
}

// latestPerformances indexes the most recent completed set per exercise name
// and set index, ignoring sessionID.
func latestPerformances(history []models.HistoricalSet, sessionID string) map[slotKey]models.HistoricalSet {
	latest := make(map[slotKey]models.HistoricalSet)
	for _, h := range history {
		if !h.Completed || h.WorkoutID == sessionID {
			continue
		}
		k := slotKey{h.ExerciseName, h.SetIndex}
		if cur, ok := latest[k]; ok && h.PerformedAt.Before(cur.PerformedAt) {
			continue
		}
		latest[k] = h
	}
	return latest
}

// ClassifySet compares a current set against a prior one. Having no prior
// performance counts as progress.
func ClassifySet(reps, weight float64, prev *models.HistoricalSet) SetOutcome {
	if prev == nil {
		return OutcomeProgressed
	}
	if weight > prev.Weight || reps > prev.Reps {
		return OutcomeProgressed
	}
	if weight*reps == prev.Weight*prev.Reps {
		return OutcomeMatched
	}
	return OutcomeRegressed
}

// SummarizeProgression compares every stats-eligible set in exercises with
// the latest prior performance of the same exercise name and set index.
// Wins are collected in iteration order, not by size.
func SummarizeProgression(exercises []models.Exercise, sessionID string, history []models.HistoricalSet) ProgressionSummary {
	latest := latestPerformances(history, sessionID)
	sum := ProgressionSummary{BiggestWins: []Win{}}

	for _, ex := range exercises {
		for i, s := range ex.Sets {
			if !IsStatsEligible(s) {
				continue
			}
			sum.TotalSets++
			reps, weight := s.Reps.Float64, s.Weight.Float64

			var prev *models.HistoricalSet
			if h, ok := latest[slotKey{ex.Name, i}]; ok {
				prev = &h
			}

			switch ClassifySet(reps, weight, prev) {
			case OutcomeProgressed:
				sum.ProgressedSets++
				if prev != nil && len(sum.BiggestWins) < maxWins {
					if desc, ok := describeWin(weight-prev.Weight, reps-prev.Reps); ok {
						sum.BiggestWins = append(sum.BiggestWins, Win{
							ExerciseName: ex.Name,
							SetIndex:     i,
							Description:  desc,
						})
					}
				}
			case OutcomeMatched:
				sum.MatchedSets++
			case OutcomeRegressed:
				sum.RegressedSets++
			}
		}
	}

	switch {
	case sum.ProgressedSets*2 > sum.TotalSets:
		sum.OverallStatus = StatusProgressed
	case sum.RegressedSets*2 > sum.TotalSets:
		sum.OverallStatus = StatusRecovery
	default:
		sum.OverallStatus = StatusMaintained
	}
	return sum
}

func describeWin(weightDelta, repDelta float64) (string, bool) {
	if weightDelta < winWeightDelta && repDelta < winRepDelta {
		return "", false
	}
	var parts []string
	if weightDelta > 0 {
		parts = append(parts, "+"+formatNumber(weightDelta)+" lb")
	}
	if repDelta > 0 {
		parts = append(parts, "+"+formatNumber(repDelta)+" reps")
	}
	return strings.Join(parts, ", "), true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
