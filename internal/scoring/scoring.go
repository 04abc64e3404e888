// Package scoring computes contribution scores for pull requests from a
// configurable event rubric.
package scoring

import (
	"math"

	"github.com/google/go-github/v71/github"
)

// Status is the lifecycle classification of a pull request.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
	StatusMerged Status = "merged"
)

// Complexity buckets a pull request by the size of its change set.
type Complexity string

const (
	ComplexitySmall  Complexity = "small"
	ComplexityMedium Complexity = "medium"
	ComplexityLarge  Complexity = "large"
)

// Rules holds the per-event scoring rubric.
type Rules struct {
	PRMerged             float64                `json:"pr_merged"`
	PROpened             float64                `json:"pr_opened"`
	PRClosedUnmerged     float64                `json:"pr_closed_unmerged"`
	ReviewAddressed      float64                `json:"review_addressed"`
	ComplexityMultiplier map[Complexity]float64 `json:"complexity_multiplier"`
}

// EventConfig is the static scoring configuration for one event. It is loaded
// once at startup and shared read-only by all scoring calls.
type EventConfig struct {
	ID               int      `json:"id"`
	Name             string   `json:"name"`
	StartDate        string   `json:"start_date"`
	EndDate          string   `json:"end_date"`
	ScoringRules     Rules    `json:"scoring_rules"`
	WhitelistedRepos []string `json:"whitelisted_repos"`
}

// DefaultEventConfig returns the built-in event rubric.
func DefaultEventConfig() *EventConfig {
	return &EventConfig{
		ID:        1,
		Name:      "Bug Blitz 2025",
		StartDate: "2025-02-01",
		EndDate:   "2025-02-28",
		ScoringRules: Rules{
			PRMerged:         10,
			PROpened:         3,
			PRClosedUnmerged: -2,
			ReviewAddressed:  2,
			ComplexityMultiplier: map[Complexity]float64{
				ComplexitySmall:  1,
				ComplexityMedium: 1.5,
				ComplexityLarge:  2,
			},
		},
		WhitelistedRepos: []string{"org/project1", "org/project2"},
	}
}

// ClassifyStatus derives a pull request's status. A merge timestamp wins over
// the reported state.
func ClassifyStatus(pr *github.PullRequest) Status {
	switch {
	case pr.MergedAt != nil:
		return StatusMerged
	case pr.GetState() == "closed":
		return StatusClosed
	default:
		return StatusOpen
	}
}

// AssessComplexity buckets a pull request by total changed lines and file
// count. Every pull request falls into exactly one bucket.
func AssessComplexity(pr *github.PullRequest) Complexity {
	totalLines := pr.GetAdditions() + pr.GetDeletions()
	fileCount := pr.GetChangedFiles()

	switch {
	case totalLines < 50 && fileCount <= 2:
		return ComplexitySmall
	case totalLines < 200 && fileCount <= 5:
		return ComplexityMedium
	default:
		return ComplexityLarge
	}
}

// CalculatePRScore scores a pull request: the per-status base score scaled by
// the complexity multiplier, plus a flat review bonus when the PR has
// comments. The result is rounded to two decimal places. A nil config yields
// zero.
func CalculatePRScore(pr *github.PullRequest, cfg *EventConfig, status Status) float64 {
	if cfg == nil {
		return 0
	}

	var base float64
	switch status {
	case StatusMerged:
		base = cfg.ScoringRules.PRMerged
	case StatusOpen:
		base = cfg.ScoringRules.PROpened
	case StatusClosed:
		base = cfg.ScoringRules.PRClosedUnmerged
	}

	base *= cfg.ScoringRules.ComplexityMultiplier[AssessComplexity(pr)]

	if pr.GetComments() != 0 {
		base += cfg.ScoringRules.ReviewAddressed
	}

	return math.Round(base*100) / 100
}
