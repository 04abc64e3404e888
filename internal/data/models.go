package data

import (
	"time"

	"github.com/just-nibble/pr-tracker/internal/gh"
)

// MemberProfile links an internal member to their GitHub username.
type MemberProfile struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	GithubUsername string    `gorm:"uniqueIndex" json:"github_username"`
	DisplayName    string    `json:"display_name"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Contribution is the persisted, scored record of one pull request's
// ingestion. At most one row exists per (github_pr_id, repo_owner,
// repo_name); rows are created once and never updated.
type Contribution struct {
	ID       string `gorm:"primaryKey" json:"id"`
	MemberID *uint  `gorm:"index" json:"member_id"`

	// Natural composite key.
	GithubPRID int64  `gorm:"column:github_pr_id;uniqueIndex:idx_contributions_natural_key" json:"github_pr_id"`
	RepoOwner  string `gorm:"uniqueIndex:idx_contributions_natural_key" json:"repo_owner"`
	RepoName   string `gorm:"uniqueIndex:idx_contributions_natural_key" json:"repo_name"`

	// Denormalized pull request fields. The timestamp columns mirror the PR,
	// not the row; explicit column names keep GORM's auto-stamping away.
	PRNumber             int        `gorm:"column:pr_number" json:"pr_number"`
	PRTitle              string     `gorm:"column:pr_title" json:"pr_title"`
	PRLink               string     `gorm:"column:pr_link" json:"pr_link"`
	Status               string     `json:"status"`
	AuthorGithubUsername string     `json:"author_github_username"`
	PRCreatedAt          *time.Time `gorm:"column:created_at" json:"created_at"`
	PRUpdatedAt          *time.Time `gorm:"column:updated_at" json:"updated_at"`
	ClosedAt             *time.Time `json:"closed_at"`
	MergedAt             *time.Time `json:"merged_at"`
	Labels               []string   `gorm:"serializer:json" json:"labels"`
	Reviewers            []string   `gorm:"serializer:json" json:"reviewers"`
	ReviewsCount         int        `json:"reviews_count"`
	CommentsCount        int        `json:"comments_count"`
	Additions            int        `json:"additions"`
	Deletions            int        `json:"deletions"`
	ChangedFiles         int        `json:"changed_files"`

	Score      float64        `json:"score"`
	Metadata   map[string]any `gorm:"serializer:json" json:"metadata"`
	UserCode   []gh.FileDiff  `gorm:"serializer:json" json:"user_code"`
	LastSynced time.Time      `json:"last_synced"`
}
